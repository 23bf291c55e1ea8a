package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phash/playtogether-sub000/internal/service"
	"github.com/phash/playtogether-sub000/internal/session"
)

// Plays one rock-paper-scissors cup between two sockets against a running server.
func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// a token is optional; with JWT_SECRET set both players bind accounts
	tokens := service.NewTokens(os.Getenv("JWT_SECRET"))
	url := func(accountID int64) string {
		// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
		u := fmt.Sprintf("ws://127.0.0.1:%s/ws", port)
		if tokens.Enabled() {
			tok, err := tokens.Generate(accountID, time.Hour)
			if err != nil {
				log.Fatalf("gen token: %v", err)
			}
			u += "?token=" + tok
		}
		return u
	}

	connA, _, err := websocket.DefaultDialer.Dial(url(3001), nil)
	if err != nil {
		log.Fatalf("dial A: %v", err)
	}
	defer connA.Close()

	connB, _, err := websocket.DefaultDialer.Dial(url(3002), nil)
	if err != nil {
		log.Fatalf("dial B: %v", err)
	}
	defer connB.Close()

	send(connA, session.MsgCreateRoom, map[string]any{"name": "smokeA", "gameKind": "rps_tournament"})
	var state struct {
		PlayerID string `json:"playerId"`
		Room     struct {
			Code string `json:"code"`
		} `json:"room"`
	}
	decode(waitFor(connA, session.EvtRoomState), &state)
	log.Printf("room %s created", state.Room.Code)

	send(connB, session.MsgJoinRoom, map[string]any{"code": state.Room.Code, "name": "smokeB"})
	waitFor(connB, session.EvtRoomState)
	waitFor(connA, session.EvtPlayerJoined)

	send(connA, session.MsgStartGame, nil)
	var match struct {
		BestOf int `json:"bestOf"`
	}
	decode(waitFor(connA, "match_start"), &match)

	// rock beats scissors until A has won the series
	for wins := 0; wins <= match.BestOf/2; {
		send(connA, session.MsgGameAction, map[string]any{"action": "choose", "data": map[string]string{"choice": "rock"}})
		send(connB, session.MsgGameAction, map[string]any{"action": "choose", "data": map[string]string{"choice": "scissors"}})
		var won struct {
			Wins map[string]int `json:"wins"`
		}
		decode(waitFor(connA, "game_won"), &won)
		wins = won.Wins[state.PlayerID]
		log.Printf("A has %d win(s)", wins)
	}

	log.Printf("A got: %s", waitFor(connA, "match_won"))

	send(connA, session.MsgPing, nil)
	waitFor(connA, session.EvtPong)

	log.Println("smoke test finished")
}

func send(conn *websocket.Conn, msgType string, payload any) {
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Fatalf("write %s: %v", msgType, err)
	}
}

// waitFor drains frames until one of msgType arrives and returns its payload.
func waitFor(conn *websocket.Conn, msgType string) json.RawMessage {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		var env session.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			log.Fatalf("waiting for %s: %v", msgType, err)
		}
		if env.Type == session.EvtError {
			log.Fatalf("server error while waiting for %s: %s", msgType, env.Payload)
		}
		if env.Type == msgType {
			return env.Payload
		}
	}
	log.Fatalf("timed out waiting for %s", msgType)
	return nil
}

func decode(raw json.RawMessage, v any) {
	if err := json.Unmarshal(raw, v); err != nil {
		log.Fatalf("decode: %v", err)
	}
}

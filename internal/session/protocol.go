package session

import (
	"encoding/json"

	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/logger"
)

// Inbound message types
const (
	MsgCreateRoom     = "create_room"
	MsgJoinRoom       = "join_room"
	MsgLeaveRoom      = "leave_room"
	MsgSetReady       = "set_ready"
	MsgStartGame      = "start_game"
	MsgGameAction     = "game_action"
	MsgUpdateSettings = "update_settings"
	MsgUpdatePlaylist = "update_playlist"
	MsgCastVote       = "cast_vote"
	MsgEndSession     = "end_session"
	MsgReconnect      = "reconnect"
	MsgPing           = "ping"
)

// Outbound message types produced by the orchestrator itself. Engine and vote
// events are forwarded under their own names.
const (
	EvtRoomState          = "room_state"
	EvtPlayerJoined       = "player_joined"
	EvtPlayerLeft         = "player_left"
	EvtPlayerUpdated      = "player_updated"
	EvtPlayerDisconnected = "player_disconnected"
	EvtPlayerReconnected  = "player_reconnected"
	EvtGameStarting       = "game_starting"
	EvtGameState          = "game_state"
	EvtGameEnded          = "game_ended"
	EvtSessionResults     = "session_results"
	EvtSessionEnded       = "session_ended"
	EvtVoteStart          = "vote_start"
	EvtRoomClosed         = "room_closed"
	EvtPong               = "pong"
	EvtError              = "error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type createRoomPayload struct {
	Name       string          `json:"name"`
	MaxPlayers int             `json:"maxPlayers"`
	GameKind   domain.GameKind `json:"gameKind"`
}

type joinRoomPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type setReadyPayload struct {
	Ready bool `json:"ready"`
}

type gameActionPayload struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type updatePlaylistPayload struct {
	Entries []domain.PlaylistEntry `json:"entries"`
}

type castVotePayload struct {
	GameKind domain.GameKind `json:"gameKind"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Frame encodes one outbound message. Payloads are marshalled immediately so
// the bytes can cross goroutines while the room keeps mutating its state.
func Frame(msgType string, payload any) []byte {
	b, err := json.Marshal(outbound{Type: msgType, Payload: payload})
	if err != nil {
		logger.Error("encode frame", "type", msgType, "error", err)
		return nil
	}
	return b
}

// ErrorFrame encodes err as an error message for its sender.
func ErrorFrame(err error) []byte {
	return Frame(EvtError, errorPayload{Code: Code(err), Message: err.Error()})
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrInvalidMessage
	}
	return nil
}

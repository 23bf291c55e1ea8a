package game

import (
	"encoding/json"

	"github.com/phash/playtogether-sub000/internal/domain"
)

var rpsChoices = []string{"rock", "paper", "scissors"}

// rps hides both choices until the second one is in. A draw is replayed
// without counting as a game.
type rps struct{}

func NewRPSTournament(players []Player, s Settings, env Env) Engine {
	return newTournament(domain.KindRPS, players, s, env, rps{})
}

func (rps) resetGame(m *Match) { m.Choices = make(map[string]string, 2) }

func (rps) owed(m *Match) []string {
	var out []string
	for _, id := range []string{m.Player1, m.Player2} {
		if _, ok := m.Choices[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

type choicePayload struct {
	Choice string `json:"choice"`
}

func (rps) apply(t *tournament, m *Match, playerID, action string, data json.RawMessage) bool {
	if action != "choose" {
		return false
	}
	var p choicePayload
	if !decode(data, &p) || !validChoice(p.Choice) {
		return false
	}
	m.Choices[playerID] = p.Choice
	t.out.Emit("choice_locked", map[string]any{"matchId": m.ID, "playerId": playerID})
	return true
}

func (rps) randomMove(t *tournament, m *Match, playerID string) {
	m.Choices[playerID] = rpsChoices[t.rng.Intn(len(rpsChoices))]
	t.out.Emit("choice_locked", map[string]any{"matchId": m.ID, "playerId": playerID, "auto": true})
}

func (rps) result(m *Match) (outcome, string) {
	a, okA := m.Choices[m.Player1]
	b, okB := m.Choices[m.Player2]
	if !okA || !okB {
		return undecided, ""
	}
	switch decide(a, b) {
	case "win":
		return decided, m.Player1
	case "lose":
		return decided, m.Player2
	default:
		return drawn, ""
	}
}

func (rps) reveal(m *Match) any {
	out := make(map[string]string, len(m.Choices))
	for id, c := range m.Choices {
		out[id] = c
	}
	return out
}

func (rps) clockPerMove() bool  { return false }
func (rps) drawEndsMatch() bool { return false }

func validChoice(c string) bool {
	for _, v := range rpsChoices {
		if v == c {
			return true
		}
	}
	return false
}

// decide reports the outcome for moveA against moveB: "win", "lose" or "draw".
func decide(moveA, moveB string) string {
	if moveA == moveB {
		return "draw"
	}

	switch moveA {
	case "rock":
		if moveB == "scissors" {
			return "win"
		}
	case "paper":
		if moveB == "rock" {
			return "win"
		}
	case "scissors":
		if moveB == "paper" {
			return "win"
		}
	}

	return "lose"
}

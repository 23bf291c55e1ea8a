package game

import (
	"encoding/json"

	"github.com/phash/playtogether-sub000/internal/domain"
)

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// ticTacToe alternates moves on a 3x3 board, Player1 always X. A full board
// ends the whole match.
type ticTacToe struct{}

func NewTicTacToeTournament(players []Player, s Settings, env Env) Engine {
	return newTournament(domain.KindTicTacToe, players, s, env, ticTacToe{})
}

func (ticTacToe) resetGame(m *Match) {
	m.Board = make([]string, 9)
	m.Turn = m.Player1
}

func (ticTacToe) owed(m *Match) []string {
	if m.Turn == "" {
		return nil
	}
	return []string{m.Turn}
}

func mark(m *Match, playerID string) string {
	if playerID == m.Player1 {
		return "X"
	}
	return "O"
}

type movePayload struct {
	Cell *int `json:"cell"`
}

func (r ticTacToe) apply(t *tournament, m *Match, playerID, action string, data json.RawMessage) bool {
	if action != "move" {
		return false
	}
	var p movePayload
	if !decode(data, &p) || p.Cell == nil {
		return false
	}
	return r.place(t, m, playerID, *p.Cell)
}

func (ticTacToe) place(t *tournament, m *Match, playerID string, cell int) bool {
	if cell < 0 || cell >= len(m.Board) || m.Board[cell] != "" {
		return false
	}
	m.Board[cell] = mark(m, playerID)
	m.Turn = m.opponent(playerID)
	t.out.Emit("move_made", map[string]any{
		"matchId":  m.ID,
		"playerId": playerID,
		"cell":     cell,
		"mark":     m.Board[cell],
	})
	return true
}

func (r ticTacToe) randomMove(t *tournament, m *Match, playerID string) {
	var free []int
	for i, c := range m.Board {
		if c == "" {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return
	}
	r.place(t, m, playerID, free[t.rng.Intn(len(free))])
}

func (ticTacToe) result(m *Match) (outcome, string) {
	for _, l := range winLines {
		a := m.Board[l[0]]
		if a != "" && a == m.Board[l[1]] && a == m.Board[l[2]] {
			if a == "X" {
				return decided, m.Player1
			}
			return decided, m.Player2
		}
	}
	for _, c := range m.Board {
		if c == "" {
			return undecided, ""
		}
	}
	return drawn, ""
}

func (ticTacToe) reveal(m *Match) any { return append([]string(nil), m.Board...) }

func (ticTacToe) clockPerMove() bool  { return true }
func (ticTacToe) drawEndsMatch() bool { return true }

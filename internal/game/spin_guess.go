package game

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/phash/playtogether-sub000/internal/content"
	"github.com/phash/playtogether-sub000/internal/domain"
)

const SolvePoints = 500

var wheel = []int{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000}

// spinGuess passes the turn after every attempt. Each round is one puzzle.
type spinGuess struct {
	Base
	turn     *rotation
	puzzle   content.Puzzle
	guessed  map[rune]bool
	spin     int
	budget   int
	used     int
	solvedBy string
	deck     []int
}

type spinView struct {
	Category      string   `json:"category"`
	Masked        string   `json:"masked"`
	Guessed       []string `json:"guessed"`
	CurrentPlayer string   `json:"currentPlayer,omitempty"`
	Wheel         int      `json:"wheel"`
	TurnsLeft     int      `json:"turnsLeft"`
	Phrase        string   `json:"phrase,omitempty"`
}

func NewSpinGuess(players []Player, s Settings, env Env) Engine {
	return &spinGuess{
		Base:    newBase(domain.KindSpinGuess, players, s, env),
		guessed: make(map[rune]bool),
	}
}

func (g *spinGuess) Start() {
	if g.phase != PhasePreparation || !g.live() {
		return
	}
	g.deck = g.rng.Perm(len(g.content.Puzzles))
	g.nextRound(g.startPuzzle)
}

func (g *spinGuess) startPuzzle() {
	g.puzzle = g.content.Puzzles[g.deck[(g.round-1)%len(g.deck)]]
	g.guessed = make(map[rune]bool)
	g.solvedBy = ""
	g.used = 0
	g.budget = 3 * len(distinctLetters(g.puzzle.Phrase))
	g.turn = newRotation(g.activePlayers(), g.round-1)
	g.out.Emit("round_start", map[string]any{
		"round":       g.round,
		"totalRounds": g.total,
		"category":    g.puzzle.Category,
		"masked":      g.masked(),
	})
	g.beginTurn()
}

func (g *spinGuess) beginTurn() {
	g.enterPhase(PhaseActive)
	g.spin = wheel[g.rng.Intn(len(wheel))]
	player := g.turn.current()
	g.out.Emit("wheel_spun", map[string]any{"playerId": player, "value": g.spin})
	g.out.Emit("turn_start", map[string]any{
		"playerId": player,
		"seconds":  int(g.limit.Seconds()),
	})
	g.startCountdown(g.limit, g.passTurn)
}

type guessPayload struct {
	Letter string `json:"letter"`
	Phrase string `json:"phrase"`
}

func (g *spinGuess) HandleAction(playerID, action string, data json.RawMessage) {
	if !g.live() || g.phase != PhaseActive || playerID == "" || playerID != g.turn.current() {
		return
	}
	var p guessPayload
	if !decode(data, &p) {
		return
	}
	switch action {
	case "guess":
		g.guess(playerID, strings.ToUpper(strings.TrimSpace(p.Letter)))
	case "solve":
		g.solve(playerID, p.Phrase)
	}
}

func (g *spinGuess) guess(playerID, letter string) {
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return
	}
	r := rune(letter[0])
	if g.guessed[r] {
		g.out.Emit("letter_wrong", map[string]any{"playerId": playerID, "letter": letter, "reason": "already_guessed"})
		g.passTurn()
		return
	}
	g.guessed[r] = true
	hits := strings.Count(g.puzzle.Phrase, letter)
	if hits == 0 {
		g.out.Emit("letter_wrong", map[string]any{"playerId": playerID, "letter": letter, "reason": "miss"})
		g.passTurn()
		return
	}
	points := g.spin * hits
	g.addScore(playerID, points)
	g.out.Emit("letter_correct", map[string]any{
		"playerId": playerID,
		"letter":   letter,
		"count":    hits,
		"points":   points,
		"masked":   g.masked(),
	})
	if g.revealed() {
		g.finishPuzzle()
		return
	}
	g.passTurn()
}

func (g *spinGuess) solve(playerID, phrase string) {
	if normalizePhrase(phrase) != g.puzzle.Phrase {
		g.out.Emit("letter_wrong", map[string]any{"playerId": playerID, "reason": "wrong_solve"})
		g.passTurn()
		return
	}
	g.solvedBy = playerID
	g.addScore(playerID, SolvePoints)
	g.out.Emit("puzzle_solved", map[string]any{
		"playerId": playerID,
		"phrase":   g.puzzle.Phrase,
		"points":   SolvePoints,
	})
	g.finishPuzzle()
}

func (g *spinGuess) passTurn() {
	if !g.live() {
		return
	}
	g.used++
	if g.used >= g.budget || len(g.turn.alive()) == 0 {
		g.finishPuzzle()
		return
	}
	g.turn.advance()
	g.beginTurn()
}

func (g *spinGuess) finishPuzzle() {
	g.enterPhase(PhaseReveal)
	g.out.Emit("round_result", map[string]any{
		"round":    g.round,
		"phrase":   g.puzzle.Phrase,
		"category": g.puzzle.Category,
		"solvedBy": g.solvedBy,
		"scores":   g.Scores(),
	})
	g.after(RevealPause, func() { g.nextRound(g.startPuzzle) })
}

func (g *spinGuess) revealed() bool {
	for _, r := range g.puzzle.Phrase {
		if r >= 'A' && r <= 'Z' && !g.guessed[r] {
			return false
		}
	}
	return true
}

func (g *spinGuess) masked() string {
	var b strings.Builder
	for _, r := range g.puzzle.Phrase {
		if r >= 'A' && r <= 'Z' && !g.guessed[r] {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (g *spinGuess) PlayerLeft(playerID string) {
	if !g.markLeft(playerID) || !g.live() {
		return
	}
	if len(g.activePlayers()) == 0 {
		g.endGame()
		return
	}
	if g.turn == nil {
		return
	}
	wasTurn := playerID == g.turn.current()
	g.turn.remove(playerID)
	if wasTurn && g.phase == PhaseActive {
		g.passTurn()
	}
}

func (g *spinGuess) State() State {
	view := spinView{
		Category: g.puzzle.Category,
		Masked:   g.masked(),
		Guessed:  []string{},
		Wheel:    g.spin,
	}
	for r := range g.guessed {
		view.Guessed = append(view.Guessed, string(r))
	}
	sort.Strings(view.Guessed)
	if g.turn != nil {
		view.CurrentPlayer = g.turn.current()
	}
	if g.budget > g.used {
		view.TurnsLeft = g.budget - g.used
	}
	if g.phase == PhaseReveal || g.phase == PhaseEnd {
		view.Phrase = g.puzzle.Phrase
	}
	return g.snapshot(view)
}

func distinctLetters(phrase string) map[rune]bool {
	out := make(map[rune]bool)
	for _, r := range phrase {
		if r >= 'A' && r <= 'Z' {
			out[r] = true
		}
	}
	return out
}

func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

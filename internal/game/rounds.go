package game

import (
	"encoding/json"
	"time"

	"github.com/phash/playtogether-sub000/internal/domain"
)

type answer struct {
	PlayerID string
	Choice   string
	TimeLeft time.Duration
	Order    int
}

// roundRules is what differs between the simultaneous-round games.
type roundRules interface {
	// prompt picks the round's question and returns its public view.
	prompt(g *roundGame) any
	valid(g *roundGame, choice string) bool
	// score awards points for a resolved round and returns the reveal payload.
	score(g *roundGame, answers []answer) map[string]any
	roundTime(g *roundGame) time.Duration
}

// roundGame runs preparation -> active -> reveal -> (active | end). A round
// closes as soon as every present player has answered or the clock runs out.
type roundGame struct {
	Base
	rules   roundRules
	answers map[string]answer
	prompt  any
	opened  time.Time
	window  time.Duration
	streak  int
	result  map[string]any
	deck    []int
}

type roundView struct {
	Prompt   any            `json:"prompt,omitempty"`
	Answered []string       `json:"answered"`
	Streak   int            `json:"streak"`
	Result   map[string]any `json:"result,omitempty"`
}

func newRoundGame(kind domain.GameKind, players []Player, s Settings, env Env, rules roundRules) *roundGame {
	return &roundGame{
		Base:    newBase(kind, players, s, env),
		rules:   rules,
		answers: make(map[string]answer),
	}
}

// draw picks the current round's entry from a deck shuffled once per game.
func (g *roundGame) draw(size int) int {
	if size <= 0 {
		return 0
	}
	if len(g.deck) != size {
		g.deck = g.rng.Perm(size)
	}
	return g.deck[(g.round-1)%size]
}

func (g *roundGame) Start() {
	if g.phase != PhasePreparation || !g.live() {
		return
	}
	g.nextRound(g.startRound)
}

func (g *roundGame) startRound() {
	g.enterPhase(PhaseActive)
	g.answers = make(map[string]answer)
	g.result = nil
	g.window = g.rules.roundTime(g)
	g.prompt = g.rules.prompt(g)
	g.opened = g.timers.Now()
	g.out.Emit("round_start", map[string]any{
		"round":       g.round,
		"totalRounds": g.total,
		"prompt":      g.prompt,
		"seconds":     int(g.window / time.Second),
	})
	g.startCountdown(g.window, func() { g.resolve(false) })
}

type answerPayload struct {
	Choice string `json:"choice"`
	Round  int    `json:"round"`
}

func (g *roundGame) HandleAction(playerID, action string, data json.RawMessage) {
	if !g.live() || g.phase != PhaseActive || action != "answer" || !g.isPresent(playerID) {
		return
	}
	if _, done := g.answers[playerID]; done {
		return
	}
	var p answerPayload
	if !decode(data, &p) {
		return
	}
	if p.Round != 0 && p.Round != g.round {
		return
	}
	if !g.rules.valid(g, p.Choice) {
		return
	}
	left := g.window - g.timers.Now().Sub(g.opened)
	if left < 0 {
		left = 0
	}
	g.answers[playerID] = answer{
		PlayerID: playerID,
		Choice:   p.Choice,
		TimeLeft: left,
		Order:    len(g.answers),
	}
	g.out.Emit("answer_received", map[string]any{
		"playerId": playerID,
		"answered": len(g.answers),
		"total":    len(g.activePlayers()),
	})
	if g.allAnswered() {
		g.resolve(true)
	}
}

func (g *roundGame) allAnswered() bool {
	active := g.activePlayers()
	if len(active) == 0 {
		return false
	}
	for _, p := range active {
		if _, ok := g.answers[p.ID]; !ok {
			return false
		}
	}
	return true
}

// ordered returns answers in arrival order.
func (g *roundGame) ordered() []answer {
	out := make([]answer, len(g.answers))
	for _, a := range g.answers {
		out[a.Order] = a
	}
	return out
}

func (g *roundGame) resolve(everyone bool) {
	if g.phase != PhaseActive {
		return
	}
	g.enterPhase(PhaseReveal)
	if everyone {
		g.streak++
	} else {
		g.streak = 0
	}
	answers := g.ordered()
	result := g.rules.score(g, answers)
	choices := make(map[string]string, len(answers))
	for _, a := range answers {
		choices[a.PlayerID] = a.Choice
	}
	result["round"] = g.round
	result["streak"] = g.streak
	result["answers"] = choices
	result["scores"] = g.Scores()
	g.result = result
	g.out.Emit("round_result", result)
	g.after(RevealPause, func() { g.nextRound(g.startRound) })
}

func (g *roundGame) PlayerLeft(playerID string) {
	if !g.markLeft(playerID) || !g.live() {
		return
	}
	if len(g.activePlayers()) == 0 {
		g.endGame()
		return
	}
	if g.phase == PhaseActive && g.allAnswered() {
		g.resolve(true)
	}
}

func (g *roundGame) State() State {
	view := roundView{Streak: g.streak, Answered: []string{}}
	if g.phase == PhaseActive || g.phase == PhaseReveal {
		view.Prompt = g.prompt
	}
	for _, a := range g.ordered() {
		view.Answered = append(view.Answered, a.PlayerID)
	}
	if g.phase == PhaseReveal {
		view.Result = g.result
	}
	return g.snapshot(view)
}

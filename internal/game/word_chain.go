package game

import (
	"encoding/json"
	"strings"

	"github.com/phash/playtogether-sub000/internal/domain"
)

const SurvivalBonus = 100

// wordChain eliminates any player who breaks the chain or runs out of time.
// The round counter counts full rotations of the turn order.
type wordChain struct {
	Base
	turn *rotation
	word string
	used map[string]bool
}

type chainView struct {
	CurrentPlayer string   `json:"currentPlayer"`
	Word          string   `json:"word"`
	Used          int      `json:"used"`
	Eliminated    []string `json:"eliminated"`
}

func NewWordChain(players []Player, s Settings, env Env) Engine {
	return &wordChain{
		Base: newBase(domain.KindWordChain, players, s, env),
		turn: newRotation(players, 0),
		used: make(map[string]bool),
	}
}

func (g *wordChain) Start() {
	if g.phase != PhasePreparation || !g.live() {
		return
	}
	words := g.content.Words
	g.word = words[g.rng.Intn(len(words))]
	g.used[g.word] = true
	g.nextRound(g.beginTurn)
}

func (g *wordChain) beginTurn() {
	g.enterPhase(PhaseActive)
	player := g.turn.current()
	g.out.Emit("turn_start", map[string]any{
		"playerId":   player,
		"round":      g.round,
		"word":       g.word,
		"lastLetter": g.lastLetter(),
		"seconds":    int(g.limit.Seconds()),
	})
	g.startCountdown(g.limit, func() { g.eliminate(player, "timeout") })
}

func (g *wordChain) lastLetter() string {
	if g.word == "" {
		return ""
	}
	return g.word[len(g.word)-1:]
}

type wordPayload struct {
	Word string `json:"word"`
}

func (g *wordChain) HandleAction(playerID, action string, data json.RawMessage) {
	if !g.live() || g.phase != PhaseActive || action != "submit_word" {
		return
	}
	if playerID == "" || playerID != g.turn.current() {
		return
	}
	var p wordPayload
	if !decode(data, &p) {
		return
	}
	word := strings.ToLower(strings.TrimSpace(p.Word))
	if !g.accepts(word) {
		g.eliminate(playerID, "invalid")
		return
	}
	g.used[word] = true
	g.word = word
	points := 10 + len(word)
	g.addScore(playerID, points)
	g.out.Emit("word_accepted", map[string]any{
		"playerId": playerID,
		"word":     word,
		"points":   points,
	})
	g.passTurn()
}

// accepts checks a lower-cased word against the running chain.
func (g *wordChain) accepts(word string) bool {
	if len(word) < 2 || g.used[word] {
		return false
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return strings.HasPrefix(word, g.lastLetter())
}

func (g *wordChain) eliminate(playerID, reason string) {
	if !g.live() {
		return
	}
	wasTurn := playerID == g.turn.current()
	g.turn.remove(playerID)
	g.out.Emit("player_eliminated", map[string]any{
		"playerId": playerID,
		"reason":   reason,
		"word":     g.word,
	})
	alive := g.turn.alive()
	switch {
	case len(alive) == 1:
		g.addScore(alive[0], SurvivalBonus)
		g.endGame()
	case len(alive) == 0:
		g.endGame()
	case wasTurn:
		g.passTurn()
	}
}

func (g *wordChain) passTurn() {
	if g.turn.advance() {
		g.nextRound(g.beginTurn)
		return
	}
	g.beginTurn()
}

func (g *wordChain) PlayerLeft(playerID string) {
	if !g.markLeft(playerID) || !g.live() {
		return
	}
	for _, id := range g.turn.alive() {
		if id == playerID {
			g.eliminate(playerID, "left")
			return
		}
	}
}

func (g *wordChain) State() State {
	return g.snapshot(chainView{
		CurrentPlayer: g.turn.current(),
		Word:          g.word,
		Used:          len(g.used),
		Eliminated:    g.turn.removed(),
	})
}

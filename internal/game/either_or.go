package game

import (
	"time"

	"github.com/phash/playtogether-sub000/internal/content"
	"github.com/phash/playtogether-sub000/internal/domain"
)

const (
	MajorityPoints = 100
	TiePoints      = 50

	// Once everyone has answered in time this many rounds in a row the clock
	// starts shrinking.
	speedUpStreak = 3
	speedUpStep   = 2 * time.Second
	minRoundTime  = 5 * time.Second
)

type Tally struct {
	A int `json:"a"`
	B int `json:"b"`
}

type eitherOr struct {
	current content.Prompt
}

func NewEitherOr(players []Player, s Settings, env Env) Engine {
	return newRoundGame(domain.KindEitherOr, players, s, env, &eitherOr{})
}

func (r *eitherOr) prompt(g *roundGame) any {
	r.current = g.content.Prompts[g.draw(len(g.content.Prompts))]
	return r.current
}

func (r *eitherOr) valid(_ *roundGame, choice string) bool {
	return choice == "a" || choice == "b"
}

func (r *eitherOr) roundTime(g *roundGame) time.Duration {
	d := g.limit
	if g.streak >= speedUpStreak {
		d -= time.Duration(g.streak-speedUpStreak+1) * speedUpStep
		if d < minRoundTime {
			d = minRoundTime
		}
	}
	if d > g.limit {
		d = g.limit
	}
	return d
}

func (r *eitherOr) score(g *roundGame, answers []answer) map[string]any {
	var t Tally
	for _, a := range answers {
		if a.Choice == "a" {
			t.A++
		} else {
			t.B++
		}
	}
	majority := ""
	switch {
	case t.A > t.B:
		majority = "a"
	case t.B > t.A:
		majority = "b"
	}
	points := make(map[string]int, len(answers))
	for _, a := range answers {
		switch {
		case majority == "":
			points[a.PlayerID] = TiePoints
		case a.Choice == majority:
			points[a.PlayerID] = MajorityPoints
		}
		g.addScore(a.PlayerID, points[a.PlayerID])
	}
	return map[string]any{
		"tally":    t,
		"majority": majority,
		"points":   points,
	}
}

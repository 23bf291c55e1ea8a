package game

import (
	"time"

	"github.com/phash/playtogether-sub000/internal/domain"
)

// colorRush rewards the fastest players to pick the named color.
type colorRush struct {
	target string
}

type colorPrompt struct {
	Color   string   `json:"color"`
	Options []string `json:"options"`
}

func NewColorRush(players []Player, s Settings, env Env) Engine {
	return newRoundGame(domain.KindColorRush, players, s, env, &colorRush{})
}

func (r *colorRush) prompt(g *roundGame) any {
	colors := g.content.Colors
	r.target = colors[g.rng.Intn(len(colors))]
	options := append([]string(nil), colors...)
	g.rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return colorPrompt{Color: r.target, Options: options}
}

func (r *colorRush) valid(g *roundGame, choice string) bool {
	for _, c := range g.content.Colors {
		if c == choice {
			return true
		}
	}
	return false
}

func (r *colorRush) roundTime(g *roundGame) time.Duration { return g.limit }

func (r *colorRush) score(g *roundGame, answers []answer) map[string]any {
	ranking := []string{}
	points := make(map[string]int)
	for _, a := range answers {
		if a.Choice != r.target {
			continue
		}
		ranking = append(ranking, a.PlayerID)
		pts := RankBonus(len(ranking))
		points[a.PlayerID] = pts
		g.addScore(a.PlayerID, pts)
	}
	return map[string]any{
		"color":   r.target,
		"ranking": ranking,
		"points":  points,
	}
}

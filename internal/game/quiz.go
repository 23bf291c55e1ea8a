package game

import (
	"strconv"
	"time"

	"github.com/phash/playtogether-sub000/internal/content"
	"github.com/phash/playtogether-sub000/internal/domain"
)

const QuizBasePoints = 100

type quiz struct {
	current content.Question
	streaks map[string]int
}

type quizPrompt struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

func NewQuiz(players []Player, s Settings, env Env) Engine {
	return newRoundGame(domain.KindQuiz, players, s, env, &quiz{streaks: make(map[string]int)})
}

func (r *quiz) prompt(g *roundGame) any {
	r.current = g.content.Questions[g.draw(len(g.content.Questions))]
	return quizPrompt{Text: r.current.Text, Options: r.current.Options}
}

// valid accepts the index of one of the options.
func (r *quiz) valid(_ *roundGame, choice string) bool {
	i, err := strconv.Atoi(choice)
	return err == nil && i >= 0 && i < len(r.current.Options)
}

func (r *quiz) roundTime(g *roundGame) time.Duration { return g.limit }

func (r *quiz) score(g *roundGame, answers []answer) map[string]any {
	byPlayer := make(map[string]answer, len(answers))
	for _, a := range answers {
		byPlayer[a.PlayerID] = a
	}
	correct := strconv.Itoa(r.current.Answer)
	points := make(map[string]int)
	for _, p := range g.activePlayers() {
		a, ok := byPlayer[p.ID]
		if !ok || a.Choice != correct {
			r.streaks[p.ID] = 0
			continue
		}
		r.streaks[p.ID]++
		pts := SpeedPoints(QuizBasePoints, a.TimeLeft, g.window) + StreakBonus(r.streaks[p.ID])
		points[p.ID] = pts
		g.addScore(p.ID, pts)
	}
	streaks := make(map[string]int, len(r.streaks))
	for id, s := range r.streaks {
		streaks[id] = s
	}
	return map[string]any{
		"correct": r.current.Answer,
		"points":  points,
		"streaks": streaks,
	}
}

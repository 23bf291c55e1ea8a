package game

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/phash/playtogether-sub000/internal/domain"
)

const (
	ByeBonus        = 25
	MatchWinPoints  = 100
	MatchDrawPoints = 50
	ChampionBonus   = 200

	matchPause = 2 * time.Second
)

type Match struct {
	ID       int               `json:"id"`
	Player1  string            `json:"player1"`
	Player2  string            `json:"player2"`
	Choices  map[string]string `json:"-"`
	Board    []string          `json:"board,omitempty"`
	Turn     string            `json:"turn,omitempty"`
	Wins     map[string]int    `json:"wins"`
	Games    int               `json:"games"`
	Finished bool              `json:"finished"`
	Winner   string            `json:"winner,omitempty"`
	Drawn    bool              `json:"drawn"`
}

func (m *Match) has(playerID string) bool {
	return playerID != "" && (m.Player1 == playerID || m.Player2 == playerID)
}

func (m *Match) opponent(playerID string) string {
	if m.Player1 == playerID {
		return m.Player2
	}
	return m.Player1
}

type Bracket struct {
	Round   int      `json:"round"`
	Matches []*Match `json:"matches"`
	Bye     string   `json:"bye,omitempty"`
}

type outcome int

const (
	undecided outcome = iota
	decided
	drawn
)

// duelRules plays one game between the two players of a match.
type duelRules interface {
	resetGame(m *Match)
	// owed lists the players the current game is waiting on.
	owed(m *Match) []string
	// apply records a move and reports whether it was legal.
	apply(t *tournament, m *Match, playerID, action string, data json.RawMessage) bool
	randomMove(t *tournament, m *Match, playerID string)
	result(m *Match) (outcome, string)
	// reveal is attached to game results once a game is decided.
	reveal(m *Match) any
	// clockPerMove re-arms the move timer after every accepted move.
	clockPerMove() bool
	// drawEndsMatch ends the whole series on a drawn game.
	drawEndsMatch() bool
}

// tournament is a single elimination bracket of best-of-N matches played one
// at a time. The round counter is the bracket round.
type tournament struct {
	Base
	rules      duelRules
	bestOf     int
	bracket    *Bracket
	current    int
	survivors  []string
	eliminated map[string]bool
}

type tournamentView struct {
	BestOf     int      `json:"bestOf"`
	Bracket    *Bracket `json:"bracket,omitempty"`
	Current    *Match   `json:"current,omitempty"`
	Locked     []string `json:"locked,omitempty"`
	Eliminated []string `json:"eliminated"`
}

func newTournament(kind domain.GameKind, players []Player, s Settings, env Env, rules duelRules) *tournament {
	bestOf := s.Rounds
	if bestOf < 1 {
		bestOf = 1
	}
	if bestOf%2 == 0 {
		bestOf++
	}
	s.Rounds = bracketRounds(len(players))
	return &tournament{
		Base:       newBase(kind, players, s, env),
		rules:      rules,
		bestOf:     bestOf,
		eliminated: make(map[string]bool),
	}
}

// bracketRounds is ceil(log2(n)), at least 1.
func bracketRounds(n int) int {
	r := 0
	for 1<<r < n {
		r++
	}
	if r == 0 {
		r = 1
	}
	return r
}

func (t *tournament) Start() {
	if t.phase != PhasePreparation || !t.live() {
		return
	}
	for _, p := range t.players {
		t.survivors = append(t.survivors, p.ID)
	}
	t.advanceBracket()
}

// pair shuffles the alive players into matches. An odd player out gets a bye.
func (t *tournament) pair(alive []string) *Bracket {
	ids := append([]string(nil), alive...)
	t.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	b := &Bracket{Round: t.round}
	if len(ids)%2 == 1 {
		b.Bye = ids[len(ids)-1]
		ids = ids[:len(ids)-1]
	}
	for i := 0; i+1 < len(ids); i += 2 {
		b.Matches = append(b.Matches, &Match{
			ID:      len(b.Matches) + 1,
			Player1: ids[i],
			Player2: ids[i+1],
			Wins:    map[string]int{ids[i]: 0, ids[i+1]: 0},
		})
	}
	return b
}

// alive lists survivors of the last bracket round who are still here.
func (t *tournament) alive() []string {
	var out []string
	for _, id := range t.survivors {
		if t.isPresent(id) && !t.eliminated[id] {
			out = append(out, id)
		}
	}
	return out
}

func (t *tournament) advanceBracket() {
	if alive := t.alive(); len(alive) <= 1 {
		t.crown(alive)
		return
	}
	t.nextRound(t.startBracket)
}

func (t *tournament) startBracket() {
	alive := t.alive()
	t.survivors = nil
	t.bracket = t.pair(alive)
	t.current = 0
	t.out.Emit("bracket", t.bracket)
	if t.bracket.Bye != "" {
		t.addScore(t.bracket.Bye, ByeBonus)
		t.survivors = append(t.survivors, t.bracket.Bye)
		t.out.Emit("bye", map[string]any{"playerId": t.bracket.Bye, "points": ByeBonus})
	}
	t.playMatch()
}

func (t *tournament) crown(alive []string) {
	if len(alive) == 1 {
		t.addScore(alive[0], ChampionBonus)
	}
	t.endGame()
}

func (t *tournament) match() *Match {
	if t.bracket == nil || t.current >= len(t.bracket.Matches) {
		return nil
	}
	return t.bracket.Matches[t.current]
}

func (t *tournament) playMatch() {
	m := t.match()
	if m == nil {
		return
	}
	p1, p2 := t.isPresent(m.Player1), t.isPresent(m.Player2)
	switch {
	case !p1 && !p2:
		m.Finished = true
		t.eliminated[m.Player1] = true
		t.eliminated[m.Player2] = true
		t.nextMatch()
		return
	case !p1:
		t.finishMatch(m, m.Player2, "forfeit")
		return
	case !p2:
		t.finishMatch(m, m.Player1, "forfeit")
		return
	}
	t.rules.resetGame(m)
	t.out.Emit("match_start", map[string]any{"match": m, "bestOf": t.bestOf})
	t.armMove()
}

func (t *tournament) armMove() {
	t.enterPhase(PhaseActive)
	t.startCountdown(t.limit, t.timeout)
}

// timeout plays a random legal move for everyone the game is waiting on.
func (t *tournament) timeout() {
	m := t.match()
	if m == nil || m.Finished {
		return
	}
	for _, id := range t.rules.owed(m) {
		t.rules.randomMove(t, m, id)
	}
	t.settle(m)
}

func (t *tournament) HandleAction(playerID, action string, data json.RawMessage) {
	if !t.live() || t.phase != PhaseActive {
		return
	}
	m := t.match()
	if m == nil || m.Finished || !m.has(playerID) {
		return
	}
	owed := false
	for _, id := range t.rules.owed(m) {
		if id == playerID {
			owed = true
		}
	}
	if !owed || !t.rules.apply(t, m, playerID, action, data) {
		return
	}
	t.settle(m)
}

func (t *tournament) settle(m *Match) {
	res, winner := t.rules.result(m)
	switch res {
	case undecided:
		if t.rules.clockPerMove() {
			t.armMove()
		}
	case drawn:
		t.out.Emit("game_draw", map[string]any{"matchId": m.ID, "reveal": t.rules.reveal(m)})
		if !t.rules.drawEndsMatch() {
			t.rules.resetGame(m)
			t.armMove()
			return
		}
		// a full board ends the match drawn whatever the series score
		t.drawMatch(m)
	case decided:
		m.Games++
		m.Wins[winner]++
		t.out.Emit("game_won", map[string]any{
			"matchId":  m.ID,
			"playerId": winner,
			"wins":     m.Wins,
			"reveal":   t.rules.reveal(m),
		})
		if m.Wins[winner] > t.bestOf/2 {
			t.finishMatch(m, winner, "series")
			return
		}
		t.rules.resetGame(m)
		t.armMove()
	}
}

func (t *tournament) finishMatch(m *Match, winner, reason string) {
	loser := m.opponent(winner)
	m.Finished = true
	m.Winner = winner
	if reason != "forfeit" {
		t.addScore(winner, MatchWinPoints)
	}
	t.eliminated[loser] = true
	t.survivors = append(t.survivors, winner)
	t.out.Emit("match_won", map[string]any{
		"matchId": m.ID,
		"winner":  winner,
		"loser":   loser,
		"reason":  reason,
		"wins":    m.Wins,
		"scores":  t.Scores(),
	})
	t.nextMatch()
}

// drawMatch splits the points and advances Player1.
func (t *tournament) drawMatch(m *Match) {
	m.Finished = true
	m.Drawn = true
	m.Winner = m.Player1
	t.addScore(m.Player1, MatchDrawPoints)
	t.addScore(m.Player2, MatchDrawPoints)
	t.eliminated[m.Player2] = true
	t.survivors = append(t.survivors, m.Player1)
	t.out.Emit("match_drawn", map[string]any{
		"matchId":  m.ID,
		"advanced": m.Player1,
		"scores":   t.Scores(),
	})
	t.nextMatch()
}

func (t *tournament) nextMatch() {
	t.current++
	t.enterPhase(PhaseReveal)
	if t.match() != nil {
		t.after(matchPause, t.playMatch)
		return
	}
	t.after(matchPause, t.advanceBracket)
}

// PlayerLeft forfeits the player's current or upcoming match.
func (t *tournament) PlayerLeft(playerID string) {
	if !t.markLeft(playerID) || !t.live() {
		return
	}
	if len(t.activePlayers()) == 0 {
		t.endGame()
		return
	}
	if m := t.match(); m != nil && !m.Finished && m.has(playerID) && t.phase == PhaseActive {
		t.finishMatch(m, m.opponent(playerID), "forfeit")
	}
}

func (t *tournament) State() State {
	view := tournamentView{BestOf: t.bestOf, Bracket: t.bracket, Eliminated: []string{}}
	for _, p := range t.players {
		if t.eliminated[p.ID] {
			view.Eliminated = append(view.Eliminated, p.ID)
		}
	}
	if m := t.match(); m != nil && !m.Finished {
		view.Current = m
		for id := range m.Choices {
			view.Locked = append(view.Locked, id)
		}
		sort.Strings(view.Locked)
	}
	return t.snapshot(view)
}

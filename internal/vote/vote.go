package vote

import (
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/event"
	"github.com/phash/playtogether-sub000/internal/metrics"
	"github.com/phash/playtogether-sub000/internal/sched"
)

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Ranking struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

type Result struct {
	Kind     domain.GameKind         `json:"gameKind"`
	Votes    map[domain.GameKind]int `json:"votes"`
	Tiebreak bool                    `json:"tiebreak"`
}

// Manager keeps the cumulative session score for one room and runs the vote
// for the next game. Like an engine it is owned by the room actor.
type Manager struct {
	players    []Player
	scores     map[string]int
	games      int
	lastKind   domain.GameKind
	catalog    []domain.GameInfo
	timers     *sched.Set
	out        event.Outbox
	rng        *rand.Rand
	voting     bool
	candidates []domain.GameKind
	votes      map[string]domain.GameKind
	countdown  *sched.Countdown
	resolved   *Result
	destroyed  bool
}

func New(players []Player, catalog []domain.GameInfo, clock sched.Clock, dispatch sched.Dispatch, rng *rand.Rand) *Manager {
	if catalog == nil {
		catalog = domain.Games
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m := &Manager{
		scores:  make(map[string]int),
		catalog: catalog,
		timers:  sched.NewSet(clock, dispatch),
		rng:     rng,
	}
	for _, p := range players {
		m.AddPlayer(p)
	}
	return m
}

// AddPlayer starts a late joiner at zero. Known players are left alone.
func (m *Manager) AddPlayer(p Player) {
	if _, ok := m.scores[p.ID]; ok {
		return
	}
	m.players = append(m.players, p)
	m.scores[p.ID] = 0
}

func (m *Manager) RemovePlayer(playerID string) {
	for i, p := range m.players {
		if p.ID == playerID {
			m.players = append(m.players[:i], m.players[i+1:]...)
			break
		}
	}
	delete(m.scores, playerID)
	if m.voting {
		delete(m.votes, playerID)
		if m.everyoneVoted() {
			m.resolve()
		}
	}
}

// AddGameScores folds one finished game's scores into the session totals.
func (m *Manager) AddGameScores(scores map[string]int) {
	for id, s := range scores {
		if _, ok := m.scores[id]; ok && s > 0 {
			m.scores[id] += s
		}
	}
	m.games++
}

func (m *Manager) GamesPlayed() int { return m.games }

func (m *Manager) Cumulative() map[string]int {
	out := make(map[string]int, len(m.scores))
	for id, s := range m.scores {
		out[id] = s
	}
	return out
}

// Rankings orders players by score, ties by join order, with competition
// ranks (1, 2, 2, 4).
func (m *Manager) Rankings() []Ranking {
	out := make([]Ranking, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, Ranking{PlayerID: p.ID, Name: p.Name, Score: m.scores[p.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}

func (m *Manager) LastKind() domain.GameKind { return m.lastKind }

func (m *Manager) SetLastKind(kind domain.GameKind) { m.lastKind = kind }

// Candidates lists kinds that fit the room and differ from the last game.
// When that leaves nothing, the last game is allowed again.
func (m *Manager) Candidates(roomSize int) []domain.GameKind {
	var fits, fresh []domain.GameKind
	for _, g := range m.catalog {
		if !g.Fits(roomSize) {
			continue
		}
		fits = append(fits, g.Kind)
		if g.Kind != m.lastKind {
			fresh = append(fresh, g.Kind)
		}
	}
	if len(fresh) > 0 {
		return fresh
	}
	return fits
}

// StartVoting opens a vote. It returns the candidates, or nil when nothing
// fits the room.
func (m *Manager) StartVoting(roomSize, seconds int) []domain.GameKind {
	if m.destroyed {
		return nil
	}
	m.timers.Clear()
	m.candidates = m.Candidates(roomSize)
	if len(m.candidates) == 0 {
		return nil
	}
	m.voting = true
	m.votes = make(map[string]domain.GameKind)
	m.resolved = nil
	m.out.Emit("vote_start", map[string]any{
		"candidates": m.candidates,
		"seconds":    seconds,
	})
	m.countdown = m.timers.Countdown(seconds, func(left int) {
		m.out.Emit("vote_tick", map[string]any{"seconds": left})
	}, m.resolve)
	return append([]domain.GameKind(nil), m.candidates...)
}

func (m *Manager) Voting() bool { return m.voting }

// Ballot describes the running vote for a player who just reconnected.
func (m *Manager) Ballot() (candidates []domain.GameKind, secondsLeft int, votes map[domain.GameKind]int) {
	if !m.voting {
		return nil, 0, nil
	}
	return append([]domain.GameKind(nil), m.candidates...), m.countdown.Left(), m.tally()
}

// CastVote records or changes a vote. It reports whether the vote counted.
func (m *Manager) CastVote(playerID string, kind domain.GameKind) bool {
	if !m.voting || m.destroyed {
		return false
	}
	if _, ok := m.scores[playerID]; !ok || !m.isCandidate(kind) {
		return false
	}
	m.votes[playerID] = kind
	m.out.Emit("vote_update", map[string]any{
		"votes": m.tally(),
		"voted": len(m.votes),
		"total": len(m.players),
	})
	if m.everyoneVoted() {
		m.resolve()
	}
	return true
}

func (m *Manager) isCandidate(kind domain.GameKind) bool {
	for _, c := range m.candidates {
		if c == kind {
			return true
		}
	}
	return false
}

func (m *Manager) everyoneVoted() bool {
	if len(m.players) == 0 {
		return false
	}
	for _, p := range m.players {
		if _, ok := m.votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

func (m *Manager) tally() map[domain.GameKind]int {
	out := make(map[domain.GameKind]int, len(m.candidates))
	for _, c := range m.candidates {
		out[c] = 0
	}
	for _, k := range m.votes {
		out[k]++
	}
	return out
}

// resolve picks the most voted candidate. Ties, including nobody voting, are
// broken at random and flagged.
func (m *Manager) resolve() {
	if !m.voting {
		return
	}
	m.voting = false
	m.timers.Clear()
	m.countdown = nil

	votes := m.tally()
	best := -1
	var top []domain.GameKind
	for _, c := range m.candidates {
		switch n := votes[c]; {
		case n > best:
			best = n
			top = []domain.GameKind{c}
		case n == best:
			top = append(top, c)
		}
	}
	res := Result{Kind: top[0], Votes: votes, Tiebreak: len(top) > 1 || best == 0}
	if len(top) > 1 {
		res.Kind = top[m.rng.Intn(len(top))]
	}
	m.lastKind = res.Kind
	m.resolved = &res
	metrics.VotesResolved.WithLabelValues(strconv.FormatBool(res.Tiebreak)).Inc()
	m.out.Emit("vote_result", res)
}

// TakeResult returns the outcome of the last vote once.
func (m *Manager) TakeResult() (Result, bool) {
	if m.resolved == nil {
		return Result{}, false
	}
	res := *m.resolved
	m.resolved = nil
	return res, true
}

func (m *Manager) HandleTimer(id sched.ID) bool {
	if m.destroyed {
		return false
	}
	return m.timers.Fire(id)
}

func (m *Manager) Drain() []event.Event { return m.out.Drain() }

// Destroy cancels a running vote. Scores remain readable.
func (m *Manager) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.voting = false
	m.timers.Close()
	m.out.Close()
}

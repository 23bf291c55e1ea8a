package vote

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/event"
	"github.com/phash/playtogether-sub000/internal/sched"
)

func players(ids ...string) []Player {
	out := make([]Player, len(ids))
	for i, id := range ids {
		out[i] = Player{ID: id, Name: "name-" + id}
	}
	return out
}

func newTestManager(ids ...string) (*Manager, *sched.ManualClock) {
	clock := sched.NewManualClock(time.Unix(0, 0))
	var m *Manager
	m = New(players(ids...), nil, clock, func(id sched.ID) { m.HandleTimer(id) }, rand.New(rand.NewSource(3)))
	return m, clock
}

func names(events []event.Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func TestAllVotesResolveBeforeDeadline(t *testing.T) {
	m, clock := newTestManager("a", "b", "c")
	cands := m.StartVoting(3, 15)
	require.NotEmpty(t, cands)

	assert.True(t, m.CastVote("a", domain.KindQuiz))
	assert.True(t, m.CastVote("b", domain.KindQuiz))
	assert.True(t, m.Voting())
	assert.True(t, m.CastVote("c", domain.KindRPS))

	assert.False(t, m.Voting())
	res, ok := m.TakeResult()
	require.True(t, ok)
	assert.Equal(t, domain.KindQuiz, res.Kind)
	assert.False(t, res.Tiebreak)
	assert.Equal(t, 2, res.Votes[domain.KindQuiz])
	assert.Equal(t, 0, clock.Pending())

	_, again := m.TakeResult()
	assert.False(t, again)
	assert.Equal(t, domain.KindQuiz, m.LastKind())
}

func TestZeroVotesIsATiebreak(t *testing.T) {
	m, clock := newTestManager("a", "b")
	cands := m.StartVoting(2, 5)
	m.Drain()

	clock.Advance(5 * time.Second)
	events := m.Drain()
	assert.Equal(t, []string{"vote_tick", "vote_tick", "vote_tick", "vote_tick", "vote_result"}, names(events))

	res, ok := m.TakeResult()
	require.True(t, ok)
	assert.True(t, res.Tiebreak)
	assert.Contains(t, cands, res.Kind)
}

func TestSplitVoteIsATiebreak(t *testing.T) {
	m, _ := newTestManager("a", "b")
	m.StartVoting(2, 15)
	m.CastVote("a", domain.KindQuiz)
	m.CastVote("b", domain.KindColorRush)

	res, ok := m.TakeResult()
	require.True(t, ok)
	assert.True(t, res.Tiebreak)
	assert.Contains(t, []domain.GameKind{domain.KindQuiz, domain.KindColorRush}, res.Kind)
}

func TestVotesCanChangeUntilResolved(t *testing.T) {
	m, _ := newTestManager("a", "b")
	m.StartVoting(2, 15)
	m.CastVote("a", domain.KindQuiz)
	m.CastVote("a", domain.KindWordChain)
	m.CastVote("b", domain.KindWordChain)

	res, _ := m.TakeResult()
	assert.Equal(t, domain.KindWordChain, res.Kind)
	assert.False(t, m.CastVote("a", domain.KindQuiz), "vote is closed")
}

func TestInvalidVotesIgnored(t *testing.T) {
	m, _ := newTestManager("a", "b")
	assert.False(t, m.CastVote("a", domain.KindQuiz), "no vote running")

	m.SetLastKind(domain.KindQuiz)
	m.StartVoting(2, 15)
	assert.False(t, m.CastVote("a", domain.KindQuiz), "last game is not a candidate")
	assert.False(t, m.CastVote("ghost", domain.KindRPS))
	assert.False(t, m.CastVote("a", "chess"))
	assert.True(t, m.Voting())
}

func TestCandidatesExcludeLastUnlessOnlyOption(t *testing.T) {
	catalog := []domain.GameInfo{
		{Kind: domain.KindQuiz, MinPlayers: 1, MaxPlayers: 12},
		{Kind: domain.KindSpinGuess, MinPlayers: 2, MaxPlayers: 6},
	}
	m := New(players("a"), catalog, nil, nil, nil)
	m.SetLastKind(domain.KindQuiz)
	assert.Equal(t, []domain.GameKind{domain.KindQuiz}, m.Candidates(1), "only quiz fits one player")
	assert.Equal(t, []domain.GameKind{domain.KindSpinGuess}, m.Candidates(3))
	assert.Empty(t, m.Candidates(40))
}

func TestCandidatesNeverEmptyForPlayableRooms(t *testing.T) {
	m, _ := newTestManager("a")
	for size := 1; size <= 16; size++ {
		for _, g := range domain.Games {
			m.SetLastKind(g.Kind)
			assert.NotEmpty(t, m.Candidates(size), "size %d last %s", size, g.Kind)
		}
	}
}

func TestLeaverCompletesTheVote(t *testing.T) {
	m, _ := newTestManager("a", "b", "c")
	m.StartVoting(3, 15)
	m.CastVote("a", domain.KindQuiz)
	m.CastVote("b", domain.KindQuiz)
	m.RemovePlayer("c")

	res, ok := m.TakeResult()
	require.True(t, ok)
	assert.Equal(t, domain.KindQuiz, res.Kind)
}

func TestCumulativeScoresAndRankings(t *testing.T) {
	m, _ := newTestManager("a", "b", "c", "d")
	m.AddGameScores(map[string]int{"a": 100, "b": 300, "c": 100, "ghost": 999})
	m.AddGameScores(map[string]int{"d": 50})
	m.AddPlayer(Player{ID: "e", Name: "late"})
	m.AddPlayer(Player{ID: "a", Name: "dup"})

	assert.Equal(t, 2, m.GamesPlayed())
	assert.Equal(t, map[string]int{"a": 100, "b": 300, "c": 100, "d": 50, "e": 0}, m.Cumulative())

	got := m.Rankings()
	require.Len(t, got, 5)
	var order []string
	var ranks []int
	for _, r := range got {
		order = append(order, r.PlayerID)
		ranks = append(ranks, r.Rank)
	}
	assert.Equal(t, []string{"b", "a", "c", "d", "e"}, order)
	assert.Equal(t, []int{1, 2, 2, 4, 5}, ranks)
	assert.Equal(t, "name-a", got[1].Name)
}

func TestDestroyStopsVote(t *testing.T) {
	m, clock := newTestManager("a", "b")
	m.StartVoting(2, 10)
	m.Destroy()
	m.Destroy()

	assert.Equal(t, 0, clock.Pending())
	clock.Advance(time.Minute)
	assert.Empty(t, m.Drain())
	assert.False(t, m.CastVote("a", domain.KindQuiz))
	assert.Nil(t, m.StartVoting(2, 10))
}

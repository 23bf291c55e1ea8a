package game

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phash/playtogether-sub000/internal/domain"
)

func tournamentState(h *harness) tournamentView {
	return h.engine.State().Data.(tournamentView)
}

func TestDecide(t *testing.T) {
	cases := []struct {
		a, b string
		want string
	}{
		{"rock", "scissors", "win"},
		{"rock", "paper", "lose"},
		{"paper", "rock", "win"},
		{"scissors", "paper", "win"},
		{"scissors", "rock", "lose"},
		{"scissors", "scissors", "draw"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, decide(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestBracketRounds(t *testing.T) {
	for n, want := range map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 16: 4} {
		assert.Equal(t, want, bracketRounds(n), "n=%d", n)
	}
}

func TestPairingCoversEveryPlayerOnce(t *testing.T) {
	for n := 2; n <= 16; n++ {
		tr := newTournament(domain.KindRPS, testPlayers(n), Settings{Rounds: 3}, Env{Rand: rand.New(rand.NewSource(int64(n)))}, rps{})
		var ids []string
		for _, p := range testPlayers(n) {
			ids = append(ids, p.ID)
		}
		b := tr.pair(ids)

		slots := len(b.Matches)
		if b.Bye != "" {
			slots++
		}
		assert.Equal(t, (n+1)/2, slots, "n=%d", n)
		assert.Equal(t, n%2 == 1, b.Bye != "", "n=%d", n)

		seen := map[string]int{}
		for _, m := range b.Matches {
			seen[m.Player1]++
			seen[m.Player2]++
		}
		if b.Bye != "" {
			seen[b.Bye]++
		}
		assert.Len(t, seen, n)
		for id, c := range seen {
			assert.Equal(t, 1, c, "player %s placed %d times", id, c)
		}
	}
}

func TestFivePlayerBracketHasByeWithBonus(t *testing.T) {
	h := newHarness(t, domain.KindRPS, 5, Settings{}).start()
	view := tournamentState(h)
	require.NotNil(t, view.Bracket)
	assert.Len(t, view.Bracket.Matches, 2)
	require.NotEmpty(t, view.Bracket.Bye)

	bye := view.Bracket.Bye
	assert.Equal(t, ByeBonus, h.engine.Scores()[bye])
	for _, m := range view.Bracket.Matches {
		assert.False(t, m.has(bye))
	}
	assert.Equal(t, []string{"bracket", "bye", "match_start"}, eventNames(h.events))
	assert.Equal(t, 3, h.engine.State().TotalRounds)
}

func TestEvenBestOfIsForcedOdd(t *testing.T) {
	h := newHarness(t, domain.KindRPS, 2, Settings{Rounds: 2})
	assert.Equal(t, 3, h.engine.(*tournament).bestOf)
}

func TestRPSDrawIsReplayedWithoutCounting(t *testing.T) {
	h := newHarness(t, domain.KindRPS, 2, Settings{Rounds: 1}).start()
	m := tournamentState(h).Current
	require.NotNil(t, m)

	h.act(m.Player1, "choose", map[string]any{"choice": "rock"})
	state, err := json.Marshal(h.engine.State())
	require.NoError(t, err)
	assert.NotContains(t, string(state), "rock", "locked choice must stay hidden")
	assert.Equal(t, []string{m.Player1}, tournamentState(h).Locked)

	events := h.act(m.Player2, "choose", map[string]any{"choice": "rock"})
	assert.Contains(t, eventNames(events), "game_draw")
	assert.Equal(t, 0, m.Games)
	assert.Empty(t, m.Choices)
	assert.Equal(t, PhaseActive, h.engine.State().Phase)

	h.act(m.Player1, "choose", map[string]any{"choice": "rock"})
	events = h.act(m.Player2, "choose", map[string]any{"choice": "scissors"})
	assert.Equal(t, []string{"choice_locked", "game_won", "match_won"}, eventNames(events))
	assert.True(t, m.Finished)
	assert.Equal(t, m.Player1, m.Winner)

	h.advance(matchPause)
	require.True(t, h.engine.Finished())
	assert.Equal(t, MatchWinPoints+ChampionBonus, h.engine.Scores()[m.Player1])
	assert.Equal(t, m.Player1, h.engine.Winner())
}

func TestRPSTimeoutPicksForSilentPlayers(t *testing.T) {
	h := newHarness(t, domain.KindRPS, 2, Settings{Rounds: 3, TimePerRound: 5 * time.Second}).start()
	m := tournamentState(h).Current
	h.act(m.Player1, "choose", map[string]any{"choice": "paper"})

	events := h.advance(5 * time.Second)
	var auto int
	for _, e := range events {
		if e.Name == "choice_locked" && payloadMap(t, e)["auto"] == true {
			auto++
			assert.Equal(t, m.Player2, payloadMap(t, e)["playerId"])
		}
	}
	assert.Equal(t, 1, auto)
}

func TestEliminatedPlayersNeverReturn(t *testing.T) {
	h := newHarness(t, domain.KindRPS, 7, Settings{Rounds: 1, TimePerRound: time.Second}).start()
	for i := 0; i < 2000 && !h.engine.Finished(); i++ {
		h.advance(time.Second)
	}
	require.True(t, h.engine.Finished())

	losers := map[string]bool{}
	brackets := 0
	for _, e := range h.events {
		switch e.Name {
		case "bracket":
			brackets++
			b := e.Payload.(*Bracket)
			assert.LessOrEqual(t, len(b.Matches), 3)
			for _, m := range b.Matches {
				assert.False(t, losers[m.Player1] || losers[m.Player2], "bracket %d reuses a loser", b.Round)
			}
			assert.False(t, losers[b.Bye])
		case "match_won":
			losers[payloadMap(t, e)["loser"].(string)] = true
		}
	}
	assert.Equal(t, 3, brackets)
	assert.Len(t, losers, 6)
	assert.GreaterOrEqual(t, h.engine.Scores()[h.engine.Winner()], ChampionBonus)
}

func TestTicTacToeWinLine(t *testing.T) {
	h := newHarness(t, domain.KindTicTacToe, 2, Settings{Rounds: 1}).start()
	m := tournamentState(h).Current
	x, o := m.Player1, m.Player2

	assert.Empty(t, h.act(o, "move", map[string]any{"cell": 4}), "O cannot move first")
	h.act(x, "move", map[string]any{"cell": 0})
	assert.Empty(t, h.act(o, "move", map[string]any{"cell": 0}), "occupied cell")
	h.act(o, "move", map[string]any{"cell": 3})
	h.act(x, "move", map[string]any{"cell": 1})
	h.act(o, "move", map[string]any{"cell": 4})
	events := h.act(x, "move", map[string]any{"cell": 2})

	assert.Equal(t, []string{"move_made", "game_won", "match_won"}, eventNames(events))
	assert.Equal(t, x, m.Winner)
	assert.Equal(t, MatchWinPoints, h.engine.Scores()[x])
}

func TestTicTacToeDrawnMatchAdvancesPlayerOne(t *testing.T) {
	h := newHarness(t, domain.KindTicTacToe, 2, Settings{Rounds: 1}).start()
	m := tournamentState(h).Current
	x, o := m.Player1, m.Player2

	for i, cell := range []int{0, 1, 2, 4, 3, 5, 7, 6, 8} {
		player := x
		if i%2 == 1 {
			player = o
		}
		h.act(player, "move", map[string]any{"cell": cell})
	}

	assert.True(t, m.Finished)
	assert.True(t, m.Drawn)
	assert.Equal(t, x, m.Winner)
	assert.Equal(t, map[string]int{x: MatchDrawPoints, o: MatchDrawPoints}, h.engine.Scores())
	_, ok := lastEvent(h.events, "match_drawn")
	assert.True(t, ok)

	h.advance(matchPause)
	assert.True(t, h.engine.Finished())
	assert.Equal(t, x, h.engine.Winner())
}

func TestTicTacToeFullBoardDrawsMatchDespiteSeriesLead(t *testing.T) {
	h := newHarness(t, domain.KindTicTacToe, 2, Settings{Rounds: 3}).start()
	m := tournamentState(h).Current
	x, o := m.Player1, m.Player2

	play := func(cells ...int) {
		for i, cell := range cells {
			player := x
			if i%2 == 1 {
				player = o
			}
			h.act(player, "move", map[string]any{"cell": cell})
		}
	}

	play(0, 3, 1, 4, 2)
	require.False(t, m.Finished)
	require.Equal(t, 1, m.Wins[x])

	play(0, 1, 2, 4, 3, 5, 7, 6, 8)
	assert.True(t, m.Finished)
	assert.True(t, m.Drawn)
	assert.Equal(t, x, m.Winner)
	assert.Equal(t, map[string]int{x: MatchDrawPoints, o: MatchDrawPoints}, h.engine.Scores())
	_, won := lastEvent(h.events, "match_won")
	assert.False(t, won, "a drawn board never awards the series")
}

func TestTicTacToeTimeoutMovesForCurrentPlayer(t *testing.T) {
	h := newHarness(t, domain.KindTicTacToe, 2, Settings{TimePerRound: 3 * time.Second}).start()
	m := tournamentState(h).Current

	events := h.advance(3 * time.Second)
	moved, ok := lastEvent(events, "move_made")
	require.True(t, ok)
	assert.Equal(t, m.Player1, payloadMap(t, moved)["playerId"])
	assert.Equal(t, m.Player2, m.Turn)
	assert.Equal(t, 3, h.engine.State().TimeLeft, "the clock restarts for the next move")
}

func TestLeavingForfeitsCurrentMatch(t *testing.T) {
	h := newHarness(t, domain.KindRPS, 2, Settings{}).start()
	m := tournamentState(h).Current

	h.engine.PlayerLeft(m.Player2)
	won, ok := lastEvent(h.flush(), "match_won")
	require.True(t, ok)
	assert.Equal(t, "forfeit", payloadMap(t, won)["reason"])
	assert.Equal(t, 0, h.engine.Scores()[m.Player1])

	h.advance(matchPause)
	assert.True(t, h.engine.Finished())
	assert.Equal(t, ChampionBonus, h.engine.Scores()[m.Player1])
}

package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phash/playtogether-sub000/internal/content"
	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/event"
	"github.com/phash/playtogether-sub000/internal/sched"
)

func testPlayers(n int) []Player {
	out := make([]Player, n)
	for i := range out {
		out[i] = Player{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1)}
	}
	return out
}

// harness drives one engine on a manual clock. Timers are delivered straight
// back to the engine, as the room actor would.
type harness struct {
	t      *testing.T
	clock  *sched.ManualClock
	engine Engine
	events []event.Event
}

func newHarness(t *testing.T, kind domain.GameKind, players int, s Settings) *harness {
	t.Helper()
	h := &harness{t: t, clock: sched.NewManualClock(time.Unix(0, 0))}
	env := Env{
		Clock:    h.clock,
		Dispatch: func(id sched.ID) { h.engine.HandleTimer(id) },
		Rand:     rand.New(rand.NewSource(7)),
		Content:  content.MustLoad(),
	}
	e, err := NewFactory().CreateGame(kind, testPlayers(players), s, env)
	require.NoError(t, err)
	h.engine = e
	return h
}

func (h *harness) start() *harness {
	h.engine.Start()
	h.flush()
	return h
}

// flush moves pending engine events into h.events and returns only the new ones.
func (h *harness) flush() []event.Event {
	fresh := h.engine.Drain()
	h.events = append(h.events, fresh...)
	return fresh
}

func (h *harness) act(playerID, action string, payload any) []event.Event {
	h.t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(h.t, err)
		raw = b
	}
	h.engine.HandleAction(playerID, action, raw)
	return h.flush()
}

func (h *harness) advance(d time.Duration) []event.Event {
	h.clock.Advance(d)
	return h.flush()
}

func lastEvent(events []event.Event, name string) (event.Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Name == name {
			return events[i], true
		}
	}
	return event.Event{}, false
}

func eventNames(events []event.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func payloadMap(t *testing.T, e event.Event) map[string]any {
	t.Helper()
	m, ok := e.Payload.(map[string]any)
	require.True(t, ok, "payload of %s is %T", e.Name, e.Payload)
	return m
}

var allKinds = []struct {
	kind    domain.GameKind
	players int
}{
	{domain.KindEitherOr, 3},
	{domain.KindQuiz, 2},
	{domain.KindColorRush, 3},
	{domain.KindWordChain, 4},
	{domain.KindSpinGuess, 3},
	{domain.KindRPS, 4},
	{domain.KindTicTacToe, 4},
}

func TestStartEntersRoundOne(t *testing.T) {
	for _, tc := range allKinds {
		t.Run(string(tc.kind), func(t *testing.T) {
			h := newHarness(t, tc.kind, tc.players, Settings{})
			st := h.engine.State()
			assert.Equal(t, PhasePreparation, st.Phase)
			assert.Equal(t, 0, st.Round)

			h.start()
			st = h.engine.State()
			assert.Equal(t, 1, st.Round)
			assert.Equal(t, PhaseActive, st.Phase)
			assert.Equal(t, tc.kind, st.Kind)
			assert.False(t, h.engine.Finished())
		})
	}
}

func TestInvalidActionsLeaveStateUnchanged(t *testing.T) {
	for _, tc := range allKinds {
		t.Run(string(tc.kind), func(t *testing.T) {
			h := newHarness(t, tc.kind, tc.players, Settings{})
			h.start()
			before := h.engine.State()

			assert.Empty(t, h.act("ghost", "answer", map[string]any{"choice": "a"}))
			assert.Empty(t, h.act("ghost", "submit_word", map[string]any{"word": "anything"}))
			assert.Empty(t, h.act("ghost", "choose", map[string]any{"choice": "rock"}))
			assert.Empty(t, h.act("p1", "no_such_action", map[string]any{"x": 1}))
			h.engine.HandleAction("p1", "answer", json.RawMessage(`{not json`))
			assert.Empty(t, h.flush())

			assert.Equal(t, before, h.engine.State())
		})
	}
}

func TestDestroyedEngineStaysSilent(t *testing.T) {
	for _, tc := range allKinds {
		t.Run(string(tc.kind), func(t *testing.T) {
			h := newHarness(t, tc.kind, tc.players, Settings{})
			h.start()
			require.Positive(t, h.clock.Pending())

			h.engine.Destroy()
			h.engine.Destroy()
			assert.Equal(t, 0, h.clock.Pending())
			assert.Empty(t, h.advance(10*time.Minute))
			assert.Empty(t, h.act("p1", "answer", map[string]any{"choice": "a"}))
			assert.False(t, h.engine.HandleTimer(sched.ID(1)))
		})
	}
}

func TestEndGameTieGoesToEarliestPlayer(t *testing.T) {
	h := newHarness(t, domain.KindEitherOr, 2, Settings{Rounds: 1, TimePerRound: 10 * time.Second}).start()
	h.act("p2", "answer", map[string]any{"choice": "a"})
	h.act("p1", "answer", map[string]any{"choice": "b"})
	h.advance(RevealPause)

	require.True(t, h.engine.Finished())
	assert.Equal(t, map[string]int{"p1": TiePoints, "p2": TiePoints}, h.engine.Scores())
	assert.Equal(t, "p1", h.engine.Winner())

	over, ok := lastEvent(h.events, "game_over")
	require.True(t, ok)
	assert.Equal(t, "p1", payloadMap(t, over)["winner"])
}

func TestGameEndsAfterConfiguredRounds(t *testing.T) {
	h := newHarness(t, domain.KindQuiz, 2, Settings{Rounds: 2, TimePerRound: 5 * time.Second}).start()
	h.advance(5 * time.Second)
	assert.Equal(t, PhaseReveal, h.engine.State().Phase)
	h.advance(RevealPause)
	assert.Equal(t, 2, h.engine.State().Round)
	h.advance(5*time.Second + RevealPause)

	assert.True(t, h.engine.Finished())
	assert.Equal(t, PhaseEnd, h.engine.State().Phase)
	assert.Equal(t, 2, h.engine.State().Round)
	_, ok := lastEvent(h.events, "game_over")
	assert.True(t, ok)
	assert.Equal(t, 0, h.clock.Pending())
}

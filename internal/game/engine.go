package game

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/phash/playtogether-sub000/internal/content"
	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/event"
	"github.com/phash/playtogether-sub000/internal/sched"
)

type Phase string

const (
	PhasePreparation Phase = "preparation"
	PhaseActive      Phase = "active"
	PhaseReveal      Phase = "reveal"
	PhaseEnd         Phase = "end"
)

// RevealPause is how long results stay on screen between rounds.
const RevealPause = 3 * time.Second

// Engine is one running mini-game for one room. Implementations are not safe
// for concurrent use; the room actor is the only caller.
type Engine interface {
	Kind() domain.GameKind
	Start()
	// HandleAction ignores anything not valid for the current phase.
	HandleAction(playerID, action string, data json.RawMessage)
	// HandleTimer reports whether id belonged to this engine.
	HandleTimer(id sched.ID) bool
	PlayerLeft(playerID string)
	State() State
	Drain() []event.Event
	Scores() map[string]int
	Winner() string
	Finished() bool
	Destroy()
}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Settings override the catalog defaults. Zero values keep the default.
type Settings struct {
	Rounds       int
	TimePerRound time.Duration
}

// Env carries what an engine needs from outside.
type Env struct {
	Clock    sched.Clock
	Dispatch sched.Dispatch
	Rand     *rand.Rand
	Content  *content.Catalog
}

// State is a snapshot safe to broadcast to every player in the room.
type State struct {
	Kind        domain.GameKind `json:"gameKind"`
	Phase       Phase           `json:"phase"`
	Round       int             `json:"round"`
	TotalRounds int             `json:"totalRounds"`
	TimeLeft    int             `json:"timeLeft"`
	Players     []Player        `json:"players"`
	Scores      map[string]int  `json:"scores"`
	Data        any             `json:"data,omitempty"`
}

// Base holds the lifecycle shared by every engine.
type Base struct {
	kind      domain.GameKind
	players   []Player
	present   map[string]bool
	scores    map[string]int
	phase     Phase
	round     int
	total     int
	limit     time.Duration
	timers    *sched.Set
	countdown *sched.Countdown
	out       event.Outbox
	rng       *rand.Rand
	content   *content.Catalog
	winner    string
	destroyed bool
}

func newBase(kind domain.GameKind, players []Player, s Settings, env Env) Base {
	rng := env.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	catalog := env.Content
	if catalog == nil {
		catalog = content.MustLoad()
	}
	b := Base{
		kind:    kind,
		players: append([]Player(nil), players...),
		present: make(map[string]bool, len(players)),
		scores:  make(map[string]int, len(players)),
		phase:   PhasePreparation,
		total:   s.Rounds,
		limit:   s.TimePerRound,
		timers:  sched.NewSet(env.Clock, env.Dispatch),
		rng:     rng,
		content: catalog,
	}
	for _, p := range players {
		b.present[p.ID] = true
		b.scores[p.ID] = 0
	}
	return b
}

func (b *Base) Kind() domain.GameKind { return b.kind }

func (b *Base) HandleTimer(id sched.ID) bool {
	if b.destroyed {
		return false
	}
	return b.timers.Fire(id)
}

func (b *Base) Drain() []event.Event { return b.out.Drain() }

func (b *Base) Scores() map[string]int {
	out := make(map[string]int, len(b.scores))
	for id, s := range b.scores {
		out[id] = s
	}
	return out
}

func (b *Base) Winner() string { return b.winner }

func (b *Base) Finished() bool { return b.phase == PhaseEnd }

// Destroy cancels every timer and silences the engine. Safe to call twice.
func (b *Base) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.timers.Close()
	b.out.Close()
}

// live reports whether the engine still accepts input.
func (b *Base) live() bool {
	return !b.destroyed && b.phase != PhaseEnd
}

func (b *Base) isPresent(playerID string) bool { return b.present[playerID] }

// markLeft returns false for unknown or already departed players.
func (b *Base) markLeft(playerID string) bool {
	if !b.present[playerID] {
		return false
	}
	b.present[playerID] = false
	return true
}

// activePlayers lists present players in join order.
func (b *Base) activePlayers() []Player {
	out := make([]Player, 0, len(b.players))
	for _, p := range b.players {
		if b.present[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func (b *Base) addScore(playerID string, points int) {
	if points <= 0 {
		return
	}
	if _, ok := b.scores[playerID]; !ok {
		return
	}
	b.scores[playerID] += points
}

// enterPhase is the only way to change phase. Every timer armed for the
// previous phase is cancelled first.
func (b *Base) enterPhase(p Phase) {
	b.timers.Clear()
	b.countdown = nil
	b.phase = p
}

func (b *Base) after(d time.Duration, fn func()) {
	b.timers.After(d, fn)
}

// startCountdown arms a ticking deadline that emits timer_tick every second.
func (b *Base) startCountdown(d time.Duration, expire func()) {
	secs := int(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	b.countdown = b.timers.Countdown(secs, func(left int) {
		b.out.Emit("timer_tick", map[string]any{"seconds": left})
	}, expire)
}

func (b *Base) timeLeft() int { return b.countdown.Left() }

// nextRound advances the round counter and runs start, or ends the game once
// the configured rounds are used up.
func (b *Base) nextRound(start func()) {
	if !b.live() {
		return
	}
	b.round++
	if b.total > 0 && b.round > b.total {
		b.round = b.total
		b.endGame()
		return
	}
	start()
}

// endGame freezes the engine and announces the final scores. The winner has
// the strictly highest score; ties go to the earliest joined player.
func (b *Base) endGame() {
	if b.phase == PhaseEnd || b.destroyed {
		return
	}
	b.enterPhase(PhaseEnd)
	best := -1
	for _, p := range b.players {
		if s := b.scores[p.ID]; s > best {
			best = s
			b.winner = p.ID
		}
	}
	b.out.Emit("game_over", map[string]any{
		"scores": b.Scores(),
		"winner": b.winner,
	})
}

func (b *Base) snapshot(data any) State {
	return State{
		Kind:        b.kind,
		Phase:       b.phase,
		Round:       b.round,
		TotalRounds: b.total,
		TimeLeft:    b.timeLeft(),
		Players:     b.activePlayers(),
		Scores:      b.Scores(),
		Data:        data,
	}
}

// decode unmarshals an action payload. A nil payload decodes to the zero value.
func decode(data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return true
	}
	return json.Unmarshal(data, v) == nil
}

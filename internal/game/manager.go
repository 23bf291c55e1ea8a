package game

import (
	"encoding/json"
	"sync"

	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/logger"
	"github.com/phash/playtogether-sub000/internal/metrics"
	"github.com/phash/playtogether-sub000/internal/sched"
)

// Manager keeps at most one engine per room.
type Manager struct {
	mu      sync.Mutex
	factory *Factory
	engines map[string]Engine
}

func NewManager(factory *Factory) *Manager {
	if factory == nil {
		factory = NewFactory()
	}
	return &Manager{
		factory: factory,
		engines: make(map[string]Engine),
	}
}

func (m *Manager) CreateGame(roomID string, kind domain.GameKind, players []Player, env Env) Engine {
	return m.CreateGameWithSettings(roomID, kind, players, Settings{}, env)
}

// CreateGameWithSettings replaces the room's engine. The previous engine is
// destroyed before the new one exists. It returns nil for a kind with no
// engine.
func (m *Manager) CreateGameWithSettings(roomID string, kind domain.GameKind, players []Player, s Settings, env Env) Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.engines[roomID]; ok {
		old.Destroy()
		delete(m.engines, roomID)
	}
	e, err := m.factory.CreateGame(kind, players, s, env)
	if err != nil {
		logger.Warn("game not created", "room", roomID, "kind", kind, "error", err)
		metrics.EnginesActive.Set(float64(len(m.engines)))
		return nil
	}
	m.engines[roomID] = e
	metrics.EnginesActive.Set(float64(len(m.engines)))
	return e
}

func (m *Manager) Get(roomID string) (Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[roomID]
	return e, ok
}

// HandleAction forwards to the room's engine and reports whether one exists.
func (m *Manager) HandleAction(roomID, playerID, action string, data json.RawMessage) bool {
	e, ok := m.Get(roomID)
	if !ok {
		logger.Debug("game action without engine", "room", roomID, "action", action)
		return false
	}
	metrics.GameActions.WithLabelValues(string(e.Kind())).Inc()
	e.HandleAction(playerID, action, data)
	return true
}

// HandleTimer reports whether the room's engine owned the timer.
func (m *Manager) HandleTimer(roomID string, id sched.ID) bool {
	e, ok := m.Get(roomID)
	if !ok {
		return false
	}
	return e.HandleTimer(id)
}

func (m *Manager) PlayerLeft(roomID, playerID string) bool {
	e, ok := m.Get(roomID)
	if !ok {
		return false
	}
	e.PlayerLeft(playerID)
	return true
}

// EndGame destroys and forgets the room's engine. Missing rooms are fine.
func (m *Manager) EndGame(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[roomID]; ok {
		e.Destroy()
		delete(m.engines, roomID)
	}
	metrics.EnginesActive.Set(float64(len(m.engines)))
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

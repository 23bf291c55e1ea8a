package room

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/metrics"
)

const (
	// CodeChars leaves out characters that are easy to misread.
	CodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength = 6

	codeAttempts      = 100
	maxNameLength     = 20
	maxPlaylistLength = 20
	hardMaxPlayers    = 16
)

// GenerateCode returns a random room code.
func GenerateCode() string {
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(CodeChars))))
		if err != nil {
			panic(fmt.Sprintf("room: crypto/rand failed: %v", err))
		}
		code[i] = CodeChars[n.Int64()]
	}
	return string(code)
}

// Manager owns every open room. All methods return copies.
type Manager struct {
	mu         sync.Mutex
	rooms      map[string]*Room
	codes      map[string]string
	now        func() time.Time
	newCode    func() string
	maxPlayers int
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithCodeGenerator(gen func() string) Option {
	return func(m *Manager) { m.newCode = gen }
}

// WithMaxPlayers sets the capacity of rooms created without one.
func WithMaxPlayers(n int) Option {
	return func(m *Manager) { m.maxPlayers = n }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rooms:      make(map[string]*Room),
		codes:      make(map[string]string),
		now:        time.Now,
		newCode:    GenerateCode,
		maxPlayers: 8,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func (m *Manager) uniqueCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := m.newCode()
		if _, taken := m.codes[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func (m *Manager) clampCapacity(n int) int {
	if n <= 0 {
		n = m.maxPlayers
	}
	if n < 1 {
		n = 1
	}
	if n > hardMaxPlayers {
		n = hardMaxPlayers
	}
	return n
}

// CreateRoom opens a room with the caller as host. An empty kind picks the
// first catalog game.
func (m *Manager) CreateRoom(hostName string, maxPlayers int, kind domain.GameKind) (Room, Player, error) {
	name, err := cleanName(hostName)
	if err != nil {
		return Room{}, Player{}, err
	}
	if kind == "" {
		kind = domain.Games[0].Kind
	}
	if _, ok := domain.LookupGame(kind); !ok {
		return Room{}, Player{}, fmt.Errorf("%w: %s", ErrUnsupportedGame, kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code, err := m.uniqueCode()
	if err != nil {
		return Room{}, Player{}, err
	}
	now := m.now()
	host := Player{
		ID:        uuid.NewString(),
		Name:      name,
		Connected: true,
		IsHost:    true,
		JoinedAt:  now,
	}
	r := &Room{
		ID:           uuid.NewString(),
		Code:         code,
		HostID:       host.ID,
		Status:       domain.RoomWaiting,
		MaxPlayers:   m.clampCapacity(maxPlayers),
		Players:      []Player{host},
		Settings:     Settings{GameKind: kind},
		CreatedAt:    now,
		LastActivity: now,
	}
	m.rooms[r.ID] = r
	m.codes[code] = r.ID
	metrics.RoomsActive.Set(float64(len(m.rooms)))
	return r.clone(), host, nil
}

func (m *Manager) lookupCode(code string) (*Room, bool) {
	id, ok := m.codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[id]
	return r, ok
}

// JoinRoom adds a new player. Names are unique case-insensitively among
// everyone in the room, connected or not.
func (m *Manager) JoinRoom(code, playerName string) (Room, Player, error) {
	name, err := cleanName(playerName)
	if err != nil {
		return Room{}, Player{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.lookupCode(code)
	if !ok {
		return Room{}, Player{}, ErrRoomNotFound
	}
	if r.Status == domain.RoomStarting || r.Status == domain.RoomPlaying {
		return Room{}, Player{}, ErrGameInProgress
	}
	if len(r.Players) >= r.Capacity() {
		return Room{}, Player{}, ErrRoomFull
	}
	if r.byName(name) >= 0 {
		return Room{}, Player{}, ErrNameTaken
	}
	p := Player{
		ID:        uuid.NewString(),
		Name:      name,
		Connected: true,
		JoinedAt:  m.now(),
	}
	r.Players = append(r.Players, p)
	r.LastActivity = p.JoinedAt
	return r.clone(), p, nil
}

// Reconnect claims an existing seat by name and marks it connected.
func (m *Manager) Reconnect(code, playerName string) (Room, Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.lookupCode(code)
	if !ok {
		return Room{}, Player{}, ErrRoomNotFound
	}
	i := r.byName(strings.TrimSpace(playerName))
	if i < 0 {
		return Room{}, Player{}, ErrPlayerNotFound
	}
	r.Players[i].Connected = true
	r.LastActivity = m.now()
	return r.clone(), r.Players[i], nil
}

func (m *Manager) SetConnected(roomID, playerID string, connected bool) (Room, error) {
	return m.update(roomID, func(r *Room) error {
		i := r.index(playerID)
		if i < 0 {
			return ErrPlayerNotFound
		}
		r.Players[i].Connected = connected
		return nil
	})
}

// SetAccount links a seat to a signed-in account so the session can be
// credited to it.
func (m *Manager) SetAccount(roomID, playerID string, accountID int64) (Room, error) {
	return m.update(roomID, func(r *Room) error {
		i := r.index(playerID)
		if i < 0 {
			return ErrPlayerNotFound
		}
		id := accountID
		r.Players[i].AccountID = &id
		return nil
	})
}

// RemovePlayer drops a player. When the host leaves, the longest-tenured
// remaining player takes over. The room is deleted once empty.
func (m *Manager) RemovePlayer(roomID, playerID string) (r Room, newHostID string, deleted bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return Room{}, "", false, ErrRoomNotFound
	}
	i := room.index(playerID)
	if i < 0 {
		return Room{}, "", false, ErrPlayerNotFound
	}
	wasHost := room.Players[i].IsHost
	room.Players = append(room.Players[:i], room.Players[i+1:]...)
	room.LastActivity = m.now()

	if len(room.Players) == 0 {
		m.delete(room)
		return room.clone(), "", true, nil
	}
	if wasHost {
		next := 0
		for j, p := range room.Players {
			if p.JoinedAt.Before(room.Players[next].JoinedAt) {
				next = j
			}
		}
		room.Players[next].IsHost = true
		room.HostID = room.Players[next].ID
		newHostID = room.HostID
	}
	return room.clone(), newHostID, false, nil
}

func (m *Manager) delete(r *Room) {
	delete(m.rooms, r.ID)
	delete(m.codes, r.Code)
	metrics.RoomsActive.Set(float64(len(m.rooms)))
}

// Delete closes a room regardless of who is in it.
func (m *Manager) Delete(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		m.delete(r)
	}
}

func (m *Manager) SetReady(roomID, playerID string, ready bool) (Room, error) {
	return m.update(roomID, func(r *Room) error {
		i := r.index(playerID)
		if i < 0 {
			return ErrPlayerNotFound
		}
		r.Players[i].Ready = ready
		return nil
	})
}

// SettingsPatch holds optional updates. Nil fields are left alone.
type SettingsPatch struct {
	MaxPlayers   *int             `json:"maxPlayers"`
	GameKind     *domain.GameKind `json:"gameKind"`
	Rounds       *int             `json:"rounds"`
	TimePerRound *int             `json:"timePerRound"`
}

func (m *Manager) UpdateSettings(roomID, playerID string, patch SettingsPatch) (Room, error) {
	return m.update(roomID, func(r *Room) error {
		if r.HostID != playerID {
			return ErrNotHost
		}
		if !r.Idle() {
			return ErrGameInProgress
		}
		next := r.Settings
		if patch.GameKind != nil {
			if _, ok := domain.LookupGame(*patch.GameKind); !ok {
				return fmt.Errorf("%w: %s", ErrUnsupportedGame, *patch.GameKind)
			}
			next.GameKind = *patch.GameKind
		}
		if patch.Rounds != nil {
			if *patch.Rounds < 0 || *patch.Rounds > 50 {
				return ErrInvalidSettings
			}
			next.Rounds = *patch.Rounds
		}
		if patch.TimePerRound != nil {
			if *patch.TimePerRound < 0 || *patch.TimePerRound > 300 {
				return ErrInvalidSettings
			}
			next.TimePerRound = *patch.TimePerRound
		}
		if patch.MaxPlayers != nil {
			n := *patch.MaxPlayers
			if n < len(r.Players) || n < 1 || n > hardMaxPlayers {
				return ErrInvalidSettings
			}
			r.MaxPlayers = n
		}
		r.Settings = next
		return nil
	})
}

// UpdatePlaylist replaces the playlist and rewinds it. Only the host may do
// this, and only between sessions.
func (m *Manager) UpdatePlaylist(roomID, playerID string, entries []domain.PlaylistEntry) (Room, error) {
	return m.update(roomID, func(r *Room) error {
		if r.HostID != playerID {
			return ErrNotHost
		}
		if !r.Idle() {
			return ErrGameInProgress
		}
		if len(entries) > maxPlaylistLength {
			return ErrInvalidPlaylist
		}
		resolved := make([]domain.PlaylistEntry, 0, len(entries))
		for _, e := range entries {
			full, ok := e.Resolve()
			if !ok {
				return fmt.Errorf("%w: unknown game %q", ErrInvalidPlaylist, e.Kind)
			}
			resolved = append(resolved, full)
		}
		r.Playlist = resolved
		r.PlaylistIndex = 0
		return nil
	})
}

// CheckStart validates a start request from playerID and returns the kind
// that would be played.
func (m *Manager) CheckStart(roomID, playerID string) (Room, domain.GameKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return Room{}, "", ErrRoomNotFound
	}
	if r.HostID != playerID {
		return Room{}, "", ErrNotHost
	}
	if !r.Idle() {
		return Room{}, "", ErrGameInProgress
	}
	// A session always starts from the top of the playlist.
	probe := *r
	probe.PlaylistIndex = 0
	kind := probe.CurrentEntry().Kind
	info, ok := domain.LookupGame(kind)
	if !ok {
		return Room{}, "", fmt.Errorf("%w: %s", ErrUnsupportedGame, kind)
	}
	connected := len(r.Connected())
	if connected < info.MinPlayers {
		return Room{}, "", fmt.Errorf("%w: %s needs %d", ErrNotEnoughPlayers, info.Name, info.MinPlayers)
	}
	if connected > info.MaxPlayers {
		return Room{}, "", ErrRoomFull
	}
	return r.clone(), kind, nil
}

// BeginSession rewinds the playlist and moves the room to starting.
func (m *Manager) BeginSession(roomID string) (Room, error) {
	return m.update(roomID, func(r *Room) error {
		r.PlaylistIndex = 0
		r.Status = domain.RoomStarting
		for i := range r.Players {
			r.Players[i].Ready = false
		}
		return nil
	})
}

func (m *Manager) SetStatus(roomID string, status domain.RoomStatus) (Room, error) {
	return m.update(roomID, func(r *Room) error {
		r.Status = status
		return nil
	})
}

// AdvancePlaylist moves past the entry just played and reports whether
// another playlist entry remains.
func (m *Manager) AdvancePlaylist(roomID string) (Room, bool, error) {
	var more bool
	r, err := m.update(roomID, func(r *Room) error {
		if r.PlaylistIndex < len(r.Playlist) {
			r.PlaylistIndex++
		}
		more = r.PlaylistIndex < len(r.Playlist)
		return nil
	})
	return r, more, err
}

// SetGameKind picks the game played once the playlist is used up.
func (m *Manager) SetGameKind(roomID string, kind domain.GameKind) (Room, error) {
	return m.update(roomID, func(r *Room) error {
		if _, ok := domain.LookupGame(kind); !ok {
			return ErrUnsupportedGame
		}
		r.Settings.GameKind = kind
		r.Settings.Rounds = 0
		r.Settings.TimePerRound = 0
		return nil
	})
}

func (m *Manager) update(roomID string, fn func(r *Room) error) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if err := fn(r); err != nil {
		return Room{}, err
	}
	r.LastActivity = m.now()
	return r.clone(), nil
}

func (m *Manager) Get(roomID string) (Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return r.clone(), true
}

func (m *Manager) GetByCode(code string) (Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.lookupCode(code)
	if !ok {
		return Room{}, false
	}
	return r.clone(), true
}

// IdleRooms lists rooms between sessions with no activity for longer than d.
func (m *Manager) IdleRooms(d time.Duration) []Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-d)
	var out []Room
	for _, r := range m.rooms {
		if r.Idle() && r.LastActivity.Before(cutoff) {
			out = append(out, r.clone())
		}
	}
	return out
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

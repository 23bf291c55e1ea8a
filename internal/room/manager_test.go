package room

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phash/playtogether-sub000/internal/domain"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) tick() { c.now = c.now.Add(time.Second) }

func newTestManager(opts ...Option) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewManager(append([]Option{WithClock(func() time.Time {
		clock.tick()
		return clock.Now()
	})}, opts...)...)
	return m, clock
}

func TestGenerateCodeAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GenerateCode()
		require.Len(t, code, CodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(CodeChars, c), "unexpected %q in %s", c, code)
		}
	}
}

func TestCreateAndJoin(t *testing.T) {
	m, _ := newTestManager()
	r, host, err := m.CreateRoom("  Ada ", 4, "")
	require.NoError(t, err)
	assert.Equal(t, "Ada", host.Name)
	assert.True(t, host.IsHost)
	assert.Equal(t, host.ID, r.HostID)
	assert.Equal(t, domain.RoomWaiting, r.Status)
	assert.Equal(t, domain.Games[0].Kind, r.Settings.GameKind)

	r, bob, err := m.JoinRoom(strings.ToLower(r.Code), "Bob")
	require.NoError(t, err)
	assert.False(t, bob.IsHost)
	require.Len(t, r.Players, 2)
	assert.Equal(t, []string{host.ID, bob.ID}, []string{r.Players[0].ID, r.Players[1].ID})
	assert.Equal(t, 1, m.Count())
}

func TestJoinRules(t *testing.T) {
	m, _ := newTestManager()
	r, _, err := m.CreateRoom("Ada", 2, domain.KindQuiz)
	require.NoError(t, err)

	_, _, err = m.JoinRoom("ZZZZZZ", "Bob")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, _, err = m.JoinRoom(r.Code, "ADA")
	assert.ErrorIs(t, err, ErrNameTaken)

	_, _, err = m.JoinRoom(r.Code, "   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, _, err = m.JoinRoom(r.Code, "Bob")
	require.NoError(t, err)
	_, _, err = m.JoinRoom(r.Code, "Cy")
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinRejectedWhileStartingOrPlaying(t *testing.T) {
	m, _ := newTestManager()
	r, _, _ := m.CreateRoom("Ada", 8, "")
	for _, st := range []domain.RoomStatus{domain.RoomStarting, domain.RoomPlaying} {
		_, err := m.SetStatus(r.ID, st)
		require.NoError(t, err)
		_, _, err = m.JoinRoom(r.Code, "Bob")
		assert.ErrorIs(t, err, ErrGameInProgress, st)
	}
	_, err := m.SetStatus(r.ID, domain.RoomVoting)
	require.NoError(t, err)
	_, _, err = m.JoinRoom(r.Code, "Bob")
	assert.NoError(t, err)
}

func TestCapacityNarrowedByGame(t *testing.T) {
	m, _ := newTestManager()
	r, _, _ := m.CreateRoom("Ada", 16, domain.KindSpinGuess)
	assert.Equal(t, 6, r.Capacity())
}

func TestDisconnectedPlayerKeepsName(t *testing.T) {
	m, _ := newTestManager()
	r, _, _ := m.CreateRoom("Ada", 8, "")
	_, bob, _ := m.JoinRoom(r.Code, "Bob")

	r, err := m.SetConnected(r.ID, bob.ID, false)
	require.NoError(t, err)
	assert.Len(t, r.Connected(), 1)

	_, _, err = m.JoinRoom(r.Code, "bob")
	assert.ErrorIs(t, err, ErrNameTaken)

	r, again, err := m.Reconnect(r.Code, "BOB")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, again.ID)
	assert.True(t, again.Connected)
	assert.Len(t, r.Players, 2)

	_, _, err = m.Reconnect(r.Code, "Nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestHostReassignmentAndDeletion(t *testing.T) {
	m, _ := newTestManager()
	r, host, _ := m.CreateRoom("Ada", 8, "")
	_, bob, _ := m.JoinRoom(r.Code, "Bob")
	_, cy, _ := m.JoinRoom(r.Code, "Cy")

	r, newHost, deleted, err := m.RemovePlayer(r.ID, host.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, bob.ID, newHost)
	assert.Equal(t, bob.ID, r.HostID)
	p, _ := r.Player(bob.ID)
	assert.True(t, p.IsHost)

	_, newHost, _, err = m.RemovePlayer(r.ID, cy.ID)
	require.NoError(t, err)
	assert.Empty(t, newHost, "host unchanged")

	_, _, deleted, err = m.RemovePlayer(r.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 0, m.Count())
	_, ok := m.GetByCode(r.Code)
	assert.False(t, ok)
}

func TestCodeExhaustion(t *testing.T) {
	m, _ := newTestManager(WithCodeGenerator(func() string { return "AAAAAA" }))
	_, _, err := m.CreateRoom("Ada", 8, "")
	require.NoError(t, err)
	_, _, err = m.CreateRoom("Bob", 8, "")
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, 1, m.Count())
}

func TestHostOnlyOperations(t *testing.T) {
	m, _ := newTestManager()
	r, host, _ := m.CreateRoom("Ada", 8, "")
	_, bob, _ := m.JoinRoom(r.Code, "Bob")

	kind := domain.KindQuiz
	_, err := m.UpdateSettings(r.ID, bob.ID, SettingsPatch{GameKind: &kind})
	assert.ErrorIs(t, err, ErrNotHost)
	_, err = m.UpdatePlaylist(r.ID, bob.ID, nil)
	assert.ErrorIs(t, err, ErrNotHost)
	_, _, err = m.CheckStart(r.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotHost)

	r, err = m.UpdateSettings(r.ID, host.ID, SettingsPatch{GameKind: &kind})
	require.NoError(t, err)
	assert.Equal(t, domain.KindQuiz, r.Settings.GameKind)

	bogus := domain.GameKind("chess")
	_, err = m.UpdateSettings(r.ID, host.ID, SettingsPatch{GameKind: &bogus})
	assert.ErrorIs(t, err, ErrUnsupportedGame)

	one := 1
	_, err = m.UpdateSettings(r.ID, host.ID, SettingsPatch{MaxPlayers: &one})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestPlaylistRules(t *testing.T) {
	m, _ := newTestManager()
	r, host, _ := m.CreateRoom("Ada", 8, "")

	_, err := m.UpdatePlaylist(r.ID, host.ID, []domain.PlaylistEntry{{Kind: "chess"}})
	assert.ErrorIs(t, err, ErrInvalidPlaylist)

	r, err = m.UpdatePlaylist(r.ID, host.ID, []domain.PlaylistEntry{
		{Kind: domain.KindQuiz, Rounds: 3},
		{Kind: domain.KindWordChain, Seconds: 12},
	})
	require.NoError(t, err)
	require.Len(t, r.Playlist, 2)
	assert.Equal(t, 3, r.Playlist[0].Rounds)
	assert.Equal(t, 12*time.Second, r.Playlist[1].TimePerRound)
	assert.Equal(t, domain.KindQuiz, r.CurrentEntry().Kind)

	r, more, err := m.AdvancePlaylist(r.ID)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, domain.KindWordChain, r.CurrentEntry().Kind)
	r, more, _ = m.AdvancePlaylist(r.ID)
	assert.False(t, more)
	assert.Equal(t, r.Settings.GameKind, r.CurrentEntry().Kind)

	_, err = m.SetStatus(r.ID, domain.RoomPlaying)
	require.NoError(t, err)
	_, err = m.UpdatePlaylist(r.ID, host.ID, nil)
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestCheckStartCountsConnectedPlayers(t *testing.T) {
	m, _ := newTestManager()
	r, host, _ := m.CreateRoom("Ada", 8, domain.KindEitherOr)

	_, _, err := m.CheckStart(r.ID, host.ID)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, bob, _ := m.JoinRoom(r.Code, "Bob")
	_, kind, err := m.CheckStart(r.ID, host.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindEitherOr, kind)

	_, _ = m.SetConnected(r.ID, bob.ID, false)
	_, _, err = m.CheckStart(r.ID, host.ID)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestReturnedRoomsAreCopies(t *testing.T) {
	m, _ := newTestManager()
	r, _, _ := m.CreateRoom("Ada", 8, "")
	r.Players[0].Name = "Mallory"
	r.Playlist = append(r.Playlist, domain.PlaylistEntry{Kind: domain.KindQuiz})

	fresh, ok := m.Get(r.ID)
	require.True(t, ok)
	assert.Equal(t, "Ada", fresh.Players[0].Name)
	assert.Empty(t, fresh.Playlist)
}

func TestIdleRooms(t *testing.T) {
	m, clock := newTestManager()
	idle, _, _ := m.CreateRoom("Ada", 8, "")
	busy, _, _ := m.CreateRoom("Bob", 8, "")
	_, _ = m.SetStatus(busy.ID, domain.RoomPlaying)

	clock.now = clock.now.Add(2 * time.Hour)
	rooms := m.IdleRooms(time.Hour)
	require.Len(t, rooms, 1)
	assert.Equal(t, idle.ID, rooms[0].ID)

	m.Delete(idle.ID)
	assert.Equal(t, 1, m.Count())
}

func TestSetAccount(t *testing.T) {
	m, _ := newTestManager()
	r, host, _ := m.CreateRoom("Ada", 8, "")

	r, err := m.SetAccount(r.ID, host.ID, 42)
	require.NoError(t, err)
	p, _ := r.Player(host.ID)
	require.NotNil(t, p.AccountID)
	assert.Equal(t, int64(42), *p.AccountID)

	_, err = m.SetAccount(r.ID, "ghost", 1)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

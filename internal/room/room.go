package room

import (
	"strings"
	"time"

	"github.com/phash/playtogether-sub000/internal/domain"
)

type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AccountID *int64    `json:"-"`
	Connected bool      `json:"connected"`
	IsHost    bool      `json:"isHost"`
	Ready     bool      `json:"ready"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Settings pick the game played when the playlist is empty or used up.
type Settings struct {
	GameKind     domain.GameKind `json:"gameKind"`
	Rounds       int             `json:"rounds,omitempty"`
	TimePerRound int             `json:"timePerRound,omitempty"`
}

type Room struct {
	ID            string                 `json:"id"`
	Code          string                 `json:"code"`
	HostID        string                 `json:"hostId"`
	Status        domain.RoomStatus      `json:"status"`
	MaxPlayers    int                    `json:"maxPlayers"`
	Players       []Player               `json:"players"`
	Playlist      []domain.PlaylistEntry `json:"playlist"`
	PlaylistIndex int                    `json:"playlistIndex"`
	Settings      Settings               `json:"settings"`
	CreatedAt     time.Time              `json:"createdAt"`
	LastActivity  time.Time              `json:"-"`
}

func (r *Room) clone() Room {
	c := *r
	c.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		if p.AccountID != nil {
			id := *p.AccountID
			p.AccountID = &id
		}
		c.Players[i] = p
	}
	c.Playlist = append([]domain.PlaylistEntry(nil), r.Playlist...)
	return c
}

// Player looks a player up by id.
func (r Room) Player(id string) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

func (r *Room) index(id string) int {
	for i, p := range r.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) byName(name string) int {
	for i, p := range r.Players {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// Connected returns connected players in join order.
func (r Room) Connected() []Player {
	var out []Player
	for _, p := range r.Players {
		if p.Connected {
			out = append(out, p)
		}
	}
	return out
}

// CurrentEntry is the game the room plays next: the playlist entry at the
// index, or the room settings once the playlist is empty or used up.
func (r Room) CurrentEntry() domain.PlaylistEntry {
	if r.PlaylistIndex < len(r.Playlist) {
		return r.Playlist[r.PlaylistIndex]
	}
	e := domain.PlaylistEntry{
		Kind:    r.Settings.GameKind,
		Rounds:  r.Settings.Rounds,
		Seconds: r.Settings.TimePerRound,
	}
	if resolved, ok := e.Resolve(); ok {
		return resolved
	}
	return e
}

// Capacity is the room limit narrowed by the next game's own maximum.
func (r Room) Capacity() int {
	limit := r.MaxPlayers
	if info, ok := domain.LookupGame(r.CurrentEntry().Kind); ok && info.MaxPlayers < limit {
		limit = info.MaxPlayers
	}
	return limit
}

// Idle reports whether the room is between sessions.
func (r Room) Idle() bool {
	return r.Status == domain.RoomWaiting || r.Status == domain.RoomFinished
}

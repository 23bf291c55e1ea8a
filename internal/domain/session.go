package domain

import "time"

// SessionPlayer - final standing of one participant
type SessionPlayer struct {
	Name      string `db:"name" json:"name"`
	AccountID *int64 `db:"account_id" json:"account_id,omitempty"`
	Score     int    `db:"score" json:"score"`
	Rank      int    `db:"rank" json:"rank"`
}

// SessionResult - record written once a session ends
type SessionResult struct {
	ID          int64           `db:"id" json:"id"`
	RoomCode    string          `db:"room_code" json:"room_code"`
	GamesPlayed int             `db:"games_played" json:"games_played"`
	StartedAt   time.Time       `db:"started_at" json:"started_at"`
	EndedAt     time.Time       `db:"ended_at" json:"ended_at"`
	Players     []SessionPlayer `json:"players"`
}

// LeaderboardEntry - lifetime points of a named player
type LeaderboardEntry struct {
	Name   string `json:"name"`
	Points int64  `json:"points"`
	Rank   int    `json:"rank"`
}

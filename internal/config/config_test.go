package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "DATABASE_URL", "RECONNECT_GRACE_SECONDS", "WS_RATE_BURST", "ROOM_IDLE_TIMEOUT_MINUTES"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.ReconnectGrace)
	assert.Equal(t, 20, cfg.WSRateBurst)
	assert.Equal(t, time.Hour, cfg.RoomIdle)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("RECONNECT_GRACE_SECONDS", "12")
	t.Setenv("MAX_ROOM_PLAYERS", "-4")
	t.Setenv("VOTE_SECONDS", "soon")
	t.Setenv("LOG_JSON", "true")

	cfg := Load()
	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, 12*time.Second, cfg.ReconnectGrace)
	assert.Equal(t, 8, cfg.MaxRoomPlayers, "negative falls back")
	assert.Equal(t, 15, cfg.VoteSeconds, "malformed falls back")
	assert.True(t, cfg.LogJSON)
}

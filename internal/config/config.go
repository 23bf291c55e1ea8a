package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string // empty disables persistence
	JWTSecret   string // empty disables account binding on /ws

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigin string
	LogLevel      string
	LogJSON       bool

	// Session timing
	ReconnectGrace time.Duration
	StartCountdown int
	ResultsPause   time.Duration
	VoteSeconds    int
	MaxRoomPlayers int
	RoomIdle       time.Duration

	// Limits
	WSRateLimit    float64
	WSRateBurst    int
	APIRateLimit   int
	APIRateWindow  time.Duration
	LeaderboardTop int
}

// Load reads the environment, loading a .env file first when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:     str("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       num("REDIS_DB", 0),

		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		LogLevel:      str("LOG_LEVEL", "info"),
		LogJSON:       os.Getenv("LOG_JSON") == "true",

		ReconnectGrace: seconds("RECONNECT_GRACE_SECONDS", 30),
		StartCountdown: positive("START_COUNTDOWN_SECONDS", 3),
		ResultsPause:   seconds("RESULTS_SECONDS", 5),
		VoteSeconds:    positive("VOTE_SECONDS", 15),
		MaxRoomPlayers: positive("MAX_ROOM_PLAYERS", 8),
		RoomIdle:       time.Duration(positive("ROOM_IDLE_TIMEOUT_MINUTES", 60)) * time.Minute,

		WSRateLimit:    float64(positive("WS_RATE_LIMIT", 10)),
		WSRateBurst:    positive("WS_RATE_BURST", 20),
		APIRateLimit:   positive("API_RATE_LIMIT", 120),
		APIRateWindow:  seconds("API_RATE_WINDOW_SECONDS", 60),
		LeaderboardTop: positive("LEADERBOARD_TOP", 20),
	}
}

func str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func num(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// positive ignores zero, negative and malformed values.
func positive(key string, def int) int {
	if n := num(key, def); n > 0 {
		return n
	}
	return def
}

func seconds(key string, def int) time.Duration {
	return time.Duration(positive(key, def)) * time.Second
}

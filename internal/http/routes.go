package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/phash/playtogether-sub000/internal/http/handlers"
	"github.com/phash/playtogether-sub000/internal/http/middleware"
	"github.com/phash/playtogether-sub000/internal/service"
	"github.com/phash/playtogether-sub000/internal/session"
	"github.com/phash/playtogether-sub000/internal/ws"
)

// Deps is everything the routes need. Redis, Stats checks and Tokens are optional.
type Deps struct {
	Version string
	Orch    *session.Orchestrator
	Stats   handlers.LeaderboardSource
	Redis   *redis.Client
	Checks  map[string]handlers.CheckFunc
	Tokens  *service.Tokens

	AllowedOrigin  string
	APIRateLimit   int
	APIRateWindow  time.Duration
	WSRateLimit    float64
	WSRateBurst    int
	LeaderboardTop int
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	if d.Stats == nil {
		d.Stats = service.NewStatsService(nil, nil)
	}
	h := handlers.NewHandler(d.Orch.Rooms(), d.Stats, d.LeaderboardTop)
	healthHandler := handlers.NewHealthHandler(d.Version, d.Checks, d.Orch.ActiveRooms)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(d.Redis, d.APIRateLimit, d.APIRateWindow))
	{
		v1.GET("/games", h.Games)
		v1.GET("/rooms/:code", h.Room)
		v1.GET("/leaderboard", h.Leaderboard)
	}

	// WebSocket for rooms and games
	r.GET("/ws", ws.HandleWS(d.Orch, ws.Options{
		Tokens:        d.Tokens,
		AllowedOrigin: d.AllowedOrigin,
		RateLimit:     d.WSRateLimit,
		RateBurst:     d.WSRateBurst,
	}))
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phash/playtogether-sub000/internal/cache"
	"github.com/phash/playtogether-sub000/internal/config"
	"github.com/phash/playtogether-sub000/internal/db"
	"github.com/phash/playtogether-sub000/internal/game"
	httpServer "github.com/phash/playtogether-sub000/internal/http"
	"github.com/phash/playtogether-sub000/internal/http/handlers"
	"github.com/phash/playtogether-sub000/internal/logger"
	"github.com/phash/playtogether-sub000/internal/repository"
	"github.com/phash/playtogether-sub000/internal/room"
	"github.com/phash/playtogether-sub000/internal/service"
	"github.com/phash/playtogether-sub000/internal/session"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	checks := map[string]handlers.CheckFunc{}
	var (
		store service.SessionStore
		board service.PointsBoard
	)

	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database", "error", err)
		}
		defer pool.Close()
		if err := db.Migrate(context.Background(), pool); err != nil {
			logger.Fatal("migrate", "error", err)
		}
		store = repository.NewSessionRepository(pool)
		checks["database"] = pool.Ping
	} else {
		logger.Warn("DATABASE_URL not set, sessions will not be stored")
	}

	rdb := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
		lb := cache.NewLeaderboard(rdb)
		board = lb
		checks["redis"] = lb.Ping
	}

	stats := service.NewStatsService(store, board)
	tokens := service.NewTokens(cfg.JWTSecret)

	orch := session.New(session.Config{
		Grace:          cfg.ReconnectGrace,
		StartCountdown: cfg.StartCountdown,
		ResultsPause:   cfg.ResultsPause,
		VoteSeconds:    cfg.VoteSeconds,
		IdleTimeout:    cfg.RoomIdle,
	},
		room.NewManager(room.WithMaxPlayers(cfg.MaxRoomPlayers)),
		game.NewManager(nil),
		session.WithRecorder(stats),
	)
	if err := orch.StartSweeper(); err != nil {
		logger.Fatal("room sweeper", "error", err)
	}

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Version:        version,
		Orch:           orch,
		Stats:          stats,
		Redis:          rdb,
		Checks:         checks,
		Tokens:         tokens,
		AllowedOrigin:  cfg.AllowedOrigin,
		APIRateLimit:   cfg.APIRateLimit,
		APIRateWindow:  cfg.APIRateWindow,
		WSRateLimit:    cfg.WSRateLimit,
		WSRateBurst:    cfg.WSRateBurst,
		LeaderboardTop: cfg.LeaderboardTop,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := orch.Shutdown(ctx); err != nil {
		logger.Error("rooms did not close in time", "error", err)
	}

	logger.Info("server exited")
}

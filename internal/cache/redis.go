package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/phash/playtogether-sub000/internal/logger"
)

// Connect returns a client for addr, or nil when addr is empty or the server
// does not answer. Callers treat nil as "Redis disabled".
func Connect(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, continuing without it", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", addr)
	return client
}

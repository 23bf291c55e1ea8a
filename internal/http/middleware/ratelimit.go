package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phash/playtogether-sub000/internal/metrics"
)

type bucket struct {
	start time.Time
	count int
}

// memoryLimiter is a per-process fixed window keyed by client IP.
type memoryLimiter struct {
	mu      sync.Mutex
	max     int
	size    time.Duration
	now     func() time.Time
	clients map[string]*bucket
}

func (l *memoryLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[ip]
	if !ok || now.Sub(w.start) > l.size {
		l.clients[ip] = &bucket{start: now, count: 1}
		if len(l.clients) > 10_000 {
			l.evict(now)
		}
		return true
	}
	w.count++
	return w.count <= l.max
}

func (l *memoryLimiter) evict(now time.Time) {
	for ip, w := range l.clients {
		if now.Sub(w.start) > l.size {
			delete(l.clients, ip)
		}
	}
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := &memoryLimiter{max: maxRequests, size: window, now: time.Now, clients: make(map[string]*bucket)}
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			metrics.LimiterBlocked.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		metrics.LimiterPassed.WithLabelValues("memory").Inc()
		c.Next()
	}
}

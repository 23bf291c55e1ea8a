package handlers

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes. Database and Redis
// checks are registered only when those backends are configured.
type HealthHandler struct {
	version string
	started time.Time
	checks  map[string]CheckFunc
	rooms   func() int
}

func NewHealthHandler(version string, checks map[string]CheckFunc, rooms func() int) *HealthHandler {
	return &HealthHandler{version: version, started: time.Now(), checks: checks, rooms: rooms}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Rooms     *int              `json:"rooms,omitempty"`
	MemoryMB  float64           `json:"memory_alloc_mb"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// probe runs every check and returns per-dependency results plus the names
// of the failing ones, sorted.
func (h *HealthHandler) probe(ctx context.Context, timeout time.Duration) (map[string]string, []string) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	var failed []string
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
			failed = append(failed, name)
			continue
		}
		results[name] = "healthy"
	}
	sort.Strings(failed)
	return results, failed
}

// Liveness returns simple alive status (for k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness returns detailed health status (for k8s readiness probe)
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks, failed := h.probe(c.Request.Context(), 5*time.Second)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MemoryMB:  float64(m.Alloc/1024) / 1024,
		Checks:    checks,
	}
	if h.rooms != nil {
		n := h.rooms()
		resp.Rooms = &n
	}

	code := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// Health is the quick combined check used by load balancers.
func (h *HealthHandler) Health(c *gin.Context) {
	if _, failed := h.probe(c.Request.Context(), 3*time.Second); len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  strings.Join(failed, ", ") + " unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

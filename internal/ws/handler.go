package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/phash/playtogether-sub000/internal/logger"
	"github.com/phash/playtogether-sub000/internal/service"
	"github.com/phash/playtogether-sub000/internal/session"
)

// Options configure the /ws endpoint.
type Options struct {
	Tokens        *service.Tokens
	AllowedOrigin string
	RateLimit     float64
	RateBurst     int
}

// HandleWS upgrades the request and hands the socket to the orchestrator. A
// token is optional; when present it must be valid.
func HandleWS(orch *session.Orchestrator, opts Options) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if opts.AllowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == opts.AllowedOrigin
		},
	}

	return func(c *gin.Context) {
		var accountID *int64
		if token := c.Query("token"); token != "" && opts.Tokens.Enabled() {
			id, err := opts.Tokens.Parse(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			accountID = &id
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return
		}

		var limiter *rate.Limiter
		if opts.RateLimit > 0 {
			burst := opts.RateBurst
			if burst < 1 {
				burst = 1
			}
			limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
		}

		client := NewClient(conn, orch, limiter, accountID)
		go client.Run()
	}
}

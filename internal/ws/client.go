package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/phash/playtogether-sub000/internal/logger"
	"github.com/phash/playtogether-sub000/internal/metrics"
	"github.com/phash/playtogether-sub000/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxMessageSize = 8192
	sendBuffer     = 256
)

// Client pumps frames between one websocket and the orchestrator.
type Client struct {
	id        string
	accountID *int64
	conn      *websocket.Conn
	send      chan []byte
	limiter   *rate.Limiter
	orch      *session.Orchestrator
	log       *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, orch *session.Orchestrator, limiter *rate.Limiter, accountID *int64) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		accountID: accountID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		limiter:   limiter,
		orch:      orch,
		log:       logger.With("conn", id),
		done:      make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues a frame. A client too slow to drain its buffer loses the frame
// rather than stalling its room.
func (c *Client) Send(msg []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		c.log.Warn("send buffer full, dropping frame", "bytes", len(msg))
	}
}

// Run blocks until the connection closes.
func (c *Client) Run() {
	c.orch.Connect(c, c.accountID)
	go c.writePump()
	c.readPump()
}

//read
func (c *Client) readPump() {
	defer func() {
		c.orch.Disconnect(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", "error", err)
			}
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			metrics.LimiterBlocked.WithLabelValues("ws").Inc()
			c.Send(session.ErrorFrame(session.ErrRateLimited))
			continue
		}
		c.orch.HandleMessage(c, msg)
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write error", "error", err)
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// close stops the write pump, which closes the socket on its way out.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

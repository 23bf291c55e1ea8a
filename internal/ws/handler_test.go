package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phash/playtogether-sub000/internal/service"
	"github.com/phash/playtogether-sub000/internal/session"
)

func newServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	orch := session.New(session.DefaultConfig(), nil, nil)
	r := gin.New()
	r.GET("/ws", HandleWS(orch, opts))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) session.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env session.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestPingPong(t *testing.T) {
	srv := newServer(t, Options{RateLimit: 100, RateBurst: 100})
	conn := dial(t, srv, "")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, session.EvtPong, read(t, conn).Type)
}

func TestRateLimitedFramesAreRejected(t *testing.T) {
	srv := newServer(t, Options{RateLimit: 0.001, RateBurst: 1})
	conn := dial(t, srv, "")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	assert.Equal(t, session.EvtPong, read(t, conn).Type)
	env := read(t, conn)
	require.Equal(t, session.EvtError, env.Type)
	var p map[string]string
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, session.CodeRateLimited, p["code"])
}

func TestInvalidTokenIsUnauthorized(t *testing.T) {
	srv := newServer(t, Options{Tokens: service.NewTokens("secret")})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestValidTokenConnects(t *testing.T) {
	tokens := service.NewTokens("secret")
	tok, err := tokens.Generate(7, time.Hour)
	require.NoError(t, err)

	srv := newServer(t, Options{Tokens: tokens})
	conn := dial(t, srv, "?token="+tok)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "create_room",
		"payload": map[string]any{"name": "Ada"},
	}))
	assert.Equal(t, session.EvtRoomState, read(t, conn).Type)
}

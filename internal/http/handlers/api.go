package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/room"
)

// LeaderboardSource answers top-N queries.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

type Handler struct {
	rooms       *room.Manager
	leaderboard LeaderboardSource
	defaultTop  int
}

func NewHandler(rooms *room.Manager, leaderboard LeaderboardSource, defaultTop int) *Handler {
	if defaultTop <= 0 {
		defaultTop = 20
	}
	return &Handler{rooms: rooms, leaderboard: leaderboard, defaultTop: defaultTop}
}

// Games lists the catalog.
func (h *Handler) Games(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": domain.Games})
}

type roomSummary struct {
	Code       string            `json:"code"`
	Status     domain.RoomStatus `json:"status"`
	GameKind   domain.GameKind   `json:"gameKind"`
	Players    []string          `json:"players"`
	MaxPlayers int               `json:"maxPlayers"`
	Joinable   bool              `json:"joinable"`
}

// Room returns what a lobby screen needs before joining. Player ids stay private.
func (h *Handler) Room(c *gin.Context) {
	r, ok := h.rooms.GetByCode(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	s := roomSummary{
		Code:       r.Code,
		Status:     r.Status,
		GameKind:   r.CurrentEntry().Kind,
		Players:    make([]string, 0, len(r.Players)),
		MaxPlayers: r.Capacity(),
	}
	for _, p := range r.Players {
		s.Players = append(s.Players, p.Name)
	}
	inGame := r.Status == domain.RoomStarting || r.Status == domain.RoomPlaying
	s.Joinable = !inGame && len(r.Players) < s.MaxPlayers
	c.JSON(http.StatusOK, s)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	n := h.defaultTop
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		n = min(parsed, 100)
	}

	top, err := h.leaderboard.Leaderboard(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/phash/playtogether-sub000/internal/domain"
	"github.com/phash/playtogether-sub000/internal/logger"
)

// SessionStore is the durable record of finished sessions.
type SessionStore interface {
	Create(ctx context.Context, s *domain.SessionResult) error
	TopPlayers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// PointsBoard is a fast running total of points per player.
type PointsBoard interface {
	Add(ctx context.Context, s domain.SessionResult) error
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// StatsService records sessions and answers leaderboard queries. Either
// backend may be nil.
type StatsService struct {
	store SessionStore
	board PointsBoard
}

func NewStatsService(store SessionStore, board PointsBoard) *StatsService {
	return &StatsService{store: store, board: board}
}

func (s *StatsService) RecordSession(ctx context.Context, result domain.SessionResult) error {
	var errs []error
	if s.store != nil {
		if err := s.store.Create(ctx, &result); err != nil {
			errs = append(errs, fmt.Errorf("store session: %w", err))
		}
	}
	if s.board != nil {
		if err := s.board.Add(ctx, result); err != nil {
			errs = append(errs, fmt.Errorf("update leaderboard: %w", err))
		}
	}
	if len(errs) == 0 {
		logger.Room(result.RoomCode).Info("session recorded", "id", result.ID, "players", len(result.Players))
	}
	return errors.Join(errs...)
}

// Leaderboard prefers the points board and falls back to the store.
func (s *StatsService) Leaderboard(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if s.board != nil {
		top, err := s.board.Top(ctx, n)
		if err == nil {
			return top, nil
		}
		logger.Warn("leaderboard cache failed, using database", "error", err)
	}
	if s.store != nil {
		return s.store.TopPlayers(ctx, n)
	}
	return []domain.LeaderboardEntry{}, nil
}

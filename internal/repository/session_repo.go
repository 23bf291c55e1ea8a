package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phash/playtogether-sub000/internal/domain"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a finished session and its players in one transaction.
func (r *SessionRepository) Create(ctx context.Context, s *domain.SessionResult) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO sessions (room_code, games_played, started_at, ended_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		s.RoomCode, s.GamesPlayed, s.StartedAt, s.EndedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range s.Players {
		batch.Queue(
			`INSERT INTO session_players (session_id, name, account_id, score, rank)
			 VALUES ($1, $2, $3, $4, $5)`,
			s.ID, p.Name, p.AccountID, p.Score, p.Rank,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert players: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID returns a session with its players ordered by rank.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*domain.SessionResult, error) {
	s := &domain.SessionResult{}
	err := r.db.QueryRow(ctx,
		`SELECT id, room_code, games_played, started_at, ended_at
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.RoomCode, &s.GamesPlayed, &s.StartedAt, &s.EndedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT name, account_id, score, rank
		 FROM session_players
		 WHERE session_id = $1
		 ORDER BY rank, name`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.SessionPlayer
		if err := rows.Scan(&p.Name, &p.AccountID, &p.Score, &p.Rank); err != nil {
			return nil, err
		}
		s.Players = append(s.Players, p)
	}
	return s, rows.Err()
}

// TopPlayers sums points per name across every recorded session.
func (r *SessionRepository) TopPlayers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT MIN(name) AS name, SUM(score) AS points
		 FROM session_players
		 GROUP BY LOWER(name)
		 ORDER BY points DESC, name
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Points); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

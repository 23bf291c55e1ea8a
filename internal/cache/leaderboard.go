package cache

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/phash/playtogether-sub000/internal/domain"
)

const leaderboardKey = "leaderboard:points"

// Leaderboard keeps lifetime points per player name in a sorted set.
type Leaderboard struct {
	rdb *redis.Client
	key string
}

func NewLeaderboard(rdb *redis.Client) *Leaderboard {
	return &Leaderboard{rdb: rdb, key: leaderboardKey}
}

// member folds case so "Ada" and "ada" share a row
func member(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Add credits every player of a finished session.
func (l *Leaderboard) Add(ctx context.Context, s domain.SessionResult) error {
	pipe := l.rdb.TxPipeline()
	for _, p := range s.Players {
		if p.Score <= 0 {
			continue
		}
		pipe.ZIncrBy(ctx, l.key, float64(p.Score), member(p.Name))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (l *Leaderboard) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		n = 20
	}
	res, err := l.rdb.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.LeaderboardEntry, 0, len(res))
	for i, z := range res {
		name, _ := z.Member.(string)
		out = append(out, domain.LeaderboardEntry{Name: name, Points: int64(z.Score), Rank: i + 1})
	}
	return out, nil
}

func (l *Leaderboard) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

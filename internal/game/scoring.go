package game

import (
	"math"
	"time"
)

const (
	// MaxSpeedMultiplier applies to an answer given the instant a round opens.
	MaxSpeedMultiplier = 2.0
	// MinSpeedMultiplier applies at or past the deadline.
	MinSpeedMultiplier = 1.0
)

// SpeedMultiplier scales linearly from MaxSpeedMultiplier with the whole
// window left down to MinSpeedMultiplier with nothing left.
func SpeedMultiplier(timeLeft, maxTime time.Duration) float64 {
	if maxTime <= 0 || timeLeft <= 0 {
		return MinSpeedMultiplier
	}
	frac := float64(timeLeft) / float64(maxTime)
	if frac > 1 {
		frac = 1
	}
	return MinSpeedMultiplier + (MaxSpeedMultiplier-MinSpeedMultiplier)*frac
}

// SpeedPoints applies SpeedMultiplier to base and rounds to whole points.
func SpeedPoints(base int, timeLeft, maxTime time.Duration) int {
	return int(math.Round(float64(base) * SpeedMultiplier(timeLeft, maxTime)))
}

// StreakBonus is paid on top of a correct answer for consecutive hits.
func StreakBonus(streak int) int {
	switch {
	case streak >= 5:
		return 150
	case streak >= 3:
		return 50
	default:
		return 0
	}
}

var rankBonuses = []int{100, 75, 50, 25}

// RankBonus pays the n-th correct answer (1-based).
func RankBonus(rank int) int {
	if rank < 1 {
		return 0
	}
	if rank <= len(rankBonuses) {
		return rankBonuses[rank-1]
	}
	return 10
}

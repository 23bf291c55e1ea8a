package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rooms_active",
			Help: "Rooms currently open",
		},
	)
	EnginesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engines_active",
			Help: "Game engines currently running",
		},
	)
	GameActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_actions_total",
			Help: "Player actions forwarded to a game engine",
		},
		[]string{"kind"},
	)
	TimersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timers_fired_total",
			Help: "Timer events consumed by a room, by owner",
		},
		[]string{"target"},
	)
	VotesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_resolved_total",
			Help: "Next-game votes resolved",
		},
		[]string{"tiebreak"},
	)
	SessionsFinished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_finished_total",
			Help: "Sessions ended by their host",
		},
	)

	// Rate limiting. backend is memory or redis for HTTP, ws for socket frames.
	LimiterPassed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_passed_total",
			Help: "Requests let through by a rate limiter",
		},
		[]string{"backend"},
	)
	LimiterBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Requests or frames rejected by a rate limiter",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(RoomsActive)
	prometheus.MustRegister(EnginesActive)
	prometheus.MustRegister(GameActions)
	prometheus.MustRegister(TimersFired)
	prometheus.MustRegister(VotesResolved)
	prometheus.MustRegister(SessionsFinished)
	prometheus.MustRegister(LimiterPassed, LimiterBlocked)
}

package domain

import "time"

// GameKind - identifier of a mini-game
type GameKind string

const (
	KindEitherOr  GameKind = "either_or"
	KindQuiz      GameKind = "quiz"
	KindColorRush GameKind = "color_rush"
	KindWordChain GameKind = "word_chain"
	KindSpinGuess GameKind = "spin_guess"
	KindRPS       GameKind = "rps_tournament"
	KindTicTacToe GameKind = "tictactoe_tournament"
)

// GameFamily - structural shape of a mini-game
type GameFamily string

const (
	FamilyRounds     GameFamily = "rounds"
	FamilyTurns      GameFamily = "turns"
	FamilyTournament GameFamily = "tournament"
)

// GameInfo describes a catalog entry and its player-count bounds.
type GameInfo struct {
	Kind                GameKind      `json:"kind"`
	Name                string        `json:"name"`
	Family              GameFamily    `json:"family"`
	MinPlayers          int           `json:"min_players"`
	MaxPlayers          int           `json:"max_players"`
	DefaultRounds       int           `json:"default_rounds"`
	DefaultTimePerRound time.Duration `json:"-"`
	DefaultSeconds      int           `json:"default_seconds"`
}

// Fits reports whether a room of n players can play this game.
func (g GameInfo) Fits(n int) bool {
	return n >= g.MinPlayers && n <= g.MaxPlayers
}

// Games is the static catalog, in display order.
var Games = []GameInfo{
	{Kind: KindEitherOr, Name: "Either Or", Family: FamilyRounds, MinPlayers: 2, MaxPlayers: 12, DefaultRounds: 8, DefaultTimePerRound: 15 * time.Second, DefaultSeconds: 15},
	{Kind: KindQuiz, Name: "Quick Quiz", Family: FamilyRounds, MinPlayers: 1, MaxPlayers: 12, DefaultRounds: 10, DefaultTimePerRound: 20 * time.Second, DefaultSeconds: 20},
	{Kind: KindColorRush, Name: "Color Rush", Family: FamilyRounds, MinPlayers: 2, MaxPlayers: 12, DefaultRounds: 10, DefaultTimePerRound: 8 * time.Second, DefaultSeconds: 8},
	{Kind: KindWordChain, Name: "Word Chain", Family: FamilyTurns, MinPlayers: 2, MaxPlayers: 8, DefaultRounds: 5, DefaultTimePerRound: 15 * time.Second, DefaultSeconds: 15},
	{Kind: KindSpinGuess, Name: "Spin & Guess", Family: FamilyTurns, MinPlayers: 2, MaxPlayers: 6, DefaultRounds: 3, DefaultTimePerRound: 20 * time.Second, DefaultSeconds: 20},
	{Kind: KindRPS, Name: "Rock Paper Scissors Cup", Family: FamilyTournament, MinPlayers: 2, MaxPlayers: 16, DefaultRounds: 3, DefaultTimePerRound: 10 * time.Second, DefaultSeconds: 10},
	{Kind: KindTicTacToe, Name: "Tic-Tac-Toe Cup", Family: FamilyTournament, MinPlayers: 2, MaxPlayers: 16, DefaultRounds: 3, DefaultTimePerRound: 10 * time.Second, DefaultSeconds: 10},
}

// LookupGame returns the catalog entry for kind.
func LookupGame(kind GameKind) (GameInfo, bool) {
	for _, g := range Games {
		if g.Kind == kind {
			return g, true
		}
	}
	return GameInfo{}, false
}

// PlaylistEntry - one pre-selected game of a session.
// Zero Rounds or TimePerRound fall back to catalog defaults.
type PlaylistEntry struct {
	Kind         GameKind      `json:"gameKind"`
	Rounds       int           `json:"rounds,omitempty"`
	TimePerRound time.Duration `json:"-"`
	Seconds      int           `json:"timePerRound,omitempty"`
}

// Resolve fills defaults from the catalog.
func (e PlaylistEntry) Resolve() (PlaylistEntry, bool) {
	info, ok := LookupGame(e.Kind)
	if !ok {
		return e, false
	}
	if e.Rounds <= 0 {
		e.Rounds = info.DefaultRounds
	}
	if e.TimePerRound <= 0 && e.Seconds > 0 {
		e.TimePerRound = time.Duration(e.Seconds) * time.Second
	}
	if e.TimePerRound <= 0 {
		e.TimePerRound = info.DefaultTimePerRound
	}
	e.Seconds = int(e.TimePerRound / time.Second)
	return e, true
}

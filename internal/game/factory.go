package game

import (
	"errors"
	"fmt"

	"github.com/phash/playtogether-sub000/internal/domain"
)

var (
	ErrUnsupportedKind = errors.New("unsupported game kind")
	ErrNoPlayers       = errors.New("no players")
)

type constructor func(players []Player, s Settings, env Env) Engine

type Factory struct {
	constructors map[domain.GameKind]constructor
}

func NewFactory() *Factory {
	return &Factory{
		constructors: map[domain.GameKind]constructor{
			domain.KindEitherOr:  NewEitherOr,
			domain.KindQuiz:      NewQuiz,
			domain.KindColorRush: NewColorRush,
			domain.KindWordChain: NewWordChain,
			domain.KindSpinGuess: NewSpinGuess,
			domain.KindRPS:       NewRPSTournament,
			domain.KindTicTacToe: NewTicTacToeTournament,
		},
	}
}

// Supports reports whether kind has an engine.
func (f *Factory) Supports(kind domain.GameKind) bool {
	_, ok := f.constructors[kind]
	return ok
}

// CreateGame builds an engine with zero settings filled from the catalog.
func (f *Factory) CreateGame(kind domain.GameKind, players []Player, s Settings, env Env) (Engine, error) {
	build, ok := f.constructors[kind]
	info, known := domain.LookupGame(kind)
	if !ok || !known {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}
	if s.Rounds <= 0 {
		s.Rounds = info.DefaultRounds
	}
	if s.TimePerRound <= 0 {
		s.TimePerRound = info.DefaultTimePerRound
	}
	return build(players, s, env), nil
}

package session

import (
	"errors"

	"github.com/phash/playtogether-sub000/internal/game"
	"github.com/phash/playtogether-sub000/internal/room"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrNotInRoom      = errors.New("not in a room")
	ErrAlreadyInRoom  = errors.New("already in a room")
	ErrRateLimited    = errors.New("too many messages")
	ErrNoSession      = errors.New("no session running")
)

// Error codes sent to clients
const (
	CodeUnsupportedGame  = "UNSUPPORTED_GAME"
	CodeNotHost          = "NOT_HOST"
	CodeNotEnoughPlayers = "NOT_ENOUGH_PLAYERS"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeInvalidMessage   = "INVALID_MESSAGE"
	CodeRoomFull         = "ROOM_FULL"
	CodeNameTaken        = "NAME_TAKEN"
	CodeGameInProgress   = "GAME_IN_PROGRESS"
	CodeNotInRoom        = "NOT_IN_ROOM"
	CodePlayerNotFound   = "PLAYER_NOT_FOUND"
	CodeRoomUnavailable  = "ROOM_UNAVAILABLE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInvalidPlaylist  = "INVALID_PLAYLIST"
)

var codes = []struct {
	err  error
	code string
}{
	{room.ErrRoomNotFound, CodeRoomNotFound},
	{room.ErrRoomFull, CodeRoomFull},
	{room.ErrNameTaken, CodeNameTaken},
	{room.ErrGameInProgress, CodeGameInProgress},
	{room.ErrNotHost, CodeNotHost},
	{room.ErrNotEnoughPlayers, CodeNotEnoughPlayers},
	{room.ErrPlayerNotFound, CodePlayerNotFound},
	{room.ErrUnsupportedGame, CodeUnsupportedGame},
	{game.ErrUnsupportedKind, CodeUnsupportedGame},
	{room.ErrInvalidPlaylist, CodeInvalidPlaylist},
	{room.ErrCodeSpaceExhausted, CodeRoomUnavailable},
	{ErrNotInRoom, CodeNotInRoom},
	{ErrRateLimited, CodeRateLimited},
}

// Code maps an error to the code reported to clients. Anything unknown is
// reported as an invalid message.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInvalidMessage
}

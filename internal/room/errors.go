package room

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrNameTaken          = errors.New("name already taken")
	ErrInvalidName        = errors.New("invalid player name")
	ErrGameInProgress     = errors.New("game in progress")
	ErrNotHost            = errors.New("only the host can do that")
	ErrNotEnoughPlayers   = errors.New("not enough players")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrUnsupportedGame    = errors.New("unsupported game")
	ErrInvalidPlaylist    = errors.New("invalid playlist")
	ErrInvalidSettings    = errors.New("invalid settings")
	ErrCodeSpaceExhausted = errors.New("no free room code")
)

package domain

import "errors"

// Domain errors
var (
	ErrValidation    = errors.New("invalid request")
	ErrNotHost       = errors.New("only the host can start the game")
	ErrNoPlayers     = errors.New("no players in the room")
	ErrUnknownPlayer = errors.New("player not found")
	ErrDuplicateID   = errors.New("player already in the room")
	ErrInvalidStatus = errors.New("invalid action for current status")
	ErrRoomClosed    = errors.New("room is closed")
	ErrRoomNotFound  = errors.New("room not found")
)

package game

import "errors"

var (
	ErrLobbyNotFound = errors.New("Lobby not found")
	ErrNotInLobby    = errors.New("Player not in lobby")
)

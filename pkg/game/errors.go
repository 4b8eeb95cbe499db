package game

import "errors"

var (
	// ErrControllerNotInitialized is returned when a player's clock is used
	// before the game has started.
	ErrControllerNotInitialized = errors.New("controller not initialized")

	// ErrRoleNotFound is returned for a role that is not part of the game
	ErrRoleNotFound = errors.New("role not found")

	// ErrInvalidStatus is returned when an operation is not allowed in the
	// game's current status.
	ErrInvalidStatus = errors.New("invalid game status")

	// ErrInvalidRoles is returned for an empty or duplicated role list
	ErrInvalidRoles = errors.New("invalid roles")
)

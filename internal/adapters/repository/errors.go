package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("team not found")
	ErrInvalidTeam   = errors.New("invalid team")
	ErrInvalidLoot   = errors.New("invalid loot record")
	ErrDuplicateLoot = errors.New("duplicate loot record")
	ErrClosed        = errors.New("store closed")
)

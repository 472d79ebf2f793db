package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrUnknownMember   = errors.New("member not on team")
	ErrInvalidCategory = errors.New("invalid loot category")
	ErrNotNeeded       = errors.New("item not needed by member")
)

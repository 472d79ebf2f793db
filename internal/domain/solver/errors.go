package solver

import (
	"errors"
	"fmt"
)

// Sentinel kinds for solver errors. Every validation failure wraps
// ErrInvalidInput; the more specific kinds are wrapped alongside it.
var (
	ErrInvalidInput  = errors.New("invalid solver input")
	ErrUnknownJob    = errors.New("unknown job")
	ErrInvalidRank   = errors.New("rank override out of range")
	ErrDuplicateRank = errors.New("rank override used twice")
)

func wrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

func invalid(op, format string, args ...any) error {
	return wrapKind(op, ErrInvalidInput, fmt.Errorf(format, args...))
}

package service

import (
	"errors"
	"fmt"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrBackpressure  = errors.New("re-solve queue is full")
	ErrBatchTooLarge = errors.New("batch too large")
)

func wrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

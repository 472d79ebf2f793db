package replay

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrUnhealthy = errors.New("service is not healthy")
	ErrRequest   = errors.New("request failed")
	ErrSnapshot  = errors.New("invalid snapshot file")
)

// StatusError is a non-success answer of the API.
type StatusError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap lets callers match every StatusError against ErrRequest.
func (e *StatusError) Unwrap() error { return ErrRequest }

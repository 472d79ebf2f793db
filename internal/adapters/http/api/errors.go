package api

import (
	"errors"
	"net/http"

	"github.com/okian/lootsolver/internal/adapters/mq/queue"
	"github.com/okian/lootsolver/internal/adapters/repository"
	"github.com/okian/lootsolver/internal/domain/dedupe"
	"github.com/okian/lootsolver/internal/domain/solver"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error codes returned in the body of failed requests.
const (
	codeBadRequest   = "bad_request"
	codeInvalidInput = "invalid_input"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeBackpressure = "backpressure"
	codeInternal     = "internal_error"
)

// classify maps an error to its HTTP status and code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, solver.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, dedupe.ErrInFlight):
		return http.StatusConflict, codeConflict
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, codeBackpressure
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

package replay

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/domain/solver"
)

// Defaults.
const (
	DefaultMaxWeeks = 52
	DefaultTimeout  = 30 * time.Second
	DefaultRetries  = 5
)

// Config holds configuration for a replay.
type Config struct {
	MaxWeeks     int           // Weeks to simulate before giving up
	Conservative *bool         // Plan mode; nil uses the service default
	Start        time.Time     // Date of the first replayed clear; zero means the week after the history
	Retries      int           // Attempts on backpressure or in-flight answers
	Backoff      time.Duration // Pause between attempts
	Verbose      bool          // Log every recorded week
}

func (c Config) withDefaults() Config {
	if c.MaxWeeks <= 0 {
		c.MaxWeeks = DefaultMaxWeeks
	}
	if c.Retries <= 0 {
		c.Retries = DefaultRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = 100 * time.Millisecond
	}
	return c
}

// Result summarises one replayed team.
type Result struct {
	TeamID uuid.UUID `json:"team_id"`
	// Weeks is the number of clears recorded.
	Weeks   int    `json:"weeks"`
	Records int    `json:"records"`
	Version uint64 `json:"version"`
	// Complete is set when floors one to three have no demand left.
	Complete    bool           `json:"complete"`
	FourthFloor solver.Summary `json:"fourth_floor"`
	Duration    time.Duration  `json:"duration"`
}

package solver

import "github.com/okian/lootsolver/internal/domain/gear"

// Option configures an Engine or a single solve.
type Option func(*Engine)

// WithCatalogue sets the job catalogue used for priority and validation.
func WithCatalogue(c *gear.Catalogue) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalogue = c
		}
	}
}

// WithConservative disables token purchases and double awards.
func WithConservative(on bool) Option {
	return func(e *Engine) { e.conservative = on }
}

// WithCategoryOrder sets the order a week's drops are handed out in.
func WithCategoryOrder(o CategoryOrder) Option {
	return func(e *Engine) { e.order = o }
}

// WithTokenRate sets the clears per purchase of the named stage. Unknown
// stages and negative rates are ignored.
func WithTokenRate(stage string, rate int) Option {
	return func(e *Engine) {
		if rate < 0 {
			return
		}
		for i := range e.stages {
			if e.stages[i].Name == stage {
				e.stages[i].TokenRate = rate
			}
		}
	}
}

package solver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
)

// Summary is the fourth floor outcome: only its outstanding counts matter.
type Summary struct {
	Weapons int `json:"weapons"`
	Mounts  int `json:"mounts"`
}

// Plan is the week-by-week distribution of a team's remaining loot.
type Plan struct {
	FirstFloor  []Week  `json:"first_floor"`
	SecondFloor []Week  `json:"second_floor"`
	ThirdFloor  []Week  `json:"third_floor"`
	FourthFloor Summary `json:"fourth_floor"`
}

// StageReport exposes the intermediate state of a stage.
type StageReport struct {
	Name      string                             `json:"name"`
	Clears    int                                `json:"clears"`
	Live      Requirements                       `json:"live"`
	OutOfBand map[model.MemberID][]gear.Category `json:"out_of_band,omitempty"`
	Brackets  []Bracket                          `json:"brackets"`
}

// Report is the analysis behind a plan.
type Report struct {
	Requirements Requirements     `json:"requirements"`
	Priority     []model.MemberID `json:"priority"`
	Stages       []StageReport    `json:"stages"`
}

// Engine computes loot plans. It holds no per-team state and is safe for
// concurrent use.
type Engine struct {
	catalogue    *gear.Catalogue
	stages       []Stage
	conservative bool
	order        CategoryOrder
}

// New builds an engine over the default catalogue and stages.
func New(opts ...Option) *Engine {
	e := &Engine{
		catalogue: gear.DefaultCatalogue(),
		stages:    DefaultStages(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// with returns a copy of e with per-call options applied.
func (e *Engine) with(opts []Option) *Engine {
	if len(opts) == 0 {
		return e
	}
	c := *e
	c.stages = make([]Stage, len(e.stages))
	copy(c.stages, e.stages)
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Catalogue returns the job catalogue the engine validates against.
func (e *Engine) Catalogue() *gear.Catalogue { return e.catalogue }

// Conservative reports the engine's default solve mode.
func (e *Engine) Conservative() bool { return e.conservative }

// Fingerprint identifies every setting that shapes a plan apart from the
// conservative flag: the category order, the token rates and the catalogue.
func (e *Engine) Fingerprint() string {
	h := xxhash.New()
	_, _ = fmt.Fprintf(h, "order=%s", e.order)
	for _, st := range e.stages {
		_, _ = fmt.Fprintf(h, ";%s=%d", st.Name, st.TokenRate)
	}
	for _, j := range e.catalogue.DefaultOrder() {
		_, _ = fmt.Fprintf(h, ";%s:%s:%d:%t", j.ID, j.Role, j.Ordering, j.DistinctOffhand)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Validate checks that a team can be solved without solving it.
func (e *Engine) Validate(team model.Team) error {
	if _, err := Analyze(team, e.catalogue); err != nil {
		return err
	}
	_, err := PriorityOrder(team, e.catalogue)
	return err
}

type prepared struct {
	analysis Analysis
	order    []model.MemberID
	states   []StageState
}

func (e *Engine) prepare(ctx context.Context, snap model.Snapshot) (prepared, error) {
	const op = "solver.prepare"
	if err := ctx.Err(); err != nil {
		return prepared{}, err
	}
	analysis, err := Analyze(snap.Team, e.catalogue)
	if err != nil {
		return prepared{}, err
	}
	order, err := PriorityOrder(snap.Team, e.catalogue)
	if err != nil {
		return prepared{}, err
	}
	for _, r := range snap.History {
		if r.Member == nil {
			continue
		}
		if _, ok := snap.Team.Member(*r.Member); !ok {
			return prepared{}, wrapKind(op, ErrInvalidInput, fmt.Errorf("loot %s for member %d: %w", r.ID, *r.Member, model.ErrUnknownMember))
		}
	}

	p := prepared{analysis: analysis, order: order, states: make([]StageState, len(e.stages))}
	for i, st := range e.stages {
		p.states[i] = Reconcile(st, analysis, snap.History, order)
	}
	return p, nil
}

// Solve computes the plan of a snapshot. Options apply to this call only.
func (e *Engine) Solve(ctx context.Context, snap model.Snapshot, opts ...Option) (Plan, error) {
	e = e.with(opts)
	p, err := e.prepare(ctx, snap)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{FirstFloor: []Week{}, SecondFloor: []Week{}, ThirdFloor: []Week{}}
	for i, st := range e.stages {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		state := p.states[i]
		if st.Name == FourthFloor {
			plan.FourthFloor = fourthFloor(snap, state)
			continue
		}
		weeks := Handout(st, state, HandoutConfig{
			TokenRate:    st.TokenRate,
			Conservative: e.conservative,
			Order:        e.order,
		})
		switch st.Name {
		case FirstFloor:
			plan.FirstFloor = weeks
		case SecondFloor:
			plan.SecondFloor = weeks
		case ThirdFloor:
			plan.ThirdFloor = weeks
		}
	}
	return plan, nil
}

// Report returns the intermediate analysis of a snapshot.
func (e *Engine) Report(ctx context.Context, snap model.Snapshot, opts ...Option) (Report, error) {
	e = e.with(opts)
	p, err := e.prepare(ctx, snap)
	if err != nil {
		return Report{}, err
	}
	r := Report{
		Requirements: p.analysis.Requirements,
		Priority:     p.order,
		Stages:       make([]StageReport, len(e.stages)),
	}
	for i, st := range e.stages {
		s := p.states[i]
		r.Stages[i] = StageReport{
			Name:      st.Name,
			Clears:    s.Clears,
			Live:      s.Live,
			OutOfBand: s.OutOfBand,
			Brackets:  s.Brackets.Buckets(),
		}
	}
	return r, nil
}

func fourthFloor(snap model.Snapshot, state StageState) Summary {
	mounted := make(map[model.MemberID]struct{})
	for _, r := range snap.History {
		if r.Category == gear.CategoryMount && r.Member != nil {
			mounted[*r.Member] = struct{}{}
		}
	}
	return Summary{
		Weapons: len(state.Live[gear.CategoryMainhand]),
		Mounts:  len(snap.Team.Members) - len(mounted),
	}
}

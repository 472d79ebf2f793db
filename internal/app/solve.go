package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/lootsolver/internal/adapters/repository"
	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/domain/solver"
	"github.com/okian/lootsolver/pkg/logger"
	"github.com/okian/lootsolver/pkg/metrics"
)

// mode resolves an optional per-request flag against the engine default.
func (s *Service) mode(conservative *bool) (string, []solver.Option) {
	on := s.engine.Conservative()
	if conservative != nil {
		on = *conservative
	}
	opts := []solver.Option{solver.WithConservative(on)}
	if on {
		return ModeConservative, opts
	}
	return ModeStandard, opts
}

// PlanKey is the cache key of a team version solved in mode by this
// service's engine.
func (s *Service) PlanKey(id uuid.UUID, version uint64, mode string) repository.PlanKey {
	return repository.PlanKey{TeamID: id, Version: version, Mode: mode, Settings: s.engine.Fingerprint()}
}

// Solve computes the plan of a posted snapshot without storing anything.
// A nil conservative flag uses the configured default.
func (s *Service) Solve(ctx context.Context, snap model.Snapshot, conservative *bool) (solver.Plan, error) { //nolint:gocritic // snapshots are passed by value throughout
	mode, opts := s.mode(conservative)
	return s.solve(ctx, snap, mode, opts)
}

func (s *Service) solve(ctx context.Context, snap model.Snapshot, mode string, opts []solver.Option) (solver.Plan, error) { //nolint:gocritic // see Solve
	start := time.Now()
	plan, err := s.engine.Solve(ctx, snap, opts...)
	metrics.RecordSolveLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSolve(mode, "error")
		metrics.RecordSolverError(errorKind(err))
		return solver.Plan{}, err
	}
	metrics.RecordSolve(mode, "ok")
	recordPlan(plan)
	return plan, nil
}

func recordPlan(p solver.Plan) { //nolint:gocritic // read only
	for name, weeks := range map[string][]solver.Week{
		solver.FirstFloor:  p.FirstFloor,
		solver.SecondFloor: p.SecondFloor,
		solver.ThirdFloor:  p.ThirdFloor,
	} {
		tokens := 0
		for _, w := range weeks {
			if w.Token {
				tokens++
			}
		}
		metrics.RecordPlannedWeeks(name, len(weeks))
		metrics.RecordTokenWeeks(name, tokens)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, solver.ErrUnknownJob):
		return "unknown_job"
	case errors.Is(err, solver.ErrInvalidRank), errors.Is(err, solver.ErrDuplicateRank):
		return "invalid_rank"
	case errors.Is(err, model.ErrUnknownMember):
		return "unknown_member"
	case errors.Is(err, solver.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

// SolveBatch solves independent snapshots in parallel. Results keep the
// input order; the first failure cancels the rest.
func (s *Service) SolveBatch(ctx context.Context, snaps []model.Snapshot, conservative *bool) ([]solver.Plan, error) {
	const op = "service.SolveBatch"
	if len(snaps) > s.maxBatchSize {
		return nil, wrapKind(op, solver.ErrInvalidInput, fmt.Errorf("%d snapshots, at most %d allowed: %w", len(snaps), s.maxBatchSize, ErrBatchTooLarge))
	}
	metrics.RecordBatchSize(len(snaps))

	mode, opts := s.mode(conservative)
	plans := make([]solver.Plan, len(snaps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.solveConcurrency)
	for i := range snaps {
		g.Go(func() error {
			plan, err := s.solve(gctx, snaps[i], mode, opts)
			if err != nil {
				return fmt.Errorf("snapshot %d: %w", i, err)
			}
			plans[i] = plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrap(op, err)
	}
	return plans, nil
}

// Plan returns the encoded plan of a stored team, served from the plan cache
// when the team has not changed since it was computed.
func (s *Service) Plan(ctx context.Context, id uuid.UUID, conservative *bool) (json.RawMessage, error) {
	const op = "service.Plan"
	store, _, err := s.running()
	if err != nil {
		return nil, wrap(op, err)
	}
	snap, err := store.Snapshot(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}

	mode, opts := s.mode(conservative)
	key := s.PlanKey(id, snap.Version, mode)
	backend := s.cache.Backend()

	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCacheError(backend)
		s.logger.Warn(ctx, "plan cache read failed", logger.String("key", key.String()), logger.Error(err))
	case ok:
		metrics.RecordCacheHit(backend)
		return cached, nil
	default:
		metrics.RecordCacheMiss(backend)
	}

	encoded, err := s.compute(ctx, key, snap, opts)
	if err != nil {
		return nil, wrap(op, err)
	}
	return encoded, nil
}

// Precompute solves a snapshot in the default mode and caches the result.
// It is called by the re-solve workers.
func (s *Service) Precompute(ctx context.Context, snap model.Snapshot) error { //nolint:gocritic // worker contract
	mode, opts := s.mode(nil)
	key := s.PlanKey(snap.Team.ID, snap.Version, mode)
	_, err := s.compute(ctx, key, snap, opts)
	return err
}

func (s *Service) compute(ctx context.Context, key repository.PlanKey, snap model.Snapshot, opts []solver.Option) (json.RawMessage, error) { //nolint:gocritic // see Solve
	plan, err := s.solve(ctx, snap, key.Mode, opts)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	if err := s.cache.Set(ctx, key, encoded); err != nil {
		metrics.RecordCacheError(s.cache.Backend())
		s.logger.Warn(ctx, "plan cache write failed", logger.String("key", key.String()), logger.Error(err))
	}
	return encoded, nil
}

// Requirements returns the intermediate analysis of a stored team.
func (s *Service) Requirements(ctx context.Context, id uuid.UUID) (solver.Report, error) {
	const op = "service.Requirements"
	store, _, err := s.running()
	if err != nil {
		return solver.Report{}, wrap(op, err)
	}
	snap, err := store.Snapshot(ctx, id)
	if err != nil {
		return solver.Report{}, wrap(op, err)
	}
	report, err := s.engine.Report(ctx, snap)
	if err != nil {
		metrics.RecordSolverError(errorKind(err))
		return solver.Report{}, wrap(op, err)
	}
	oob := 0
	for _, st := range report.Stages {
		for _, cats := range st.OutOfBand {
			oob += len(cats)
		}
	}
	metrics.RecordOutOfBand(oob)
	return report, nil
}

// Jobs returns the job catalogue in default priority order.
func (s *Service) Jobs() []gear.Job {
	return s.engine.Catalogue().DefaultOrder()
}

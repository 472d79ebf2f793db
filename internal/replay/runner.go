// Package replay drives a team through its plan week by week: every planned
// drop of the next clear is recorded with gear applied and the team is
// solved again, until the first three floors need nothing more.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/lootsolver/internal/adapters/mq/queue"
	"github.com/okian/lootsolver/internal/domain/dedupe"
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/domain/solver"
	"github.com/okian/lootsolver/pkg/logger"
)

// Backend is the part of the loot solver a replay needs. It is satisfied by
// the in-process service and by HTTPClient.
type Backend interface {
	PutTeam(ctx context.Context, team model.Team) (uint64, error)
	Plan(ctx context.Context, id uuid.UUID, conservative *bool) (json.RawMessage, error)
	RecordLoot(ctx context.Context, id uuid.UUID, key string, records []model.LootRecord, applyGear bool) (model.LootReceipt, error)
}

// Runner replays snapshots against a backend.
type Runner struct {
	backend Backend
	cfg     Config
	log     logger.Logger
}

// NewRunner creates a runner.
func NewRunner(backend Backend, cfg Config) *Runner {
	return &Runner{
		backend: backend,
		cfg:     cfg.withDefaults(),
		log:     logger.Named("replay"),
	}
}

// Run replays one snapshot. A team without an id gets a fresh one; an
// existing history is submitted as is before the first week.
func (r *Runner) Run(ctx context.Context, snap model.Snapshot) (Result, error) { //nolint:gocritic // snapshots are values
	start := time.Now()
	team := snap.Team
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	res := Result{TeamID: team.ID}

	version, err := r.backend.PutTeam(ctx, team)
	if err != nil {
		return res, fmt.Errorf("store team: %w", err)
	}
	res.Version = version

	if len(snap.History) > 0 {
		receipt, err := r.record(ctx, team.ID, "history", snap.History, false)
		if err != nil {
			return res, fmt.Errorf("submit history: %w", err)
		}
		res.Version = receipt.Version
	}

	day := r.firstDay(snap.History)
	for res.Weeks < r.cfg.MaxWeeks {
		plan, err := r.plan(ctx, team.ID)
		if err != nil {
			return res, err
		}
		res.FourthFloor = plan.FourthFloor
		if complete(&plan) {
			res.Complete = true
			break
		}

		records := nextWeek(&plan, day)
		if len(records) == 0 {
			r.log.Warn(ctx, "planned week hands out nothing",
				logger.String("team_id", team.ID.String()),
				logger.Int("week", res.Weeks+1))
			break
		}
		receipt, err := r.record(ctx, team.ID, fmt.Sprintf("w%d", res.Weeks+1), records, true)
		if err != nil {
			return res, fmt.Errorf("record week %d: %w", res.Weeks+1, err)
		}
		res.Weeks++
		res.Records += len(receipt.Records)
		res.Version = receipt.Version
		if r.cfg.Verbose {
			r.log.Info(ctx, "week recorded",
				logger.String("team_id", team.ID.String()),
				logger.String("day", day.Key()),
				logger.Int("records", len(receipt.Records)),
				logger.Uint64("version", receipt.Version))
		}
		day = model.Date{Time: day.AddDate(0, 0, 7)}
	}

	if !res.Complete {
		// The cap may have been hit right after the final week.
		plan, err := r.plan(ctx, team.ID)
		if err != nil {
			return res, err
		}
		res.Complete = complete(&plan)
		res.FourthFloor = plan.FourthFloor
	}
	res.Duration = time.Since(start)
	r.log.Info(ctx, "replay finished",
		logger.String("team_id", team.ID.String()),
		logger.Int("weeks", res.Weeks),
		logger.Int("records", res.Records),
		logger.Bool("complete", res.Complete),
		logger.Duration("duration", res.Duration))
	return res, nil
}

// RunAll replays snapshots concurrently with at most limit in flight.
// Results keep the order of snaps.
func (r *Runner) RunAll(ctx context.Context, snaps []model.Snapshot, limit int) ([]Result, error) {
	results := make([]Result, len(snaps))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range snaps {
		g.Go(func() error {
			res, err := r.Run(ctx, snaps[i])
			if err != nil {
				return fmt.Errorf("snapshot %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) firstDay(history []model.LootRecord) model.Date {
	if !r.cfg.Start.IsZero() {
		s := r.cfg.Start.UTC()
		return model.NewDate(s.Year(), s.Month(), s.Day())
	}
	if last, ok := lastDay(history); ok {
		return model.Date{Time: last.AddDate(0, 0, 7)}
	}
	now := time.Now().UTC()
	return model.NewDate(now.Year(), now.Month(), now.Day())
}

func (r *Runner) plan(ctx context.Context, id uuid.UUID) (solver.Plan, error) {
	raw, err := r.backend.Plan(ctx, id, r.cfg.Conservative)
	if err != nil {
		return solver.Plan{}, fmt.Errorf("fetch plan: %w", err)
	}
	var plan solver.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return solver.Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return plan, nil
}

// record submits records, retrying while the backend pushes back. The key is
// stable across attempts so a retry never stores twice.
func (r *Runner) record(ctx context.Context, id uuid.UUID, suffix string, records []model.LootRecord, applyGear bool) (model.LootReceipt, error) {
	key := "replay-" + id.String() + "-" + suffix
	var err error
	for attempt := 1; attempt <= r.cfg.Retries; attempt++ {
		var receipt model.LootReceipt
		receipt, err = r.backend.RecordLoot(ctx, id, key, records, applyGear)
		if err == nil || !retryable(err) {
			return receipt, err
		}
		r.log.Debug(ctx, "loot submission pushed back",
			logger.String("key", key),
			logger.Int("attempt", attempt),
			logger.Error(err))
		select {
		case <-ctx.Done():
			return model.LootReceipt{}, ctx.Err()
		case <-time.After(r.cfg.Backoff * time.Duration(attempt)):
		}
	}
	return model.LootReceipt{}, err
}

func retryable(err error) bool {
	if errors.Is(err, queue.ErrFull) || errors.Is(err, dedupe.ErrInFlight) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status == http.StatusConflict
	}
	return false
}

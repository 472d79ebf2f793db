package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/adapters/mq/queue"
	"github.com/okian/lootsolver/internal/adapters/repository"
	"github.com/okian/lootsolver/internal/domain/dedupe"
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/domain/solver"
	"github.com/okian/lootsolver/pkg/logger"
	"github.com/okian/lootsolver/pkg/metrics"
)

// PutTeam validates and stores a team, then queues its re-solve.
func (s *Service) PutTeam(ctx context.Context, team model.Team) (uint64, error) { //nolint:gocritic // teams are values
	const op = "service.PutTeam"
	store, q, err := s.running()
	if err != nil {
		return 0, wrap(op, err)
	}
	if err := s.engine.Validate(team); err != nil {
		return 0, wrap(op, err)
	}
	version, err := store.PutTeam(ctx, team)
	if err != nil {
		return 0, storeErr(op, err)
	}
	s.enqueue(ctx, q, team.ID, version, "team")
	return version, nil
}

// storeErr marks validation failures of the store as invalid input so the
// caller can tell them from missing teams.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrInvalidTeam) || errors.Is(err, repository.ErrInvalidLoot) || errors.Is(err, repository.ErrDuplicateLoot) {
		return wrapKind(op, solver.ErrInvalidInput, err)
	}
	return wrap(op, err)
}

// Team returns a stored team and its version.
func (s *Service) Team(ctx context.Context, id uuid.UUID) (model.Team, uint64, error) {
	const op = "service.Team"
	store, _, err := s.running()
	if err != nil {
		return model.Team{}, 0, wrap(op, err)
	}
	team, version, err := store.Team(ctx, id)
	if err != nil {
		return model.Team{}, 0, wrap(op, err)
	}
	return team, version, nil
}

// RecordLoot appends loot records to a team. A non-empty idempotency key
// makes retries return the first submission's records instead of storing
// them twice.
func (s *Service) RecordLoot(ctx context.Context, id uuid.UUID, key string, records []model.LootRecord, applyGear bool) (model.LootReceipt, error) {
	const op = "service.RecordLoot"
	store, q, err := s.running()
	if err != nil {
		return model.LootReceipt{}, wrap(op, err)
	}
	if q.Len(ctx) >= s.queueSize {
		return model.LootReceipt{}, wrapKind(op, ErrBackpressure, queue.ErrFull)
	}

	dk := ""
	if key != "" {
		dk = id.String() + ":" + key
		if ids, seen := s.deduper.Claim(ctx, dk); seen {
			if ids == nil {
				return model.LootReceipt{}, wrap(op, dedupe.ErrInFlight)
			}
			metrics.RecordLootDuplicate()
			return s.replayed(ctx, store, id, ids)
		}
	}

	added, version, err := store.AppendLoot(ctx, id, records, applyGear)
	if err != nil {
		if dk != "" {
			s.deduper.Release(ctx, dk)
		}
		return model.LootReceipt{}, storeErr(op, err)
	}
	if dk != "" {
		ids := make([]string, len(added))
		for i, r := range added {
			ids[i] = r.ID
		}
		s.deduper.Settle(ctx, dk, ids)
	}
	metrics.RecordLootRecorded(len(added))

	s.logger.Debug(ctx, "loot recorded",
		logger.String("team", id.String()),
		logger.Int("records", len(added)),
		logger.Uint64("version", version),
	)
	s.enqueue(ctx, q, id, version, "loot")
	return model.LootReceipt{Records: added, Version: version}, nil
}

// replayed answers a retried submission from the stored history. Records
// deleted since are left out.
func (s *Service) replayed(ctx context.Context, store repository.Store, id uuid.UUID, ids []string) (model.LootReceipt, error) {
	snap, err := store.Snapshot(ctx, id)
	if err != nil {
		return model.LootReceipt{}, fmt.Errorf("service.RecordLoot: %w", err)
	}
	want := make(map[string]struct{}, len(ids))
	for _, rid := range ids {
		want[rid] = struct{}{}
	}
	out := make([]model.LootRecord, 0, len(ids))
	for _, r := range snap.History {
		if _, ok := want[r.ID]; ok {
			out = append(out, r)
		}
	}
	return model.LootReceipt{Records: out, Version: snap.Version, Duplicate: true}, nil
}

// DeleteLoot removes loot records by id and queues a re-solve when anything
// was removed.
func (s *Service) DeleteLoot(ctx context.Context, id uuid.UUID, recordIDs []string) (int, uint64, error) {
	const op = "service.DeleteLoot"
	store, q, err := s.running()
	if err != nil {
		return 0, 0, wrap(op, err)
	}
	removed, version, err := store.DeleteLoot(ctx, id, recordIDs)
	if err != nil {
		return 0, 0, wrap(op, err)
	}
	if removed > 0 {
		metrics.RecordLootDeleted(removed)
		s.enqueue(ctx, q, id, version, "loot_deleted")
	}
	return removed, version, nil
}

// Loot returns the loot history of a team.
func (s *Service) Loot(ctx context.Context, id uuid.UUID) ([]model.LootRecord, error) {
	const op = "service.Loot"
	store, _, err := s.running()
	if err != nil {
		return nil, wrap(op, err)
	}
	records, err := store.Loot(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return records, nil
}

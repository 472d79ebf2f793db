package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/pkg/metrics"
)

const (
	defaultShardCount            = 16
	defaultMetricsUpdateInterval = 5 * time.Second
)

// entry is everything stored for one team.
type entry struct {
	team    model.Team
	history []model.LootRecord
	ids     map[string]struct{}
	version uint64
}

func (e *entry) snapshot() model.Snapshot {
	return model.Snapshot{
		Team:    e.team.Clone(),
		History: cloneRecords(e.history),
		Version: e.version,
	}
}

type shard struct {
	mu    sync.RWMutex
	teams map[uuid.UUID]*entry
}

// MemoryStore is an in-memory Store. Teams are spread over lock shards by
// the xxhash of their id so writes to different teams rarely contend.
type MemoryStore struct {
	shards                []*shard
	shardCount            int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store and starts its metrics updater, which runs
// until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{teams: make(map[uuid.UUID]*entry)}
	}

	metrics.UpdateRepositoryShardCount(s.shardCount)
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) shardFor(id uuid.UUID) *shard {
	return s.shards[xxhash.Sum64(id[:])%uint64(len(s.shards))]
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// PutTeam implements Store.
func (s *MemoryStore) PutTeam(ctx context.Context, team model.Team) (uint64, error) {
	const op = "repository.PutTeam"
	defer observe(time.Now(), metrics.RecordRepositoryUpdateLatency)

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := validateTeam(team); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sh := s.shardFor(team.ID)
	sh.mu.Lock()
	e, ok := sh.teams[team.ID]
	if !ok {
		e = &entry{ids: make(map[string]struct{})}
		sh.teams[team.ID] = e
	}
	e.team = team.Clone()
	e.version++
	version := e.version
	sh.mu.Unlock()

	if !ok {
		metrics.UpdateTeamsTotal(s.Count(ctx))
	}
	return version, nil
}

// Team implements Store.
func (s *MemoryStore) Team(ctx context.Context, id uuid.UUID) (model.Team, uint64, error) {
	const op = "repository.Team"
	defer observe(time.Now(), metrics.RecordRepositoryQueryLatency)

	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.teams[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Team{}, 0, fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return e.team.Clone(), e.version, nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(ctx context.Context, id uuid.UUID) (model.Snapshot, error) {
	const op = "repository.Snapshot"
	defer observe(time.Now(), metrics.RecordRepositoryQueryLatency)

	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.teams[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Snapshot{}, fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return e.snapshot(), nil
}

// AppendLoot implements Store. Either every record is stored or none is.
func (s *MemoryStore) AppendLoot(ctx context.Context, id uuid.UUID, records []model.LootRecord, applyGear bool) ([]model.LootRecord, uint64, error) {
	const op = "repository.AppendLoot"
	defer observe(time.Now(), metrics.RecordRepositoryUpdateLatency)

	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.teams[id]
	if !ok {
		return nil, 0, fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}

	added := make([]model.LootRecord, len(records))
	seen := make(map[string]struct{}, len(records))
	team := e.team.Clone()
	for i, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, dup := e.ids[r.ID]; dup {
			return nil, 0, fmt.Errorf("%s: record %q: %w", op, r.ID, ErrDuplicateLoot)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, 0, fmt.Errorf("%s: record %q: %w", op, r.ID, ErrDuplicateLoot)
		}
		seen[r.ID] = struct{}{}

		if err := validateRecord(&team, r); err != nil {
			return nil, 0, fmt.Errorf("%s: record %q: %w", op, r.ID, err)
		}
		if applyGear && r.Consumes() {
			m, _ := team.Member(*r.Member)
			if _, err := m.Gear.Award(team.Tier, r.Category); err != nil && !errors.Is(err, model.ErrNotNeeded) {
				return nil, 0, fmt.Errorf("%s: record %q: %w", op, r.ID, err)
			}
		}
		added[i] = r
	}

	for _, r := range added {
		e.ids[r.ID] = struct{}{}
	}
	e.history = append(e.history, added...)
	e.team = team
	e.version++
	return cloneRecords(added), e.version, nil
}

// DeleteLoot implements Store. Unknown ids are ignored; the version only
// moves when something was removed.
func (s *MemoryStore) DeleteLoot(ctx context.Context, id uuid.UUID, recordIDs []string) (int, uint64, error) {
	const op = "repository.DeleteLoot"
	defer observe(time.Now(), metrics.RecordRepositoryUpdateLatency)

	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.teams[id]
	if !ok {
		return 0, 0, fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}

	drop := make(map[string]struct{}, len(recordIDs))
	for _, rid := range recordIDs {
		drop[rid] = struct{}{}
	}
	kept := e.history[:0:0]
	for _, r := range e.history {
		if _, ok := drop[r.ID]; ok {
			delete(e.ids, r.ID)
			continue
		}
		kept = append(kept, r)
	}
	removed := len(e.history) - len(kept)
	if removed > 0 {
		e.history = kept
		e.version++
	}
	return removed, e.version, nil
}

// Loot implements Store.
func (s *MemoryStore) Loot(ctx context.Context, id uuid.UUID) ([]model.LootRecord, error) {
	const op = "repository.Loot"
	defer observe(time.Now(), metrics.RecordRepositoryQueryLatency)

	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.teams[id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return cloneRecords(e.history), nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.teams)
		sh.mu.RUnlock()
	}
	return n
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	teams, records := 0, 0
	for i, sh := range s.shards {
		sh.mu.RLock()
		n := len(sh.teams)
		for _, e := range sh.teams {
			records += len(e.history)
		}
		sh.mu.RUnlock()

		teams += n
		metrics.UpdateRepositoryTeamsPerShard("shard_"+strconv.Itoa(i), n)
	}
	metrics.UpdateTeamsTotal(teams)
	metrics.UpdateRepositoryLootRecords(records)
}

func validateTeam(team model.Team) error {
	if team.ID == uuid.Nil {
		return fmt.Errorf("team id is required: %w", ErrInvalidTeam)
	}
	if len(team.Members) > model.MaxMembers {
		return fmt.Errorf("team has %d members, at most %d allowed: %w", len(team.Members), model.MaxMembers, ErrInvalidTeam)
	}
	seen := make(map[model.MemberID]struct{}, len(team.Members))
	for _, m := range team.Members {
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("member %d listed twice: %w", m.ID, ErrInvalidTeam)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

func validateRecord(team *model.Team, r model.LootRecord) error { //nolint:gocritic // records are small values
	if !r.Category.Known() {
		return fmt.Errorf("%w: %w", ErrInvalidLoot, model.ErrInvalidCategory)
	}
	if r.Obtained.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidLoot, model.ErrInvalidDate)
	}
	if r.Member != nil {
		if _, ok := team.Member(*r.Member); !ok {
			return fmt.Errorf("%w: member %d: %w", ErrInvalidLoot, *r.Member, model.ErrUnknownMember)
		}
	}
	return nil
}

func cloneRecords(in []model.LootRecord) []model.LootRecord {
	out := make([]model.LootRecord, len(in))
	for i, r := range in {
		if r.Member != nil {
			r.Member = model.Ref(*r.Member)
		}
		out[i] = r
	}
	return out
}

func observe(start time.Time, record func(float64)) {
	record(float64(time.Since(start).Milliseconds()))
}

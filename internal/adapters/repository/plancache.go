package repository

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// PlanKey identifies one computed plan. Plans are pure functions of a team
// version and the solve mode, so the key never needs updating.
type PlanKey struct {
	TeamID  uuid.UUID
	Version uint64
	Mode    string
	// Settings fingerprints the engine configuration. Keys differing only in
	// Settings never share an entry.
	Settings string
}

func (k PlanKey) String() string {
	s := k.TeamID.String() + ":" + strconv.FormatUint(k.Version, 10) + ":" + k.Mode
	if k.Settings != "" {
		s += ":" + k.Settings
	}
	return s
}

// variant names the plan of a key among the plans of one team version.
func (k PlanKey) variant() string {
	return k.Mode + ":" + k.Settings
}

// PlanCache stores encoded plans.
type PlanCache interface {
	// Get returns the encoded plan and whether it was found.
	Get(ctx context.Context, key PlanKey) ([]byte, bool, error)
	// Set stores an encoded plan.
	Set(ctx context.Context, key PlanKey, plan []byte) error
	// Invalidate drops every cached plan of a team.
	Invalidate(ctx context.Context, teamID uuid.UUID) error
	// Backend names the implementation for metrics.
	Backend() string
}

// MemoryPlanCache keeps plans of the newest version of each team only.
type MemoryPlanCache struct {
	mu    sync.RWMutex
	teams map[uuid.UUID]*cachedTeam
}

type cachedTeam struct {
	version uint64
	plans   map[string][]byte
}

var _ PlanCache = (*MemoryPlanCache)(nil)

// NewMemoryPlanCache creates an empty in-process plan cache.
func NewMemoryPlanCache() *MemoryPlanCache {
	return &MemoryPlanCache{teams: make(map[uuid.UUID]*cachedTeam)}
}

// Get implements PlanCache.
func (c *MemoryPlanCache) Get(_ context.Context, key PlanKey) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.teams[key.TeamID]
	if !ok || t.version != key.Version {
		return nil, false, nil
	}
	plan, ok := t.plans[key.variant()]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), plan...), true, nil
}

// Set implements PlanCache. Writes for a version older than the cached one
// are dropped.
func (c *MemoryPlanCache) Set(_ context.Context, key PlanKey, plan []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.teams[key.TeamID]
	switch {
	case !ok || t.version < key.Version:
		t = &cachedTeam{version: key.Version, plans: make(map[string][]byte)}
		c.teams[key.TeamID] = t
	case t.version > key.Version:
		return nil
	}
	t.plans[key.variant()] = append([]byte(nil), plan...)
	return nil
}

// Invalidate implements PlanCache.
func (c *MemoryPlanCache) Invalidate(_ context.Context, teamID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.teams, teamID)
	return nil
}

// Backend implements PlanCache.
func (c *MemoryPlanCache) Backend() string { return BackendMemory }

// Len returns the number of teams with cached plans.
func (c *MemoryPlanCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.teams)
}

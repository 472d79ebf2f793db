package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newRedisCache(t *testing.T, opts ...RedisOption) (*RedisPlanCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	c := NewRedisPlanCache(client, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

// exercisePlanCache runs the behaviour every backend shares.
func exercisePlanCache(t *testing.T, c PlanCache) {
	t.Helper()
	ctx := context.Background()
	team := uuid.New()
	key := PlanKey{TeamID: team, Version: 1, Mode: "standard"}

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, key, []byte(`{"fourth_floor":{}}`)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != `{"fourth_floor":{}}` {
		t.Errorf("unexpected plan %s", got)
	}

	other := key
	other.Mode = "conservative"
	if _, ok, _ := c.Get(ctx, other); ok {
		t.Error("modes must not share entries")
	}
	newer := key
	newer.Version = 2
	if _, ok, _ := c.Get(ctx, newer); ok {
		t.Error("versions must not share entries")
	}
	tuned := key
	tuned.Settings = "5f1c"
	if _, ok, _ := c.Get(ctx, tuned); ok {
		t.Error("engine settings must not share entries")
	}

	for _, k := range []PlanKey{other, tuned} {
		if err := c.Set(ctx, k, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	if got, ok, _ := c.Get(ctx, key); !ok || string(got) != `{"fourth_floor":{}}` {
		t.Errorf("other variants overwrote the plan: ok=%v plan=%s", ok, got)
	}
	if err := c.Invalidate(ctx, team); err != nil {
		t.Fatal(err)
	}
	for _, k := range []PlanKey{key, other, tuned} {
		if _, ok, _ := c.Get(ctx, k); ok {
			t.Errorf("%s survived invalidation", k)
		}
	}
	if err := c.Invalidate(ctx, uuid.New()); err != nil {
		t.Errorf("invalidating an unknown team failed: %v", err)
	}
}

func TestMemoryPlanCache(t *testing.T) {
	c := NewMemoryPlanCache()
	if c.Backend() != BackendMemory {
		t.Errorf("unexpected backend %q", c.Backend())
	}
	exercisePlanCache(t, c)
}

func TestMemoryPlanCache_KeepsNewestVersion(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryPlanCache()
	team := uuid.New()

	v2 := PlanKey{TeamID: team, Version: 2, Mode: "standard"}
	v1 := PlanKey{TeamID: team, Version: 1, Mode: "standard"}
	if err := c.Set(ctx, v2, []byte("two")); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, v1, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, v1); ok {
		t.Error("older version should not be stored")
	}
	if got, ok, _ := c.Get(ctx, v2); !ok || string(got) != "two" {
		t.Errorf("newer version lost, got %q", got)
	}

	v3 := PlanKey{TeamID: team, Version: 3, Mode: "standard"}
	if err := c.Set(ctx, v3, []byte("three")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, v2); ok {
		t.Error("superseded version should be evicted")
	}
	if c.Len() != 1 {
		t.Errorf("expected one cached team, got %d", c.Len())
	}

	// Returned bytes are copies.
	got, _, _ := c.Get(ctx, v3)
	got[0] = 'X'
	if again, _, _ := c.Get(ctx, v3); string(again) != "three" {
		t.Errorf("cache shares bytes with caller: %q", again)
	}
}

func TestRedisPlanCache(t *testing.T) {
	c, _ := newRedisCache(t)
	if c.Backend() != BackendRedis {
		t.Errorf("unexpected backend %q", c.Backend())
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	exercisePlanCache(t, c)
}

func TestRedisPlanCache_KeysAndTTL(t *testing.T) {
	c, s := newRedisCache(t, WithPrefix("test:"), WithTTL(time.Minute))
	ctx := context.Background()
	key := PlanKey{TeamID: uuid.MustParse("0b8f3a30-0000-4000-8000-000000000001"), Version: 7, Mode: "standard"}

	if err := c.Set(ctx, key, []byte("plan")); err != nil {
		t.Fatal(err)
	}
	want := "test:plan:0b8f3a30-0000-4000-8000-000000000001:7:standard"
	if !s.Exists(want) {
		t.Fatalf("expected key %s, have %v", want, s.Keys())
	}
	tuned := key
	tuned.Settings = "9a3e"
	if err := c.Set(ctx, tuned, []byte("tuned")); err != nil {
		t.Fatal(err)
	}
	if !s.Exists(want + ":9a3e") {
		t.Fatalf("expected key %s:9a3e, have %v", want, s.Keys())
	}
	if ttl := s.TTL(want); ttl != time.Minute {
		t.Errorf("expected one minute ttl, got %v", ttl)
	}

	s.FastForward(2 * time.Minute)
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Errorf("expected expired plan, got ok=%v err=%v", ok, err)
	}
}

func TestRedisPlanCache_InvalidateLeavesOtherTeams(t *testing.T) {
	c, s := newRedisCache(t)
	ctx := context.Background()
	a := PlanKey{TeamID: uuid.New(), Version: 1, Mode: "standard"}
	b := PlanKey{TeamID: uuid.New(), Version: 1, Mode: "standard"}
	for _, k := range []PlanKey{a, b} {
		if err := c.Set(ctx, k, []byte("p")); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Invalidate(ctx, a.TeamID); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Keys()); n != 1 {
		t.Errorf("expected one remaining key, got %d", n)
	}
	if _, ok, _ := c.Get(ctx, b); !ok {
		t.Error("other team's plan was removed")
	}
}

func TestRedisPlanCache_Unreachable(t *testing.T) {
	c, s := newRedisCache(t)
	s.Close()

	ctx := context.Background()
	key := PlanKey{TeamID: uuid.New(), Version: 1, Mode: "standard"}
	if _, _, err := c.Get(ctx, key); err == nil {
		t.Error("expected an error from a closed server")
	}
	if err := c.Set(ctx, key, []byte("p")); err == nil {
		t.Error("expected an error from a closed server")
	}
}

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
)

var (
	testTier = gear.Tier{Name: "Test", MaxItemLevel: 660, RaidGearName: "Raid", TomeGearName: "Augmented Tome"}
	raidItem = gear.Item{Name: "Raid", ItemLevel: 660, Weapon: true, Armour: true, Accessories: true}
	oldItem  = gear.Item{Name: "Crafted", ItemLevel: 640, Weapon: true, Armour: true, Accessories: true}
)

func testTeam() model.Team {
	g := model.GearSet{}
	for _, s := range gear.Slots() {
		if s == gear.SlotOffhand {
			continue
		}
		g[s] = model.SlotGear{Desired: raidItem, Current: oldItem}
	}
	return model.Team{
		ID:   uuid.New(),
		Name: "Static",
		Tier: testTier,
		Members: []model.Member{
			{ID: 1, Name: "Tank", Job: "WAR", Gear: g},
			{ID: 2, Name: "Healer", Job: "WHM", Gear: g.Clone()},
		},
	}
}

func day(d int) model.Date { return model.NewDate(2024, time.January, d) }

func TestMemoryStore_TeamLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx, WithShardCount(4))
	defer store.Close()

	if n := store.Count(ctx); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}

	team := testTeam()
	v, err := store.PutTeam(ctx, team)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Errorf("expected version 1, got %d", v)
	}

	got, gv, err := store.Team(ctx, team.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gv != 1 || got.Name != "Static" || len(got.Members) != 2 {
		t.Errorf("unexpected team %+v at version %d", got, gv)
	}

	// The stored copy must not alias the caller's maps.
	team.Members[0].Gear[gear.SlotHead] = model.SlotGear{Desired: raidItem, Current: raidItem}
	got, _, _ = store.Team(ctx, team.ID)
	if got.Members[0].Gear[gear.SlotHead].Satisfied() {
		t.Error("store shares gear with caller")
	}

	team.Name = "Renamed"
	v, err = store.PutTeam(ctx, team)
	if err != nil || v != 2 {
		t.Fatalf("expected version 2, got %d (%v)", v, err)
	}
	if n := store.Count(ctx); n != 1 {
		t.Errorf("expected 1 team, got %d", n)
	}

	if _, _, err := store.Team(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Snapshot(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_InvalidTeam(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()

	team := testTeam()
	team.ID = uuid.Nil
	if _, err := store.PutTeam(ctx, team); !errors.Is(err, ErrInvalidTeam) {
		t.Errorf("expected ErrInvalidTeam for nil id, got %v", err)
	}

	team = testTeam()
	team.Members[1].ID = 1
	if _, err := store.PutTeam(ctx, team); !errors.Is(err, ErrInvalidTeam) {
		t.Errorf("expected ErrInvalidTeam for duplicate member, got %v", err)
	}

	team = testTeam()
	for i := 3; i <= 9; i++ {
		team.Members = append(team.Members, model.Member{ID: model.MemberID(i), Job: "BLM"})
	}
	if _, err := store.PutTeam(ctx, team); !errors.Is(err, ErrInvalidTeam) {
		t.Errorf("expected ErrInvalidTeam for 9 members, got %v", err)
	}
}

func TestMemoryStore_AppendLoot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()

	team := testTeam()
	if _, err := store.PutTeam(ctx, team); err != nil {
		t.Fatal(err)
	}

	added, v, err := store.AppendLoot(ctx, team.ID, []model.LootRecord{
		{Category: gear.CategoryHead, Member: model.Ref(1), Obtained: day(2)},
		{ID: "greed", Category: gear.CategoryBody, Member: model.Ref(2), Obtained: day(2), Greed: true},
		{ID: "nobody", Category: gear.CategoryHands, Obtained: day(2)},
	}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Errorf("expected version 2, got %d", v)
	}
	if len(added) != 3 || added[0].ID == "" || added[1].ID != "greed" {
		t.Fatalf("unexpected records %+v", added)
	}

	snap, err := store.Snapshot(ctx, team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != 2 || len(snap.History) != 3 {
		t.Fatalf("unexpected snapshot version %d with %d records", snap.Version, len(snap.History))
	}
	m1, _ := snap.Team.Member(1)
	if !m1.Gear[gear.SlotHead].Satisfied() {
		t.Error("need drop should equip the head")
	}
	m2, _ := snap.Team.Member(2)
	if m2.Gear[gear.SlotBody].Satisfied() {
		t.Error("greed drop must not change gear")
	}

	// Recording the same head again is not needed anymore but still stored.
	if _, _, err := store.AppendLoot(ctx, team.ID, []model.LootRecord{
		{Category: gear.CategoryHead, Member: model.Ref(1), Obtained: day(9)},
	}, true); err != nil {
		t.Errorf("unneeded drop should be accepted, got %v", err)
	}

	// Without applyGear the gear stays put.
	if _, _, err := store.AppendLoot(ctx, team.ID, []model.LootRecord{
		{Category: gear.CategoryFeet, Member: model.Ref(2), Obtained: day(9)},
	}, false); err != nil {
		t.Fatal(err)
	}
	snap, _ = store.Snapshot(ctx, team.ID)
	m2, _ = snap.Team.Member(2)
	if m2.Gear[gear.SlotFeet].Satisfied() {
		t.Error("gear changed without applyGear")
	}
	if snap.Version != 4 {
		t.Errorf("expected version 4, got %d", snap.Version)
	}
}

func TestMemoryStore_AppendLootIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()

	team := testTeam()
	if _, err := store.PutTeam(ctx, team); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.AppendLoot(ctx, team.ID, []model.LootRecord{
		{ID: "a", Category: gear.CategoryHead, Member: model.Ref(1), Obtained: day(2)},
	}, true); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		records []model.LootRecord
		want    error
	}{
		{"stored id", []model.LootRecord{{ID: "a", Category: gear.CategoryBody, Obtained: day(3)}}, ErrDuplicateLoot},
		{"repeated id", []model.LootRecord{
			{ID: "b", Category: gear.CategoryBody, Obtained: day(3)},
			{ID: "b", Category: gear.CategoryLegs, Obtained: day(3)},
		}, ErrDuplicateLoot},
		{"unknown category", []model.LootRecord{{Category: "cape", Obtained: day(3)}}, model.ErrInvalidCategory},
		{"unknown member", []model.LootRecord{{Category: gear.CategoryBody, Member: model.Ref(7), Obtained: day(3)}}, model.ErrUnknownMember},
		{"missing date", []model.LootRecord{{Category: gear.CategoryBody}}, model.ErrInvalidDate},
		{"valid then invalid", []model.LootRecord{
			{Category: gear.CategoryBody, Member: model.Ref(1), Obtained: day(3)},
			{Category: gear.CategoryBody, Member: model.Ref(9), Obtained: day(3)},
		}, ErrInvalidLoot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := store.AppendLoot(ctx, team.ID, tc.records, true); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
			snap, _ := store.Snapshot(ctx, team.ID)
			if len(snap.History) != 1 || snap.Version != 2 {
				t.Errorf("failed append changed state: %d records at version %d", len(snap.History), snap.Version)
			}
			m1, _ := snap.Team.Member(1)
			if m1.Gear[gear.SlotBody].Satisfied() {
				t.Error("failed append changed gear")
			}
		})
	}

	if _, _, err := store.AppendLoot(ctx, uuid.New(), nil, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_DeleteLoot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()

	team := testTeam()
	if _, err := store.PutTeam(ctx, team); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.AppendLoot(ctx, team.ID, []model.LootRecord{
		{ID: "a", Category: gear.CategoryHead, Member: model.Ref(1), Obtained: day(2)},
		{ID: "b", Category: gear.CategoryBody, Member: model.Ref(2), Obtained: day(2)},
		{ID: "c", Category: gear.CategoryLegs, Member: model.Ref(1), Obtained: day(9)},
	}, false); err != nil {
		t.Fatal(err)
	}

	removed, v, err := store.DeleteLoot(ctx, team.ID, []string{"a", "c", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 || v != 3 {
		t.Errorf("expected 2 removed at version 3, got %d at %d", removed, v)
	}

	loot, err := store.Loot(ctx, team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loot) != 1 || loot[0].ID != "b" {
		t.Errorf("unexpected remaining loot %+v", loot)
	}

	removed, v, _ = store.DeleteLoot(ctx, team.ID, []string{"missing"})
	if removed != 0 || v != 3 {
		t.Errorf("no-op delete moved version: %d removed at %d", removed, v)
	}

	// A deleted id can be recorded again.
	if _, _, err := store.AppendLoot(ctx, team.ID, []model.LootRecord{
		{ID: "a", Category: gear.CategoryHead, Member: model.Ref(1), Obtained: day(2)},
	}, false); err != nil {
		t.Errorf("re-adding deleted id failed: %v", err)
	}

	// Loot returns copies.
	loot, _ = store.Loot(ctx, team.ID)
	*loot[0].Member = 5
	again, _ := store.Loot(ctx, team.ID)
	if *again[0].Member != 2 {
		t.Errorf("loot shares member pointers with caller, got member %d", *again[0].Member)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(ctx, WithShardCount(8))
	defer store.Close()

	const teams = 32
	ids := make([]uuid.UUID, teams)
	for i := range ids {
		team := testTeam()
		ids[i] = team.ID
		if _, err := store.PutTeam(ctx, team); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					if _, _, err := store.AppendLoot(ctx, id, []model.LootRecord{
						{Category: gear.CategoryMount, Obtained: day(1 + i)},
					}, false); err != nil {
						t.Error(err)
					}
					if _, err := store.Snapshot(ctx, id); err != nil {
						t.Error(err)
					}
				}
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		snap, err := store.Snapshot(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if len(snap.History) != 40 || snap.Version != 41 {
			t.Errorf("team %s: %d records at version %d", id, len(snap.History), snap.Version)
		}
	}
	if n := store.Count(ctx); n != teams {
		t.Errorf("expected %d teams, got %d", teams, n)
	}
}

func TestMemoryStore_Close(t *testing.T) {
	store := NewMemoryStore(context.Background(), WithMetricsUpdateInterval(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func BenchmarkMemoryStore_AppendLoot(b *testing.B) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()

	ids := make([]uuid.UUID, 64)
	for i := range ids {
		team := testTeam()
		ids[i] = team.ID
		if _, err := store.PutTeam(ctx, team); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			id := ids[i%len(ids)]
			if _, _, err := store.AppendLoot(ctx, id, []model.LootRecord{
				{Category: gear.CategoryMount, Obtained: day(1)},
			}, false); err != nil {
				b.Error(err)
			}
			i++
		}
	})
}

func BenchmarkMemoryStore_Snapshot(b *testing.B) {
	ctx := context.Background()
	store := NewMemoryStore(ctx)
	defer store.Close()

	team := testTeam()
	if _, err := store.PutTeam(ctx, team); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Snapshot(ctx, team.ID); err != nil {
			b.Fatal(err)
		}
	}
}

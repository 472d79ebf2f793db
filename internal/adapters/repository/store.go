// Package repository stores teams with their loot history and caches the
// plans computed from them.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/domain/model"
)

// Store provides versioned read/write access to teams and their loot.
// Every mutation of a team bumps its version by one.
type Store interface {
	// PutTeam creates or replaces a team, keeping its loot history.
	// Returns the new version.
	PutTeam(ctx context.Context, team model.Team) (uint64, error)

	// Team returns a copy of the stored team and its version.
	// Returns ErrNotFound if the team is unknown.
	Team(ctx context.Context, id uuid.UUID) (model.Team, uint64, error)

	// Snapshot returns a consistent copy of a team and its history.
	Snapshot(ctx context.Context, id uuid.UUID) (model.Snapshot, error)

	// AppendLoot validates and appends records atomically. Records without
	// an id get one. When applyGear is set, need records awarded to a
	// member also equip the item they grant.
	AppendLoot(ctx context.Context, id uuid.UUID, records []model.LootRecord, applyGear bool) ([]model.LootRecord, uint64, error)

	// DeleteLoot removes the records with the given ids and reports how
	// many were removed. Gear is left untouched.
	DeleteLoot(ctx context.Context, id uuid.UUID, recordIDs []string) (int, uint64, error)

	// Loot returns the loot history of a team in insertion order.
	Loot(ctx context.Context, id uuid.UUID) ([]model.LootRecord, error)

	// Count returns the number of stored teams.
	Count(ctx context.Context) int
}

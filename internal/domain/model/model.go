// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/lootsolver/internal/domain/gear"
)

// MaxMembers is the size of a full raid team.
const MaxMembers = 8

// MemberID identifies a team member.
type MemberID int

// SlotGear holds the target and the equipped item for one slot.
type SlotGear struct {
	Desired gear.Item `json:"bis"`
	Current gear.Item `json:"current"`
}

// Satisfied reports whether the slot already holds its target item.
func (s SlotGear) Satisfied() bool {
	return s.Desired.Same(s.Current)
}

// GearSet maps each equipment slot to its desired and current item.
type GearSet map[gear.Slot]SlotGear

// Clone returns an independent copy of g.
func (g GearSet) Clone() GearSet {
	if g == nil {
		return nil
	}
	out := make(GearSet, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// Member is one raider on a team.
type Member struct {
	ID   MemberID   `json:"id"`
	Name string     `json:"name"`
	Lead bool       `json:"lead"`
	Job  gear.JobID `json:"job"`
	Gear GearSet    `json:"gear"`
}

// Team is a raid roster bound to a tier.
type Team struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	Tier          gear.Tier          `json:"tier"`
	Members       []Member           `json:"members"`
	RankOverrides map[gear.JobID]int `json:"rank_overrides,omitempty"`
}

// Member returns the member with the given id.
func (t *Team) Member(id MemberID) (*Member, bool) {
	for i := range t.Members {
		if t.Members[i].ID == id {
			return &t.Members[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of t so stored teams never share maps with callers.
func (t Team) Clone() Team {
	out := t
	out.Members = make([]Member, len(t.Members))
	for i, m := range t.Members {
		m.Gear = m.Gear.Clone()
		out.Members[i] = m
	}
	if t.RankOverrides != nil {
		out.RankOverrides = make(map[gear.JobID]int, len(t.RankOverrides))
		for k, v := range t.RankOverrides {
			out.RankOverrides[k] = v
		}
	}
	return out
}

// LootRecord is the immutable fact that a category dropped on a given day,
// optionally awarded to a member.
type LootRecord struct {
	ID       string        `json:"id"`
	Category gear.Category `json:"item"`
	Member   *MemberID     `json:"member_id"`
	Obtained Date          `json:"obtained"`
	Greed    bool          `json:"greed"`
}

// Consumes reports whether the record satisfies primary demand: it must be
// awarded to a member on need.
func (r LootRecord) Consumes() bool {
	return r.Member != nil && !r.Greed
}

// Snapshot is the consistent, read-only input of a solve.
type Snapshot struct {
	Team    Team         `json:"team"`
	History []LootRecord `json:"history"`
	Version uint64       `json:"version"`
}

// SolveRequest asks the workers to recompute the plan of a team.
type SolveRequest struct {
	TeamID   uuid.UUID
	Version  uint64
	Reason   string
	Enqueued time.Time
}

// Ref returns a pointer to id; handy for building loot records.
func Ref(id MemberID) *MemberID { return &id }

// LootReceipt is the outcome of a loot submission. Duplicate is set when an
// idempotent retry was answered from the first submission.
type LootReceipt struct {
	Records   []LootRecord `json:"records"`
	Version   uint64       `json:"version"`
	Duplicate bool         `json:"duplicate"`
}

package solver

import (
	"fmt"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
)

// Requirements maps a loot category to the members who still need it, in
// roster order. Members repeat only in the token categories, once per slot
// still on the tome item.
type Requirements map[gear.Category][]model.MemberID

// Clone returns a deep copy of r.
func (r Requirements) Clone() Requirements {
	out := make(Requirements, len(r))
	for c, ids := range r {
		out[c] = append([]model.MemberID(nil), ids...)
	}
	return out
}

// Count returns how many units of c member m still needs.
func (r Requirements) Count(c gear.Category, m model.MemberID) int {
	n := 0
	for _, id := range r[c] {
		if id == m {
			n++
		}
	}
	return n
}

// Total returns the outstanding units across the given categories.
func (r Requirements) Total(categories []gear.Category) int {
	n := 0
	for _, c := range categories {
		n += len(r[c])
	}
	return n
}

// remove drops the first occurrence of m from c. Empty categories are deleted.
func (r Requirements) remove(c gear.Category, m model.MemberID) bool {
	ids := r[c]
	for i, id := range ids {
		if id != m {
			continue
		}
		ids = append(ids[:i:i], ids[i+1:]...)
		if len(ids) == 0 {
			delete(r, c)
		} else {
			r[c] = ids
		}
		return true
	}
	return false
}

type memberCategory struct {
	member   model.MemberID
	category gear.Category
}

// Analysis is the outcome of comparing every member's desired and current gear.
type Analysis struct {
	Requirements Requirements
	satisfied    map[memberCategory]int
}

// Satisfied returns how many of m's slots in category c already hold their
// raid or tome target.
func (a Analysis) Satisfied(m model.MemberID, c gear.Category) int {
	return a.satisfied[memberCategory{member: m, category: c}]
}

// Analyze builds the requirements map of a team and validates its shape.
func Analyze(team model.Team, catalogue *gear.Catalogue) (Analysis, error) {
	const op = "solver.analyze"
	a := Analysis{
		Requirements: make(Requirements),
		satisfied:    make(map[memberCategory]int),
	}
	if len(team.Members) > model.MaxMembers {
		return Analysis{}, invalid(op, "team has %d members, at most %d allowed", len(team.Members), model.MaxMembers)
	}

	seen := make(map[model.MemberID]struct{}, len(team.Members))
	for _, m := range team.Members {
		if _, dup := seen[m.ID]; dup {
			return Analysis{}, invalid(op, "member %d listed twice", m.ID)
		}
		seen[m.ID] = struct{}{}

		job, ok := catalogue.Job(m.Job)
		if !ok {
			return Analysis{}, wrapKind(op, ErrInvalidInput, fmt.Errorf("member %d has job %q: %w", m.ID, m.Job, ErrUnknownJob))
		}
		if err := validateGear(m); err != nil {
			return Analysis{}, wrapKind(op, ErrInvalidInput, err)
		}
		a.collect(team.Tier, m, job)
	}
	return a, nil
}

func (a Analysis) collect(tier gear.Tier, m model.Member, job gear.Job) {
	weaponNeeded := false
	for _, s := range gear.Slots() {
		sg, ok := m.Gear[s]
		if !ok {
			continue
		}
		if s == gear.SlotOffhand && !job.DistinctOffhand {
			continue
		}

		switch {
		case tier.IsRaid(sg.Desired):
			c := s.RaidCategory()
			if sg.Satisfied() {
				if s != gear.SlotOffhand {
					a.satisfied[memberCategory{member: m.ID, category: c}]++
				}
				continue
			}
			if c == gear.CategoryMainhand {
				if weaponNeeded {
					continue
				}
				weaponNeeded = true
			}
			a.Requirements[c] = append(a.Requirements[c], m.ID)
		case tier.IsTome(sg.Desired):
			c, ok := s.TomeCategory()
			if !ok {
				continue
			}
			if sg.Satisfied() {
				a.satisfied[memberCategory{member: m.ID, category: c}]++
				continue
			}
			a.Requirements[c] = append(a.Requirements[c], m.ID)
		}
	}
}

func validateGear(m model.Member) error {
	for s, sg := range m.Gear {
		if !s.Valid() {
			return fmt.Errorf("member %d: unknown slot %q", m.ID, s)
		}
		if tagged(sg.Desired) && !sg.Desired.Fits(s.Kind()) {
			return fmt.Errorf("member %d: %s cannot be worn in %s", m.ID, sg.Desired, s)
		}
	}
	for _, s := range gear.Slots() {
		if s == gear.SlotOffhand {
			continue
		}
		if _, ok := m.Gear[s]; !ok {
			return fmt.Errorf("member %d: missing slot %s", m.ID, s)
		}
	}
	return nil
}

// tagged reports whether an item declares any slot kind. Untagged items are
// accepted in any slot.
func tagged(i gear.Item) bool {
	return i.Weapon || i.Armour || i.Accessories
}

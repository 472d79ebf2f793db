package gear

import "sort"

// Role is the combat role of a job.
type Role string

// Roles, listed in default priority order.
const (
	RoleDPS    Role = "dps"
	RoleTank   Role = "tank"
	RoleHealer Role = "heal"
)

var roleRank = map[Role]int{
	RoleDPS:    0,
	RoleTank:   1,
	RoleHealer: 2,
}

// JobID is the short identifier of a job, e.g. "PLD".
type JobID string

// Job is one playable job.
type Job struct {
	ID          JobID  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	// Ordering ranks the job inside its role; melee before ranged before casters for dps.
	Ordering int `json:"ordering"`
	// DistinctOffhand is set for the one job whose offhand is a separate item.
	DistinctOffhand bool `json:"distinct_offhand"`
}

// Catalogue is the full list of jobs in the game.
type Catalogue struct {
	jobs  []Job
	index map[JobID]int
}

// NewCatalogue builds a catalogue from jobs. The default order is computed
// once: role, then ordering, then id.
func NewCatalogue(jobs ...Job) *Catalogue {
	c := &Catalogue{
		jobs:  append([]Job(nil), jobs...),
		index: make(map[JobID]int, len(jobs)),
	}
	sort.SliceStable(c.jobs, func(i, j int) bool {
		a, b := c.jobs[i], c.jobs[j]
		if roleRank[a.Role] != roleRank[b.Role] {
			return roleRank[a.Role] < roleRank[b.Role]
		}
		if a.Ordering != b.Ordering {
			return a.Ordering < b.Ordering
		}
		return a.ID < b.ID
	})
	for i, j := range c.jobs {
		c.index[j.ID] = i
	}
	return c
}

// Len returns the number of distinct jobs, N in the global rank space 1..N.
func (c *Catalogue) Len() int { return len(c.jobs) }

// Job looks up a job by id.
func (c *Catalogue) Job(id JobID) (Job, bool) {
	i, ok := c.index[id]
	if !ok {
		return Job{}, false
	}
	return c.jobs[i], true
}

// DefaultOrder returns every job in default priority order.
func (c *Catalogue) DefaultOrder() []Job {
	out := make([]Job, len(c.jobs))
	copy(out, c.jobs)
	return out
}

// DefaultCatalogue returns the game's job list.
func DefaultCatalogue() *Catalogue {
	return NewCatalogue(
		Job{ID: "PLD", Name: "paladin", DisplayName: "Paladin", Role: RoleTank, Ordering: 0, DistinctOffhand: true},
		Job{ID: "WAR", Name: "warrior", DisplayName: "Warrior", Role: RoleTank, Ordering: 1},
		Job{ID: "DRK", Name: "dark knight", DisplayName: "Dark Knight", Role: RoleTank, Ordering: 2},
		Job{ID: "GNB", Name: "gunbreaker", DisplayName: "Gunbreaker", Role: RoleTank, Ordering: 3},
		Job{ID: "WHM", Name: "white mage", DisplayName: "White Mage", Role: RoleHealer, Ordering: 0},
		Job{ID: "SCH", Name: "scholar", DisplayName: "Scholar", Role: RoleHealer, Ordering: 1},
		Job{ID: "AST", Name: "astrologian", DisplayName: "Astrologian", Role: RoleHealer, Ordering: 2},
		Job{ID: "SGE", Name: "sage", DisplayName: "Sage", Role: RoleHealer, Ordering: 3},
		Job{ID: "MNK", Name: "monk", DisplayName: "Monk", Role: RoleDPS, Ordering: 0},
		Job{ID: "DRG", Name: "dragoon", DisplayName: "Dragoon", Role: RoleDPS, Ordering: 1},
		Job{ID: "NIN", Name: "ninja", DisplayName: "Ninja", Role: RoleDPS, Ordering: 2},
		Job{ID: "SAM", Name: "samurai", DisplayName: "Samurai", Role: RoleDPS, Ordering: 3},
		Job{ID: "RPR", Name: "reaper", DisplayName: "Reaper", Role: RoleDPS, Ordering: 4},
		Job{ID: "BRD", Name: "bard", DisplayName: "Bard", Role: RoleDPS, Ordering: 5},
		Job{ID: "MCH", Name: "machinist", DisplayName: "Machinist", Role: RoleDPS, Ordering: 6},
		Job{ID: "DNC", Name: "dancer", DisplayName: "Dancer", Role: RoleDPS, Ordering: 7},
		Job{ID: "BLM", Name: "black mage", DisplayName: "Black Mage", Role: RoleDPS, Ordering: 8},
		Job{ID: "SMN", Name: "summoner", DisplayName: "Summoner", Role: RoleDPS, Ordering: 9},
		Job{ID: "RDM", Name: "red mage", DisplayName: "Red Mage", Role: RoleDPS, Ordering: 10},
	)
}

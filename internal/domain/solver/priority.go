package solver

import (
	"fmt"
	"sort"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
)

// PriorityOrder ranks the team's members. Jobs are placed by the catalogue's
// default order, with overrides pinned to their rank and the remaining jobs
// flowing around them. Members sharing a job keep roster order.
func PriorityOrder(team model.Team, catalogue *gear.Catalogue) ([]model.MemberID, error) {
	const op = "solver.priority_order"
	n := catalogue.Len()

	jobs := make([]gear.JobID, 0, len(team.RankOverrides))
	for job := range team.RankOverrides {
		if _, ok := catalogue.Job(job); ok {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i] < jobs[j] })

	pinned := make(map[int]gear.JobID, len(jobs))
	for _, job := range jobs {
		rank := team.RankOverrides[job]
		if rank < 1 || rank > n {
			return nil, wrapKind(op, ErrInvalidInput, fmt.Errorf("%s at %d, want 1..%d: %w", job, rank, n, ErrInvalidRank))
		}
		if other, dup := pinned[rank]; dup {
			return nil, wrapKind(op, ErrInvalidInput, fmt.Errorf("%s and %s at %d: %w", other, job, rank, ErrDuplicateRank))
		}
		pinned[rank] = job
	}

	queue := make([]gear.JobID, 0, n)
	for _, j := range catalogue.DefaultOrder() {
		if _, ok := team.RankOverrides[j.ID]; !ok {
			queue = append(queue, j.ID)
		}
	}
	ranked := make([]gear.JobID, 0, n)
	for rank := 1; rank <= n; rank++ {
		if job, ok := pinned[rank]; ok {
			ranked = append(ranked, job)
			continue
		}
		ranked = append(ranked, queue[0])
		queue = queue[1:]
	}

	byJob := make(map[gear.JobID][]model.MemberID)
	for _, m := range team.Members {
		if _, ok := catalogue.Job(m.Job); !ok {
			return nil, wrapKind(op, ErrInvalidInput, fmt.Errorf("member %d has job %q: %w", m.ID, m.Job, ErrUnknownJob))
		}
		byJob[m.Job] = append(byJob[m.Job], m.ID)
	}
	order := make([]model.MemberID, 0, len(team.Members))
	for _, job := range ranked {
		order = append(order, byJob[job]...)
	}
	return order, nil
}

// Bracket groups the members with the same number of outstanding drops.
type Bracket struct {
	Count   int              `json:"count"`
	Members []model.MemberID `json:"members"`
}

// Brackets is the live fairness ordering: buckets by descending outstanding
// count, each kept in priority order until a member is demoted into it.
type Brackets struct {
	buckets []Bracket
}

// NewBrackets buckets the members of order by their tally. Members with a zero
// tally are left out.
func NewBrackets(order []model.MemberID, tally map[model.MemberID]int) *Brackets {
	byCount := make(map[int][]model.MemberID)
	for _, m := range order {
		if c := tally[m]; c > 0 {
			byCount[c] = append(byCount[c], m)
		}
	}
	b := &Brackets{buckets: make([]Bracket, 0, len(byCount))}
	for c, ms := range byCount {
		b.buckets = append(b.buckets, Bracket{Count: c, Members: ms})
	}
	sort.Slice(b.buckets, func(i, j int) bool { return b.buckets[i].Count > b.buckets[j].Count })
	return b
}

// Order flattens the brackets, highest count first.
func (b *Brackets) Order() []model.MemberID {
	var out []model.MemberID
	for _, bk := range b.buckets {
		out = append(out, bk.Members...)
	}
	return out
}

// Buckets returns a copy of the brackets, highest count first.
func (b *Brackets) Buckets() []Bracket {
	out := make([]Bracket, len(b.buckets))
	for i, bk := range b.buckets {
		out[i] = Bracket{Count: bk.Count, Members: append([]model.MemberID(nil), bk.Members...)}
	}
	return out
}

// Map returns the brackets keyed by count.
func (b *Brackets) Map() map[int][]model.MemberID {
	out := make(map[int][]model.MemberID, len(b.buckets))
	for _, bk := range b.buckets {
		out[bk.Count] = append([]model.MemberID(nil), bk.Members...)
	}
	return out
}

// Clone returns an independent copy of b. A nil b clones to empty brackets.
func (b *Brackets) Clone() *Brackets {
	if b == nil {
		return &Brackets{}
	}
	return &Brackets{buckets: b.Buckets()}
}

// Demote moves m one bracket down, to the end of the lower bracket. A member
// leaving the last bracket drops out. Unknown members are ignored.
func (b *Brackets) Demote(m model.MemberID) {
	for i := range b.buckets {
		idx := indexOf(b.buckets[i].Members, m)
		if idx < 0 {
			continue
		}
		count := b.buckets[i].Count
		b.buckets[i].Members = append(b.buckets[i].Members[:idx:idx], b.buckets[i].Members[idx+1:]...)

		if count > 1 {
			next := i + 1
			if next < len(b.buckets) && b.buckets[next].Count == count-1 {
				b.buckets[next].Members = append(b.buckets[next].Members, m)
			} else {
				b.buckets = append(b.buckets, Bracket{})
				copy(b.buckets[next+1:], b.buckets[next:])
				b.buckets[next] = Bracket{Count: count - 1, Members: []model.MemberID{m}}
			}
		}
		if len(b.buckets[i].Members) == 0 {
			b.buckets = append(b.buckets[:i], b.buckets[i+1:]...)
		}
		return
	}
}

func indexOf(ids []model.MemberID, m model.MemberID) int {
	for i, id := range ids {
		if id == m {
			return i
		}
	}
	return -1
}

func contains(ids []model.MemberID, m model.MemberID) bool {
	return indexOf(ids, m) >= 0
}

package replay

import (
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/domain/solver"
)

// nextWeek returns the drops of the first planned week of every floor, dated
// on day. Unassigned drops are not recorded.
func nextWeek(plan *solver.Plan, day model.Date) []model.LootRecord {
	var out []model.LootRecord
	for _, floor := range [][]solver.Week{plan.FirstFloor, plan.SecondFloor, plan.ThirdFloor} {
		if len(floor) == 0 {
			continue
		}
		for _, a := range floor[0].Assignments {
			if a.Member == nil {
				continue
			}
			out = append(out, model.LootRecord{
				Category: a.Category,
				Member:   model.Ref(*a.Member),
				Obtained: day,
			})
		}
	}
	return out
}

// complete reports whether floors one to three have nothing left to plan.
func complete(plan *solver.Plan) bool {
	return len(plan.FirstFloor) == 0 && len(plan.SecondFloor) == 0 && len(plan.ThirdFloor) == 0
}

// lastDay returns the latest obtained date of history.
func lastDay(history []model.LootRecord) (model.Date, bool) {
	var last model.Date
	for _, r := range history {
		if r.Obtained.After(last.Time) {
			last = r.Obtained
		}
	}
	return last, !last.IsZero()
}

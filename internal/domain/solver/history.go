package solver

import (
	"sort"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
)

// StageState is a stage's starting point once history has been applied.
type StageState struct {
	// Clears is the number of distinct days the stage has dropped loot.
	Clears int
	// Live is the stage's slice of the requirements with obtained items
	// removed. Empty categories are absent.
	Live Requirements
	// OutOfBand lists, per member, the categories already equipped without
	// a matching loot record.
	OutOfBand map[model.MemberID][]gear.Category
	// Brackets is the fairness ordering after replaying the history.
	Brackets *Brackets
}

// Reconcile applies the loot history to one stage. The history's members must
// belong to the team; records in categories foreign to the stage are ignored.
func Reconcile(stage Stage, analysis Analysis, history []model.LootRecord, order []model.MemberID) StageState {
	st := StageState{
		Live:      make(Requirements),
		OutOfBand: make(map[model.MemberID][]gear.Category),
	}

	days := make(map[string]struct{})
	var need []model.LootRecord
	for _, r := range history {
		if !stage.Has(r.Category) {
			continue
		}
		days[r.Obtained.Key()] = struct{}{}
		if r.Consumes() {
			need = append(need, r)
		}
	}
	st.Clears = len(days)

	for _, c := range stage.Categories {
		if ids := analysis.Requirements[c]; len(ids) > 0 {
			st.Live[c] = append([]model.MemberID(nil), ids...)
		}
	}

	obtained := make(map[memberCategory]int)
	var keys []memberCategory
	for _, r := range need {
		k := memberCategory{member: *r.Member, category: r.Category}
		if obtained[k] == 0 {
			keys = append(keys, k)
		}
		obtained[k]++
	}
	// Drops the current gear does not account for yet are still in flight.
	for _, k := range keys {
		for extra := obtained[k] - analysis.Satisfied(k.member, k.category); extra > 0; extra-- {
			st.Live.remove(k.category, k.member)
		}
	}
	for _, m := range order {
		for _, c := range stage.Categories {
			k := memberCategory{member: m, category: c}
			for extra := analysis.Satisfied(m, c) - obtained[k]; extra > 0; extra-- {
				st.OutOfBand[m] = append(st.OutOfBand[m], c)
			}
		}
	}

	tally := make(map[model.MemberID]int)
	for _, c := range stage.Categories {
		for _, m := range st.Live[c] {
			tally[m]++
		}
	}
	for _, r := range need {
		tally[*r.Member]++
	}
	st.Brackets = NewBrackets(order, tally)

	sort.SliceStable(need, func(i, j int) bool {
		return need[i].Obtained.Key() < need[j].Obtained.Key()
	})
	for _, r := range need {
		st.Brackets.Demote(*r.Member)
	}
	return st
}

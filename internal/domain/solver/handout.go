package solver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
)

// CategoryOrder decides the order in which a week's drops are handed out.
type CategoryOrder int

const (
	// DeclaredOrder walks the stage's categories as declared.
	DeclaredOrder CategoryOrder = iota
	// FewestCandidatesFirst serves the category with the fewest needers
	// first, ties broken by declared order.
	FewestCandidatesFirst
)

// String implements fmt.Stringer.
func (o CategoryOrder) String() string {
	if o == FewestCandidatesFirst {
		return "fewest"
	}
	return "declared"
}

// ParseCategoryOrder maps "declared" and "fewest" to their order.
func ParseCategoryOrder(s string) (CategoryOrder, bool) {
	switch s {
	case "", "declared":
		return DeclaredOrder, true
	case "fewest":
		return FewestCandidatesFirst, true
	}
	return DeclaredOrder, false
}

// Assignment is one drop of a week. A nil Member means nobody gets it.
type Assignment struct {
	Category gear.Category
	Member   *model.MemberID
}

// Week is one clear of a stage.
type Week struct {
	Assignments []Assignment
	// Token is set on the weeks currency buys one unit per member.
	Token bool
}

// Get returns the recipient of c, or nil.
func (w Week) Get(c gear.Category) *model.MemberID {
	for _, a := range w.Assignments {
		if a.Category == c {
			return a.Member
		}
	}
	return nil
}

// MarshalJSON writes the categories' labels in stage order followed by the
// token flag, so equal weeks always encode to equal bytes.
func (w Week) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, a := range w.Assignments {
		key, err := json.Marshal(a.Category.Label())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if a.Member == nil {
			buf.WriteString("null")
		} else {
			v, err := json.Marshal(*a.Member)
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte(',')
	}
	buf.WriteString(`"token":`)
	if w.Token {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the encoding written by MarshalJSON, keeping the
// order of the labels.
func (w *Week) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return fmt.Errorf("week must be an object: %w", ErrInvalidInput)
	}
	*w = Week{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if key == "token" {
			if err := dec.Decode(&w.Token); err != nil {
				return err
			}
			continue
		}
		c, ok := gear.CategoryByLabel(key)
		if !ok {
			return fmt.Errorf("week label %q: %w", key, ErrInvalidInput)
		}
		var m *model.MemberID
		if err := dec.Decode(&m); err != nil {
			return err
		}
		w.Assignments = append(w.Assignments, Assignment{Category: c, Member: m})
	}
	_, err := dec.Token()
	return err
}

// HandoutConfig tunes the weekly simulation of one stage.
type HandoutConfig struct {
	TokenRate    int
	Conservative bool
	Order        CategoryOrder
}

// Handout simulates clears of the stage until no live demand remains. The
// state is not modified. Needers missing from state.Brackets rank after the
// bracketed members, in the order they appear in state.Live.
//
// Only conservative mode guarantees a member at most one non-token drop per
// week. Otherwise a category whose needers were all served this week still
// goes to the first of them. Conservative mode leaves such drops unassigned
// and never buys tokens.
func Handout(stage Stage, state StageState, cfg HandoutConfig) []Week {
	live := state.Live.Clone()
	brackets := state.Brackets.Clone()

	weeks := []Week{}
	for clear := state.Clears + 1; live.Total(stage.Categories) > 0; clear++ {
		week := Week{Assignments: make([]Assignment, len(stage.Categories))}
		for i, c := range stage.Categories {
			week.Assignments[i].Category = c
		}

		got := make(map[model.MemberID]bool)
		for _, i := range processingOrder(stage, live, cfg.Order) {
			c := stage.Categories[i]
			m, ok := pick(c, live[c], ranking(stage, live, brackets), got, cfg.Conservative)
			if !ok {
				continue
			}
			week.Assignments[i].Member = model.Ref(m)
			live.remove(c, m)
			brackets.Demote(m)
			if !c.IsToken() {
				got[m] = true
			}
		}

		if !cfg.Conservative && cfg.TokenRate > 0 && clear%cfg.TokenRate == 0 {
			week.Token = true
			for _, m := range ranking(stage, live, brackets) {
				c, ok := purchase(stage, live, m)
				if !ok {
					continue
				}
				live.remove(c, m)
				brackets.Demote(m)
			}
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// ranking is the bracket order followed by any live needer the brackets do
// not hold.
func ranking(stage Stage, live Requirements, brackets *Brackets) []model.MemberID {
	order := brackets.Order()
	for _, c := range stage.Categories {
		for _, m := range live[c] {
			if !contains(order, m) {
				order = append(order, m)
			}
		}
	}
	return order
}

func processingOrder(stage Stage, live Requirements, order CategoryOrder) []int {
	idx := make([]int, len(stage.Categories))
	for i := range idx {
		idx[i] = i
	}
	if order == FewestCandidatesFirst {
		candidates := func(i int) int {
			if n := len(live[stage.Categories[i]]); n > 0 {
				return n
			}
			return int(^uint(0) >> 1)
		}
		sort.SliceStable(idx, func(a, b int) bool { return candidates(idx[a]) < candidates(idx[b]) })
	}
	return idx
}

// pick returns the first member in bracket order who needs c and, for
// non-token categories, has not been served this week.
func pick(c gear.Category, needers, order []model.MemberID, got map[model.MemberID]bool, conservative bool) (model.MemberID, bool) {
	if len(needers) == 0 {
		return 0, false
	}
	for _, m := range order {
		if contains(needers, m) && (c.IsToken() || !got[m]) {
			return m, true
		}
	}
	if conservative {
		return 0, false
	}
	for _, m := range order {
		if contains(needers, m) {
			return m, true
		}
	}
	return 0, false
}

// purchase picks what m buys with currency: a token if still needed, else the
// first remaining category in stage order.
func purchase(stage Stage, live Requirements, m model.MemberID) (gear.Category, bool) {
	for _, c := range stage.Categories {
		if c.IsToken() && live.Count(c, m) > 0 {
			return c, true
		}
	}
	for _, c := range stage.Categories {
		if live.Count(c, m) > 0 {
			return c, true
		}
	}
	return "", false
}

package solver_test

import (
	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/domain/solver"
)

var (
	tier     = gear.Tier{Name: "Test Tier", MaxItemLevel: 660, RaidGearName: "Raid", TomeGearName: "Augmented Tome"}
	raid     = gear.Item{Name: "Raid", ItemLevel: 660, Weapon: true, Armour: true, Accessories: true}
	tome     = gear.Item{Name: "Augmented Tome", ItemLevel: 660, Weapon: true, Armour: true, Accessories: true}
	baseTome = gear.Item{Name: "Tome", ItemLevel: 650, Weapon: true, Armour: true, Accessories: true}
	crafted  = gear.Item{Name: "Crafted", ItemLevel: 640, Weapon: true, Armour: true, Accessories: true}
)

// fixtureSlots is the column order of the gear codes below.
var fixtureSlots = []gear.Slot{
	gear.SlotHead, gear.SlotBody, gear.SlotHands, gear.SlotLegs, gear.SlotFeet,
	gear.SlotEarrings, gear.SlotNecklace, gear.SlotBracelet, gear.SlotRightRing, gear.SlotLeftRing,
}

// R raid, T tome, b base tome.
var fixtureMembers = []struct {
	job  gear.JobID
	gear string
}{
	{"WAR", "RTRRTTRTTb"},
	{"DRK", "RTRRTTRTTb"},
	{"AST", "RRTTRTRRTb"},
	{"SGE", "TRTTRTRRTb"},
	{"MNK", "RRTTRRTRRT"},
	{"RPR", "TRTTRRTRTR"},
	{"BRD", "RTRRTTRTTR"},
	{"BLM", "RRTTRTRTTR"},
}

func fixtureTeam() model.Team {
	team := model.Team{
		ID:   uuid.MustParse("6f1b7a52-4f0e-4c4b-9a53-0c2c3f0e8d11"),
		Name: "Fixture",
		Tier: tier,
	}
	for i, fm := range fixtureMembers {
		g := model.GearSet{gear.SlotMainhand: {Desired: raid, Current: crafted}}
		for j, code := range fm.gear {
			var want gear.Item
			switch code {
			case 'R':
				want = raid
			case 'T':
				want = tome
			default:
				want = baseTome
			}
			g[fixtureSlots[j]] = model.SlotGear{Desired: want, Current: crafted}
		}
		team.Members = append(team.Members, model.Member{
			ID:   model.MemberID(i + 1),
			Name: string(fm.job),
			Lead: i == 0,
			Job:  fm.job,
			Gear: g,
		})
	}
	return team
}

type drop struct {
	day      int
	category gear.Category
	member   model.MemberID
}

// withHistory records the drops and equips them on the team.
func withHistory(team model.Team, drops ...drop) model.Snapshot {
	snap := model.Snapshot{Team: team.Clone()}
	for i, d := range drops {
		snap.History = append(snap.History, model.LootRecord{
			ID:       uuid.NewString(),
			Category: d.category,
			Member:   model.Ref(d.member),
			Obtained: model.NewDate(2024, 1, d.day),
		})
		m, ok := snap.Team.Member(d.member)
		if !ok {
			panic(i)
		}
		if _, err := m.Gear.Award(tier, d.category); err != nil {
			panic(err)
		}
	}
	return snap
}

var firstWeek = []drop{
	{1, gear.CategoryNecklace, 4},
	{1, gear.CategoryBracelet, 3},
	{1, gear.CategoryRing, 8},
	{1, gear.CategoryHead, 3},
	{1, gear.CategoryHands, 7},
	{1, gear.CategoryFeet, 4},
	{1, gear.CategoryAccessoryToken, 6},
}

var secondWeek = []drop{
	{2, gear.CategoryHead, 2},
	{2, gear.CategoryHands, 2},
	{2, gear.CategoryFeet, 8},
	{2, gear.CategoryAccessoryToken, 7},
}

func ids(ms ...int) []model.MemberID {
	out := make([]model.MemberID, len(ms))
	for i, m := range ms {
		out[i] = model.MemberID(m)
	}
	return out
}

// rows flattens weeks into recipients, 0 meaning unassigned, and token flags.
func rows(weeks []solver.Week) ([][]int, []bool) {
	var got [][]int
	var tokens []bool
	for _, w := range weeks {
		row := make([]int, len(w.Assignments))
		for i, a := range w.Assignments {
			if a.Member != nil {
				row[i] = int(*a.Member)
			}
		}
		got = append(got, row)
		tokens = append(tokens, w.Token)
	}
	return got, tokens
}

func analyze(team model.Team) solver.Analysis {
	a, err := solver.Analyze(team, gear.DefaultCatalogue())
	if err != nil {
		panic(err)
	}
	return a
}

func priority(team model.Team) []model.MemberID {
	order, err := solver.PriorityOrder(team, gear.DefaultCatalogue())
	if err != nil {
		panic(err)
	}
	return order
}

func stage(name string) solver.Stage {
	for _, s := range solver.DefaultStages() {
		if s.Name == name {
			return s
		}
	}
	panic(name)
}

// who returns the recipient of c in w, 0 when unassigned.
func who(w solver.Week, c gear.Category) int {
	if m := w.Get(c); m != nil {
		return int(*m)
	}
	return 0
}

package solver_test

import (
	"errors"
	"testing"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/domain/solver"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAnalyze(t *testing.T) {
	Convey("Given the fixture team in crafted gear", t, func() {
		team := fixtureTeam()
		a := analyze(team)
		req := a.Requirements

		Convey("Then raid slots are listed in roster order", func() {
			So(req[gear.CategoryEarrings], ShouldResemble, ids(5, 6))
			So(req[gear.CategoryNecklace], ShouldResemble, ids(1, 2, 3, 4, 7, 8))
			So(req[gear.CategoryBracelet], ShouldResemble, ids(3, 4, 5, 6))
			So(req[gear.CategoryRing], ShouldResemble, ids(5, 6, 7, 8))
			So(req[gear.CategoryHead], ShouldResemble, ids(1, 2, 3, 5, 7, 8))
			So(req[gear.CategoryHands], ShouldResemble, ids(1, 2, 7))
			So(req[gear.CategoryFeet], ShouldResemble, ids(3, 4, 5, 6, 8))
			So(req[gear.CategoryBody], ShouldResemble, ids(3, 4, 5, 6, 8))
			So(req[gear.CategoryLegs], ShouldResemble, ids(1, 2, 7))
			So(req[gear.CategoryMainhand], ShouldResemble, ids(1, 2, 3, 4, 5, 6, 7, 8))
		})

		Convey("Then tome slots pool into augments, once per slot", func() {
			So(req[gear.CategoryAccessoryToken], ShouldResemble,
				ids(1, 1, 1, 2, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 7, 8, 8, 8))
			So(req[gear.CategoryArmourToken], ShouldResemble,
				ids(1, 1, 2, 2, 3, 3, 4, 4, 4, 5, 5, 6, 6, 6, 7, 7, 8, 8))
		})

		Convey("Then base tome gear needs nothing", func() {
			So(req.Count(gear.CategoryRing, 1), ShouldEqual, 0)
			So(req.Count(gear.CategoryAccessoryToken, 1), ShouldEqual, 3)
		})

		Convey("When a member already wears a wanted item", func() {
			m, _ := team.Member(5)
			m.Gear[gear.SlotEarrings] = model.SlotGear{Desired: raid, Current: raid}
			m.Gear[gear.SlotNecklace] = model.SlotGear{Desired: tome, Current: tome}
			a := analyze(team)

			Convey("Then it no longer needs the slot and counts it as satisfied", func() {
				So(a.Requirements[gear.CategoryEarrings], ShouldResemble, ids(6))
				So(a.Satisfied(5, gear.CategoryEarrings), ShouldEqual, 1)
				So(a.Satisfied(5, gear.CategoryAccessoryToken), ShouldEqual, 1)
				So(a.Requirements.Count(gear.CategoryAccessoryToken, 5), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a paladin with a separate offhand", t, func() {
		team := fixtureTeam()
		team.Members[0].Job = "PLD"
		team.Members[0].Gear[gear.SlotOffhand] = model.SlotGear{Desired: raid, Current: crafted}

		Convey("Then the weapon is still needed only once", func() {
			a := analyze(team)
			So(a.Requirements.Count(gear.CategoryMainhand, 1), ShouldEqual, 1)
		})

		Convey("Then a tome mainhand needs no augment", func() {
			team.Members[0].Gear[gear.SlotMainhand] = model.SlotGear{Desired: tome, Current: crafted}
			team.Members[0].Gear[gear.SlotOffhand] = model.SlotGear{Desired: tome, Current: crafted}
			a := analyze(team)
			So(a.Requirements.Count(gear.CategoryMainhand, 1), ShouldEqual, 0)
			So(a.Requirements.Count(gear.CategoryArmourToken, 1), ShouldEqual, 2)
		})
	})

	Convey("Given malformed teams", t, func() {
		cat := gear.DefaultCatalogue()

		Convey("A member with an unknown job is rejected", func() {
			team := fixtureTeam()
			team.Members[3].Job = "XYZ"
			_, err := solver.Analyze(team, cat)
			So(errors.Is(err, solver.ErrInvalidInput), ShouldBeTrue)
			So(errors.Is(err, solver.ErrUnknownJob), ShouldBeTrue)
		})

		Convey("A member missing a slot is rejected", func() {
			team := fixtureTeam()
			delete(team.Members[2].Gear, gear.SlotFeet)
			_, err := solver.Analyze(team, cat)
			So(errors.Is(err, solver.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("An item that cannot be worn in its slot is rejected", func() {
			team := fixtureTeam()
			team.Members[0].Gear[gear.SlotHead] = model.SlotGear{
				Desired: gear.Item{Name: "Raid", ItemLevel: 660, Accessories: true},
				Current: crafted,
			}
			_, err := solver.Analyze(team, cat)
			So(errors.Is(err, solver.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Duplicate member ids are rejected", func() {
			team := fixtureTeam()
			team.Members[1].ID = 1
			_, err := solver.Analyze(team, cat)
			So(errors.Is(err, solver.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("More than eight members are rejected", func() {
			team := fixtureTeam()
			extra := team.Members[0]
			extra.ID = 9
			team.Members = append(team.Members, extra)
			_, err := solver.Analyze(team, cat)
			So(errors.Is(err, solver.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

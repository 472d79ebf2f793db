package solver

import "github.com/okian/lootsolver/internal/domain/gear"

// Stage names.
const (
	FirstFloor  = "first_floor"
	SecondFloor = "second_floor"
	ThirdFloor  = "third_floor"
	FourthFloor = "fourth_floor"
)

// Stage is one floor of the tier with its fixed, ordered drop table.
// Category order is part of the contract: the handout engine breaks ties by
// it, raid categories first and token categories last.
type Stage struct {
	Name       string
	Categories []gear.Category
	// TokenRate is the number of clears needed to afford one purchase.
	// Zero disables purchases.
	TokenRate int
}

// Has reports whether c drops from the stage.
func (s Stage) Has(c gear.Category) bool {
	for _, sc := range s.Categories {
		if sc == c {
			return true
		}
	}
	return false
}

// Default token rates per stage.
const (
	defaultFirstFloorRate  = 3
	defaultSecondFloorRate = 4
	defaultThirdFloorRate  = 4
)

// DefaultStages returns the four floors of a tier. The first three are
// scheduled week by week, the fourth only summarised.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name:       FirstFloor,
			Categories: []gear.Category{gear.CategoryEarrings, gear.CategoryNecklace, gear.CategoryBracelet, gear.CategoryRing},
			TokenRate:  defaultFirstFloorRate,
		},
		{
			Name:       SecondFloor,
			Categories: []gear.Category{gear.CategoryHead, gear.CategoryHands, gear.CategoryFeet, gear.CategoryAccessoryToken},
			TokenRate:  defaultSecondFloorRate,
		},
		{
			Name:       ThirdFloor,
			Categories: []gear.Category{gear.CategoryBody, gear.CategoryLegs, gear.CategoryArmourToken},
			TokenRate:  defaultThirdFloorRate,
		},
		{
			Name:       FourthFloor,
			Categories: []gear.Category{gear.CategoryMainhand, gear.CategoryMount, gear.CategoryWeaponToken, gear.CategoryWeaponAugment},
		},
	}
}

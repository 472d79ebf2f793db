package gear

import "fmt"

// Item is a piece of gear. Two items are the same item when both name and
// item level match.
type Item struct {
	Name        string `json:"name"`
	ItemLevel   int    `json:"item_level"`
	Weapon      bool   `json:"has_weapon"`
	Armour      bool   `json:"has_armour"`
	Accessories bool   `json:"has_accessories"`
}

// Same reports whether i and o identify the same item.
func (i Item) Same(o Item) bool {
	return i.Name == o.Name && i.ItemLevel == o.ItemLevel
}

// Fits reports whether the item can occupy a slot of kind k.
func (i Item) Fits(k Kind) bool {
	switch k {
	case KindWeapon:
		return i.Weapon
	case KindArmour:
		return i.Armour
	case KindAccessory:
		return i.Accessories
	default:
		return false
	}
}

func (i Item) String() string {
	return fmt.Sprintf("%s (i%d)", i.Name, i.ItemLevel)
}

// Tier is the raid encounter a team is progressing through. It names the
// raid drop and the upgradeable tome item for the tier.
type Tier struct {
	Name         string `json:"name"`
	MaxItemLevel int    `json:"max_item_level"`
	RaidGearName string `json:"raid_gear_name"`
	TomeGearName string `json:"tome_gear_name"`
}

// IsRaid reports whether i is this tier's raid drop.
func (t Tier) IsRaid(i Item) bool {
	return t.RaidGearName != "" && i.Name == t.RaidGearName
}

// IsTome reports whether i is this tier's upgraded tome item.
func (t Tier) IsTome(i Item) bool {
	return t.TomeGearName != "" && i.Name == t.TomeGearName
}

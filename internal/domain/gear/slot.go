// Package gear describes equipment slots, loot categories, gear items, tiers
// and the job catalogue shared by every layer of the solver.
package gear

// Slot names one of the twelve equipment slots of a gear set.
type Slot string

// Equipment slots.
const (
	SlotMainhand  Slot = "mainhand"
	SlotOffhand   Slot = "offhand"
	SlotHead      Slot = "head"
	SlotBody      Slot = "body"
	SlotHands     Slot = "hands"
	SlotLegs      Slot = "legs"
	SlotFeet      Slot = "feet"
	SlotEarrings  Slot = "earrings"
	SlotNecklace  Slot = "necklace"
	SlotBracelet  Slot = "bracelet"
	SlotLeftRing  Slot = "left_ring"
	SlotRightRing Slot = "right_ring"
)

// Kind groups slots by the type of item they hold.
type Kind int

// Slot kinds.
const (
	KindUnknown Kind = iota
	KindWeapon
	KindArmour
	KindAccessory
)

func (k Kind) String() string {
	switch k {
	case KindWeapon:
		return "weapon"
	case KindArmour:
		return "armour"
	case KindAccessory:
		return "accessory"
	default:
		return "unknown"
	}
}

// slots is the canonical slot order. Requirement lists are built in this order.
var slots = []Slot{
	SlotMainhand,
	SlotOffhand,
	SlotHead,
	SlotBody,
	SlotHands,
	SlotLegs,
	SlotFeet,
	SlotEarrings,
	SlotNecklace,
	SlotBracelet,
	SlotLeftRing,
	SlotRightRing,
}

// Slots returns all equipment slots in canonical order.
func Slots() []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

// Valid reports whether s is one of the twelve known slots.
func (s Slot) Valid() bool {
	return s.Kind() != KindUnknown
}

// Kind returns the kind of item the slot holds.
func (s Slot) Kind() Kind {
	switch s {
	case SlotMainhand, SlotOffhand:
		return KindWeapon
	case SlotHead, SlotBody, SlotHands, SlotLegs, SlotFeet:
		return KindArmour
	case SlotEarrings, SlotNecklace, SlotBracelet, SlotLeftRing, SlotRightRing:
		return KindAccessory
	default:
		return KindUnknown
	}
}

// RaidCategory returns the loot category that drops the raid item for s.
// Both rings share one category, as do mainhand and offhand.
func (s Slot) RaidCategory() Category {
	switch s {
	case SlotMainhand, SlotOffhand:
		return CategoryMainhand
	case SlotLeftRing, SlotRightRing:
		return CategoryRing
	default:
		if !s.Valid() {
			return ""
		}
		return Category(s)
	}
}

// TomeCategory returns the augment category that upgrades the tome item in s.
// Weapons have no augment token, so ok is false for them.
func (s Slot) TomeCategory() (Category, bool) {
	switch s.Kind() {
	case KindArmour:
		return CategoryArmourToken, true
	case KindAccessory:
		return CategoryAccessoryToken, true
	default:
		return "", false
	}
}

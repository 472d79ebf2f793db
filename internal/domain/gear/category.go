package gear

import "strings"

// Category names a kind of loot that can drop from a raid stage.
type Category string

// Loot categories.
const (
	CategoryMainhand       Category = "mainhand"
	CategoryHead           Category = "head"
	CategoryBody           Category = "body"
	CategoryHands          Category = "hands"
	CategoryLegs           Category = "legs"
	CategoryFeet           Category = "feet"
	CategoryEarrings       Category = "earrings"
	CategoryNecklace       Category = "necklace"
	CategoryBracelet       Category = "bracelet"
	CategoryRing           Category = "ring"
	CategoryArmourToken    Category = "armor-token"
	CategoryAccessoryToken Category = "accessory-token"
	CategoryMount          Category = "mount"
	CategoryWeaponToken    Category = "tome-weapon-token"
	CategoryWeaponAugment  Category = "tome-weapon-augment"
)

var labels = map[Category]string{
	CategoryArmourToken:    "Tome Armour Augment",
	CategoryAccessoryToken: "Tome Accessory Augment",
}

var known = map[Category]struct{}{
	CategoryMainhand:       {},
	CategoryHead:           {},
	CategoryBody:           {},
	CategoryHands:          {},
	CategoryLegs:           {},
	CategoryFeet:           {},
	CategoryEarrings:       {},
	CategoryNecklace:       {},
	CategoryBracelet:       {},
	CategoryRing:           {},
	CategoryArmourToken:    {},
	CategoryAccessoryToken: {},
	CategoryMount:          {},
	CategoryWeaponToken:    {},
	CategoryWeaponAugment:  {},
}

// Known reports whether c is a category this build understands.
func (c Category) Known() bool {
	_, ok := known[c]
	return ok
}

// IsToken reports whether c is one of the pooled augment categories that are
// exempt from the one-drop-per-clear rule.
func (c Category) IsToken() bool {
	return c == CategoryArmourToken || c == CategoryAccessoryToken
}

// Label returns the human readable label used as the key of a planned week,
// e.g. "Tome Armour Augment" or "Earrings".
func (c Category) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	words := strings.Fields(strings.ReplaceAll(string(c), "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Slots returns the slots a raid drop of category c can fill, in slot order.
// Token categories return every slot of their kind.
func (c Category) Slots() []Slot {
	var out []Slot
	for _, s := range slots {
		if s.RaidCategory() == c {
			out = append(out, s)
			continue
		}
		if tc, ok := s.TomeCategory(); ok && tc == c {
			out = append(out, s)
		}
	}
	return out
}

// CategoryByLabel resolves a label produced by Label back to its category.
func CategoryByLabel(label string) (Category, bool) {
	for c := range known {
		if c.Label() == label {
			return c, true
		}
	}
	return "", false
}

package model

import (
	"fmt"

	"github.com/okian/lootsolver/internal/domain/gear"
)

// Award equips the item a drop of category c grants. The desired item is
// copied onto the current item of the slot the drop fills; mainhand drops
// also complete the offhand. Mount and weapon tome drops change no slot and
// return an empty slot.
func (g GearSet) Award(tier gear.Tier, c gear.Category) (gear.Slot, error) {
	switch c {
	case gear.CategoryMount, gear.CategoryWeaponToken, gear.CategoryWeaponAugment:
		return "", nil
	case gear.CategoryMainhand:
		sg, ok := g[gear.SlotMainhand]
		if !ok || !tier.IsRaid(sg.Desired) || sg.Satisfied() {
			return "", fmt.Errorf("award %s: %w", c, ErrNotNeeded)
		}
		g.equip(gear.SlotMainhand)
		if _, ok := g[gear.SlotOffhand]; ok {
			g.equip(gear.SlotOffhand)
		}
		return gear.SlotMainhand, nil
	}

	if !c.Known() {
		return "", fmt.Errorf("award %q: %w", c, ErrInvalidCategory)
	}

	// Rings fill the right ring first when both want the raid ring.
	candidates := c.Slots()
	if c == gear.CategoryRing {
		candidates = []gear.Slot{gear.SlotRightRing, gear.SlotLeftRing}
	}
	for _, s := range candidates {
		sg, ok := g[s]
		if !ok || sg.Satisfied() {
			continue
		}
		if c.IsToken() && !tier.IsTome(sg.Desired) {
			continue
		}
		if !c.IsToken() && !tier.IsRaid(sg.Desired) {
			continue
		}
		g.equip(s)
		return s, nil
	}
	return "", fmt.Errorf("award %s: %w", c, ErrNotNeeded)
}

func (g GearSet) equip(s gear.Slot) {
	sg := g[s]
	sg.Current = sg.Desired
	g[s] = sg
}

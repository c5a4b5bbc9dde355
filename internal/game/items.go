package game

import (
	"math"
	"math/rand/v2"
)

// Slot is one of the ten fixed equipment slots every player owns.
type Slot string

const (
	SlotRing     Slot = "ring"
	SlotAmulet   Slot = "amulet"
	SlotCharm    Slot = "charm"
	SlotWeapon   Slot = "weapon"
	SlotHelm     Slot = "helm"
	SlotTunic    Slot = "tunic"
	SlotGloves   Slot = "pair of gloves"
	SlotShield   Slot = "shield"
	SlotLeggings Slot = "set of leggings"
	SlotBoots    Slot = "pair of boots"
)

// Slots lists every equipment slot in display order.
var Slots = []Slot{
	SlotRing, SlotAmulet, SlotCharm, SlotWeapon, SlotHelm,
	SlotTunic, SlotGloves, SlotShield, SlotLeggings, SlotBoots,
}

// Item is one equipment record. Level 0 means the slot is empty.
type Item struct {
	Slot   Slot
	Level  int
	Name   string
	Unique bool
}

// UniqueItem is an entry in the fixed unique-item table. Level is drawn
// uniformly from [MinLevel, MaxLevel); ReqLevel gates eligibility.
type UniqueItem struct {
	Name     string
	Slot     Slot
	MinLevel int
	MaxLevel int
	ReqLevel int
	Found    string // flavor template, {{.Level}} available
}

var uniqueItems = []UniqueItem{
	{"Mattt's Omniscience Grand Crown", SlotHelm, 50, 74, 25,
		"The light of the gods shines down! You found the level {{.Level}} Mattt's Omniscience Grand Crown! Your enemies fall before you as you anticipate their every move."},
	{"Juliet's Glorious Ring of Sparkliness", SlotRing, 50, 74, 25,
		"The light of the gods shines down! You found the level {{.Level}} Juliet's Glorious Ring of Sparkliness! Your enemies are blinded by its glory and their greed."},
	{"Res0's Protectorate Plate Mail", SlotTunic, 75, 99, 30,
		"The light of the gods shines down! You found the level {{.Level}} Res0's Protectorate Plate Mail! Your enemies cower as their attacks have no effect."},
	{"Dwyn's Storm Magic Amulet", SlotAmulet, 100, 124, 35,
		"The light of the gods shines down! You found the level {{.Level}} Dwyn's Storm Magic Amulet! Your enemies are swept away by elemental fury."},
	{"Jotun's Fury Colossal Sword", SlotWeapon, 150, 174, 40,
		"The light of the gods shines down! You found the level {{.Level}} Jotun's Fury Colossal Sword! Your enemies are crushed by the blow."},
	{"Drdink's Cane of Blind Rage", SlotWeapon, 175, 200, 45,
		"The light of the gods shines down! You found the level {{.Level}} Drdink's Cane of Blind Rage! You blindly swing, hitting stuff."},
	{"Mrquick's Magical Boots of Swiftness", SlotBoots, 250, 300, 48,
		"The light of the gods shines down! You found the level {{.Level}} Mrquick's Magical Boots of Swiftness! Your enemies choke on your dust."},
	{"Jeff's Cluehammer of Doom", SlotWeapon, 300, 350, 52,
		"The light of the gods shines down! You found the level {{.Level}} Jeff's Cluehammer of Doom! Your enemies gain sudden clarity... as you relieve them of it."},
}

// uniqueFoundMessage renders the discovery flavor text for a unique item.
func uniqueFoundMessage(u *UniqueItem, level int) string {
	msg, err := expandTemplate(u.Found, struct{ Level int }{level})
	if err != nil {
		// Templates are package constants; a parse failure is a bug.
		return ""
	}
	return msg
}

// RollItem rolls one found item for a player at the given level.
//
// Level 25+ players first iterate the unique table: each eligible entry
// fires with probability 1/40 and returns a unique drawn from its range.
// Otherwise the level is the LAST n in 1..floor(level*1.5) whose
// Bernoulli trial at 1/1.4^(n/4) succeeds. Keeping the last success
// rather than the first is load-bearing: it shapes the whole item-level
// distribution and saved games depend on it.
func RollItem(rng *rand.Rand, playerLevel int) Item {
	if playerLevel >= 25 {
		for i := range uniqueItems {
			u := &uniqueItems[i]
			if playerLevel >= u.ReqLevel && rng.Float64() < 1.0/40 {
				return Item{
					Slot:   u.Slot,
					Level:  u.MinLevel + rng.IntN(u.MaxLevel-u.MinLevel),
					Name:   u.Name,
					Unique: true,
				}
			}
		}
	}

	maxLevel := int(float64(playerLevel) * 1.5)
	level := 1
	for n := 1; n <= maxLevel; n++ {
		if rng.Float64() < 1.0/math.Pow(1.4, float64(n)/4) {
			level = n
		}
	}
	return Item{
		Slot:  Slots[rng.IntN(len(Slots))],
		Level: level,
	}
}

// EffectivePower applies the alignment modifier to a raw item-level sum.
// Good gets a 10% bonus, evil a 10% malus.
func EffectivePower(rawSum int, alignment Alignment) int {
	switch alignment {
	case AlignGood:
		return int(float64(rawSum) * 1.1)
	case AlignEvil:
		return int(float64(rawSum) * 0.9)
	default:
		return rawSum
	}
}

package game

import (
	"context"
	"fmt"
	"strings"
)

// handOfFate picks one player and either carries them toward the next
// level or burns them back, 4:1 in their favor, by 5-75% of their clock.
func (e *Engine) handOfFate(ctx context.Context, online []*Player) ([]Broadcast, error) {
	if len(online) == 0 {
		return nil, nil
	}
	p := online[e.intN(len(online))]
	helping := e.intN(5) > 0
	amount := int64(float64(5+e.intN(71)) / 100 * float64(p.TTL))

	var msg string
	if helping {
		newTTL := p.TTL - amount
		if newTTL < 0 {
			newTTL = 0
		}
		if err := e.store.SetTTL(ctx, p.ID, newTTL); err != nil {
			return nil, err
		}
		msg = fmt.Sprintf("Verily I say unto thee, the Heavens have burst forth, and the blessed hand of God carried %s %s toward level %d.",
			UTag(p), FormatDuration(amount), p.Level+1)
	} else {
		if err := e.store.AddTTL(ctx, p.ID, amount, ""); err != nil {
			return nil, err
		}
		msg = fmt.Sprintf("Thereupon He stretched out His little finger among them and consumed %s with fire, slowing the heathen %s from level %d.",
			UTag(p), FormatDuration(amount), p.Level+1)
	}

	msgs := []Broadcast{BroadcastAll(msg)}
	msgs = append(msgs, e.clockUpdate(ctx, p)...)
	if err := e.store.LogEvent(ctx, "hog", msg, p.ID); err != nil {
		return msgs, err
	}
	return msgs, nil
}

var calamityItemTexts = map[Slot]string{
	SlotAmulet:   "%s fell, chipping their amulet",
	SlotCharm:    "%s dropped their charm in a bog",
	SlotWeapon:   "%s left their weapon out in the rain",
	SlotTunic:    "%s spilled a shrinking potion on their tunic",
	SlotShield:   "%s's shield was scorched by dragon fire",
	SlotLeggings: "%s burned a hole in their leggings while ironing",
}

var calamityTexts = []string{
	"%s tripped over their own feet",
	"%s was startled by a loud noise",
	"%s drank a potion of Extreme Clumsiness by mistake",
	"%s got lost in the Enchanted Woods",
}

// calamity strikes one player: 10% of the time an item loses a tenth of
// its level, otherwise the clock grows by 5-12%.
func (e *Engine) calamity(ctx context.Context, online []*Player) ([]Broadcast, error) {
	if len(online) == 0 {
		return nil, nil
	}
	p := online[e.intN(len(online))]

	if e.chance(0.1) {
		slot := calamitySlots[e.intN(len(calamitySlots))]
		if err := e.store.ScaleItemLevel(ctx, p.ID, slot, -0.10); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf(calamityItemTexts[slot]+"! %s's %s loses 10%% effectiveness.", UTag(p), UTag(p), slot)
		if err := e.store.LogEvent(ctx, "calamity", msg, p.ID); err != nil {
			return nil, err
		}
		return []Broadcast{BroadcastAll(msg)}, nil
	}

	amount := int64(float64(5+e.intN(8)) / 100 * float64(p.TTL))
	if err := e.store.AddTTL(ctx, p.ID, amount, ""); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf(calamityTexts[e.intN(len(calamityTexts))]+". This calamity slowed them %s from level %d.",
		UTag(p), FormatDuration(amount), p.Level+1)
	msgs := []Broadcast{BroadcastAll(msg)}
	msgs = append(msgs, e.clockUpdate(ctx, p)...)
	if err := e.store.LogEvent(ctx, "calamity", msg, p.ID); err != nil {
		return msgs, err
	}
	return msgs, nil
}

var godsendItemTexts = map[Slot]string{
	SlotAmulet:   "%s's amulet was blessed by a cleric",
	SlotCharm:    "%s's charm absorbed a bolt of lightning",
	SlotWeapon:   "%s sharpened their weapon",
	SlotTunic:    "A magician cast Rigidity on %s's tunic",
	SlotShield:   "%s reinforced their shield with dragon scales",
	SlotLeggings: "A wizard imbued %s's leggings with Fortitude",
}

var godsendTexts = []string{
	"%s found a four-leaf clover",
	"%s received a blessing from a wandering priest",
	"%s stumbled upon an enchanted spring",
	"%s was touched by an angel",
}

// calamitySlots are the slots item-affecting events may touch, in a
// fixed order so seeded runs replay identically.
var calamitySlots = []Slot{SlotAmulet, SlotCharm, SlotWeapon, SlotTunic, SlotShield, SlotLeggings}

// godsend is calamity's mirror: 10% item +10%, else the clock shrinks by 5-12%.
func (e *Engine) godsend(ctx context.Context, online []*Player) ([]Broadcast, error) {
	if len(online) == 0 {
		return nil, nil
	}
	p := online[e.intN(len(online))]

	if e.chance(0.1) {
		slot := calamitySlots[e.intN(len(calamitySlots))]
		if err := e.store.ScaleItemLevel(ctx, p.ID, slot, 0.10); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf(godsendItemTexts[slot]+"! %s's %s gains 10%% effectiveness.", UTag(p), UTag(p), slot)
		if err := e.store.LogEvent(ctx, "godsend", msg, p.ID); err != nil {
			return nil, err
		}
		return []Broadcast{BroadcastAll(msg)}, nil
	}

	amount := int64(float64(5+e.intN(8)) / 100 * float64(p.TTL))
	newTTL := p.TTL - amount
	if newTTL < 0 {
		newTTL = 0
	}
	if err := e.store.SetTTL(ctx, p.ID, newTTL); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf(godsendTexts[e.intN(len(godsendTexts))]+"! This godsend accelerated them %s towards level %d.",
		UTag(p), FormatDuration(amount), p.Level+1)
	msgs := []Broadcast{BroadcastAll(msg)}
	msgs = append(msgs, e.clockUpdate(ctx, p)...)
	if err := e.store.LogEvent(ctx, "godsend", msg, p.ID); err != nil {
		return msgs, err
	}
	return msgs, nil
}

// goodness rewards two good-aligned players who pray together with a
// 5-12% countdown cut each.
func (e *Engine) goodness(ctx context.Context, online []*Player) ([]Broadcast, error) {
	var good []*Player
	for _, p := range online {
		if p.Alignment == AlignGood {
			good = append(good, p)
		}
	}
	if len(good) < 2 {
		return nil, nil
	}

	e.randMu.Lock()
	perm := e.rng.Perm(len(good))
	e.randMu.Unlock()
	pair := []*Player{good[perm[0]], good[perm[1]]}

	gain := 5 + e.intN(8)
	msg := fmt.Sprintf("%s and %s have prayed together. %d%% of their time is removed.",
		UTag(pair[0]), UTag(pair[1]), gain)
	msgs := []Broadcast{BroadcastAll(msg)}
	for _, p := range pair {
		newTTL := int64(float64(p.TTL) * (1 - float64(gain)/100))
		if err := e.store.SetTTL(ctx, p.ID, newTTL); err != nil {
			return msgs, err
		}
		msgs = append(msgs, BroadcastAll(fmt.Sprintf("%s reaches next level in %s.", UTag(p), FormatDuration(newTTL))))
	}
	if err := e.store.LogEvent(ctx, "godsend", msg); err != nil {
		return msgs, err
	}
	return msgs, nil
}

// evilness torments one evil-aligned player: half the time they rob a
// good player's item, otherwise their own god forsakes them for 1-5%
// of their clock.
func (e *Engine) evilness(ctx context.Context, online []*Player) ([]Broadcast, error) {
	var evil []*Player
	for _, p := range online {
		if p.Alignment == AlignEvil {
			evil = append(evil, p)
		}
	}
	if len(evil) == 0 {
		return nil, nil
	}
	me := evil[e.intN(len(evil))]

	if e.chance(0.5) {
		var good []*Player
		for _, p := range online {
			if p.Alignment == AlignGood {
				good = append(good, p)
			}
		}
		if len(good) == 0 {
			return nil, nil
		}
		target := good[e.intN(len(good))]
		return e.alignmentSteal(ctx, me, target)
	}

	amount := int64(float64(me.TTL) * float64(1+e.intN(5)) / 100)
	if err := e.store.AddTTL(ctx, me.ID, amount, ""); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("%s is forsaken by their evil god. %s added to their clock.", UTag(me), FormatDuration(amount))
	msgs := []Broadcast{BroadcastAll(msg)}
	msgs = append(msgs, e.clockUpdate(ctx, me)...)
	if err := e.store.LogEvent(ctx, "calamity", msg, me.ID); err != nil {
		return msgs, err
	}
	return msgs, nil
}

// alignmentSteal is the evilness item grab. Same swap rules as battle
// theft, different announcement.
func (e *Engine) alignmentSteal(ctx context.Context, thief, victim *Player) ([]Broadcast, error) {
	tItems, err := e.store.Items(ctx, thief.ID)
	if err != nil {
		return nil, err
	}
	vItems, err := e.store.Items(ctx, victim.ID)
	if err != nil {
		return nil, err
	}

	var candidates []Slot
	for _, slot := range Slots {
		if vItems[slot].Level > tItems[slot].Level {
			candidates = append(candidates, slot)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	slot := candidates[e.intN(len(candidates))]
	if err := e.store.SwapItemLevels(ctx, thief.ID, victim.ID, slot); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("%s stole %s's level %d %s! Leaves their old level %d %s behind.",
		UTag(thief), UTag(victim), vItems[slot].Level, slot, tItems[slot].Level, slot)
	if err := e.store.LogEvent(ctx, "steal", msg, thief.ID, victim.ID); err != nil {
		return nil, err
	}
	return []Broadcast{BroadcastAll(msg)}, nil
}

// teamBattle pits two random teams of three against each other for 20%
// of the first team's shortest clock.
func (e *Engine) teamBattle(ctx context.Context, online []*Player) ([]Broadcast, error) {
	if len(online) < 6 {
		return nil, nil
	}

	e.randMu.Lock()
	perm := e.rng.Perm(len(online))
	e.randMu.Unlock()

	teamA := []*Player{online[perm[0]], online[perm[1]], online[perm[2]]}
	teamB := []*Player{online[perm[3]], online[perm[4]], online[perm[5]]}

	sumA, err := e.teamPower(ctx, teamA)
	if err != nil {
		return nil, err
	}
	sumB, err := e.teamPower(ctx, teamB)
	if err != nil {
		return nil, err
	}

	rollA := e.powerRoll(sumA)
	rollB := e.powerRoll(sumB)
	won := rollA >= rollB

	minTTL := teamA[0].TTL
	for _, p := range teamA[1:] {
		if p.TTL < minTTL {
			minTTL = p.TTL
		}
	}
	stake := int64(float64(minTTL) * 0.20)

	outcome, direction := "won", "removed from"
	if !won {
		outcome, direction = "lost", "added to"
	}
	msg := fmt.Sprintf("%s [%d/%d] team battled %s [%d/%d] and %s! %s %s their clocks.",
		teamNames(teamA), rollA, sumA, teamNames(teamB), rollB, sumB, outcome,
		FormatDuration(stake), direction)

	for _, p := range teamA {
		if won {
			newTTL := p.TTL - stake
			if newTTL < 0 {
				newTTL = 0
			}
			if err := e.store.SetTTL(ctx, p.ID, newTTL); err != nil {
				return nil, err
			}
		} else {
			if err := e.store.AddTTL(ctx, p.ID, stake, ""); err != nil {
				return nil, err
			}
		}
	}
	if err := e.store.LogEvent(ctx, "team_battle", msg); err != nil {
		return nil, err
	}
	return []Broadcast{BroadcastAll(msg)}, nil
}

func (e *Engine) teamPower(ctx context.Context, team []*Player) (int, error) {
	total := 0
	for _, p := range team {
		sum, err := e.store.ItemSum(ctx, p.ID)
		if err != nil {
			return 0, err
		}
		total += EffectivePower(sum, p.Alignment)
	}
	return total, nil
}

func teamNames(team []*Player) string {
	names := make([]string, len(team))
	for i, p := range team {
		names[i] = UTag(p)
	}
	return strings.Join(names, ", ")
}

// clockUpdate appends the standard "reaches next level in" line with a
// freshly read countdown.
func (e *Engine) clockUpdate(ctx context.Context, p *Player) []Broadcast {
	fresh, err := e.store.PlayerByID(ctx, p.ID)
	if err != nil {
		return nil
	}
	return []Broadcast{BroadcastAll(fmt.Sprintf("%s reaches next level in %s.", UTag(fresh), FormatDuration(fresh.TTL)))}
}

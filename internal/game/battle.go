package game

import (
	"context"
	"errors"
	"fmt"
)

// resolveBattle fights two players and settles the stakes. Both sides are
// re-fetched first so stale countdowns never leak into the math; a player
// can never be matched against themselves. The collision flag only
// changes the announcement wording.
func (e *Engine) resolveBattle(ctx context.Context, challenger, opponent *Player, collision bool) ([]Broadcast, error) {
	c, err := e.fetchFresh(ctx, challenger)
	if err != nil {
		return nil, err
	}
	o, err := e.fetchFresh(ctx, opponent)
	if err != nil {
		return nil, err
	}
	if c.ID == o.ID {
		return nil, nil
	}

	cSum, err := e.store.ItemSum(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("challenger item sum: %w", err)
	}
	oSum, err := e.store.ItemSum(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("opponent item sum: %w", err)
	}

	cRoll := e.powerRoll(EffectivePower(cSum, c.Alignment))
	oRoll := e.powerRoll(EffectivePower(oSum, o.Alignment))

	// Ties go to the challenger.
	won := cRoll >= oRoll
	winner, loser := c, o
	if !won {
		winner, loser = o, c
	}

	var verb string
	if collision {
		outcome := "taken them in"
		if !won {
			outcome = "been defeated in"
		}
		verb = fmt.Sprintf("%s has come upon %s and %s combat!", Tag(challenger), Tag(opponent), outcome)
	} else {
		outcome := "won"
		if !won {
			outcome = "lost"
		}
		verb = fmt.Sprintf("%s has challenged %s in combat and %s!", Tag(challenger), Tag(opponent), outcome)
	}

	var msgs []Broadcast
	var logMsg string

	if won {
		// Winner's clock shrinks by a share of its own pre-battle value.
		gain := int64(max(float64(loser.Level)/4, 7) / 100 * float64(winner.TTL))
		newTTL := winner.TTL - gain
		if newTTL < 0 {
			newTTL = 0
		}
		if err := e.store.SetTTL(ctx, winner.ID, newTTL); err != nil {
			return nil, err
		}
		logMsg = fmt.Sprintf("%s %s is removed from %s's clock.", verb, FormatDuration(gain), UTag(winner))
		msgs = append(msgs,
			BroadcastAll(logMsg),
			BroadcastAll(fmt.Sprintf("%s reaches next level in %s.", UTag(winner), FormatDuration(newTTL))),
		)

		bonus, err := e.victoryBonus(ctx, winner, loser)
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, bonus...)
	} else {
		pen := int64(max(float64(loser.Level)/7, 7) / 100 * float64(c.TTL))
		if err := e.store.AddTTL(ctx, c.ID, pen, ""); err != nil {
			return nil, err
		}
		logMsg = fmt.Sprintf("%s %s is added to %s's clock.", verb, FormatDuration(pen), UTag(c))
		msgs = append(msgs,
			BroadcastAll(logMsg),
			BroadcastAll(fmt.Sprintf("%s reaches next level in %s.", UTag(c), FormatDuration(c.TTL+pen))),
		)
	}

	if err := e.store.LogEvent(ctx, "battle", logMsg, c.ID, o.ID); err != nil {
		return msgs, err
	}
	if err := e.store.Commit(ctx); err != nil {
		return msgs, err
	}
	return msgs, nil
}

// victoryBonus runs the two mutually exclusive post-victory rolls: a
// critical strike, else a possible item theft.
func (e *Engine) victoryBonus(ctx context.Context, winner, loser *Player) ([]Broadcast, error) {
	critDie := 35
	switch winner.Alignment {
	case AlignGood:
		critDie = 50
	case AlignEvil:
		critDie = 20
	}

	if e.intN(critDie) < 1 {
		crit := int64(float64(5+e.intN(20)) / 100 * float64(loser.TTL))
		if err := e.store.AddTTL(ctx, loser.ID, crit, ""); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("%s dealt %s a Critical Strike! %s added to %s's clock.",
			UTag(winner), UTag(loser), FormatDuration(crit), UTag(loser))
		if err := e.store.LogEvent(ctx, "critical", msg, winner.ID, loser.ID); err != nil {
			return nil, err
		}
		return []Broadcast{BroadcastAll(msg)}, nil
	}

	if winner.Level > 19 && e.intN(25) < 1 {
		return e.stealItem(ctx, winner, loser)
	}

	return nil, nil
}

// stealItem swaps one item between winner and loser. Candidate slots are
// those where the loser outclasses the winner; with no candidate the
// rolled attempt silently fizzles. Both sides lose any unique metadata on
// the swapped slot, and each still ends up with exactly one item per slot.
func (e *Engine) stealItem(ctx context.Context, winner, loser *Player) ([]Broadcast, error) {
	wItems, err := e.store.Items(ctx, winner.ID)
	if err != nil {
		return nil, err
	}
	lItems, err := e.store.Items(ctx, loser.ID)
	if err != nil {
		return nil, err
	}

	var candidates []Slot
	for _, slot := range Slots {
		if lItems[slot].Level > wItems[slot].Level {
			candidates = append(candidates, slot)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	slot := candidates[e.intN(len(candidates))]
	if err := e.store.SwapItemLevels(ctx, winner.ID, loser.ID, slot); err != nil {
		return nil, fmt.Errorf("swapping %s: %w", slot, err)
	}

	msg := fmt.Sprintf("In battle, %s dropped their level %d %s! %s picks it up, tossing their old level %d %s.",
		UTag(loser), lItems[slot].Level, slot, UTag(winner), wItems[slot].Level, slot)
	if err := e.store.LogEvent(ctx, "steal", msg, winner.ID, loser.ID); err != nil {
		return nil, err
	}
	return []Broadcast{BroadcastAll(msg)}, nil
}

// powerRoll draws a uniform integer in [0, power), or 0 for the powerless.
func (e *Engine) powerRoll(power int) int {
	if power <= 0 {
		return 0
	}
	return e.intN(power)
}

// fetchFresh re-reads a player, falling back to the given snapshot when
// the row vanished mid-tick.
func (e *Engine) fetchFresh(ctx context.Context, p *Player) (*Player, error) {
	fresh, err := e.store.PlayerByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return p, nil
		}
		return nil, err
	}
	return fresh, nil
}

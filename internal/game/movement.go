package game

import (
	"context"
	"fmt"
)

// step moves one coordinate toward a target: the sign of the remaining
// delta, zero when already aligned.
func step(from, to int) int {
	switch {
	case from < to:
		return 1
	case from > to:
		return -1
	default:
		return 0
	}
}

// wrap folds a coordinate back onto [0, size) on the toroidal map.
func wrap(v, size int) int {
	v %= size
	if v < 0 {
		v += size
	}
	return v
}

// movePlayers runs selfClock movement sub-steps over everyone online.
// Positions carry forward between sub-steps in local state; each change
// is written through to the store as it happens. Two different players
// landing on one cell may fight, at most once per cell per sub-step,
// with probability 1/onlineCount. Grid-quest stage checks follow the
// last sub-step.
func (e *Engine) movePlayers(ctx context.Context, online []*Player) ([]Broadcast, error) {
	var msgs []Broadcast
	n := len(online)

	type pos struct {
		x, y int
	}
	state := make(map[int64]pos, n)
	for _, p := range online {
		state[p.ID] = pos{p.X, p.Y}
	}

	for sub := 0; sub < e.selfClock; sub++ {
		target, questers, questActive := e.gridQuestTarget()

		type cellOccupant struct {
			id      int64
			battled bool
		}
		cells := make(map[pos]*cellOccupant, n)

		for _, p := range online {
			cur := state[p.ID]

			var dx, dy int
			if questActive && questers[p.ID] && e.chance(0.01) {
				dx = step(cur.x, target.X)
				dy = step(cur.y, target.Y)
			} else {
				dx = e.intN(3) - 1
				dy = e.intN(3) - 1
			}

			next := pos{wrap(cur.x+dx, MapWidth), wrap(cur.y+dy, MapHeight)}
			state[p.ID] = next
			if err := e.store.UpdatePosition(ctx, p.ID, next.x, next.y); err != nil {
				return msgs, fmt.Errorf("updating position for %d: %w", p.ID, err)
			}

			occ, taken := cells[next]
			if taken && !occ.battled {
				if occ.id != p.ID && n > 1 && e.chance(1/float64(n)) {
					occ.battled = true
					a := playerAt(online, p.ID, state[p.ID].x, state[p.ID].y)
					b := playerAt(online, occ.id, state[occ.id].x, state[occ.id].y)
					battleMsgs, err := e.resolveBattle(ctx, a, b, true)
					if err != nil {
						return msgs, err
					}
					msgs = append(msgs, battleMsgs...)
				}
			} else if !taken {
				cells[next] = &cellOccupant{id: p.ID}
			}
		}
	}

	questMsgs, err := e.checkGridQuest(ctx)
	if err != nil {
		return msgs, err
	}
	return append(msgs, questMsgs...), nil
}

// playerAt builds a positional snapshot for battle announcements: stored
// identity, current in-pass coordinates.
func playerAt(online []*Player, id int64, x, y int) *Player {
	for _, p := range online {
		if p.ID == id {
			cp := *p
			cp.X, cp.Y = x, y
			return &cp
		}
	}
	return nil
}

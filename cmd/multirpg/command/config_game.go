package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
)

type GameConfig struct {
	// SelfClock is the number of movement sub-steps each tick runs,
	// which also scales the per-tick world event odds. Zero keeps the
	// default.
	SelfClock int `json:"self_clock"`
	// PenaltyCap bounds any single infraction penalty in seconds.
	// Zero leaves penalties uncapped.
	PenaltyCap int64 `json:"penalty_cap"`
}

func (c *GameConfig) Validate() error {
	el := errors.NewErrorList()

	if c.SelfClock < 0 {
		el.Add(fmt.Errorf("self_clock must not be negative"))
	}
	if c.PenaltyCap < 0 {
		el.Add(fmt.Errorf("penalty_cap must not be negative"))
	}

	return el.Err()
}

func (c *GameConfig) EngineOpts() []game.Opt {
	var opts []game.Opt
	if c.SelfClock > 0 {
		opts = append(opts, game.WithSelfClock(c.SelfClock))
	}
	if c.PenaltyCap > 0 {
		opts = append(opts, game.WithPenaltyCap(c.PenaltyCap))
	}
	return opts
}

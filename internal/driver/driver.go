// Package driver runs the simulation clock.
package driver

import (
	"context"
	"time"

	"github.com/pixil98/go-log"
)

const (
	DefaultTickLength = time.Second * 5
)

// Manager is a subsystem advanced once per tick.
type Manager interface {
	Tick(context.Context) error
}

// GameDriver ticks its managers on a fixed cadence until the context
// ends. Manager errors are logged, not fatal: a bad pass must never
// take the realm down.
type GameDriver struct {
	tickLength time.Duration
	managers   []Manager
}

func NewGameDriver(managers []Manager, opts ...GameDriverOpt) *GameDriver {
	d := &GameDriver{
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *GameDriver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

func (d *GameDriver) Tick(ctx context.Context) {
	for _, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			log.GetLogger(ctx).WithError(err).Error("tick failed")
		}
	}
}

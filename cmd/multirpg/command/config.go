package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string          `json:"tick_interval"`
	Storage      StorageConfig   `json:"storage"`
	Nats         NatsConfig      `json:"nats"`
	Game         GameConfig      `json:"game"`
	Networks     []NetworkConfig `json:"networks"`
	Console      ConsoleConfig   `json:"console"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d < time.Second {
			el.Add(fmt.Errorf("tick_interval must be at least 1 second"))
		}
	}

	if len(c.Networks) == 0 {
		el.Add(fmt.Errorf("at least one network is required"))
	}
	for i, n := range c.Networks {
		if err := n.Validate(); err != nil {
			el.Add(fmt.Errorf("network %d: %w", i, err))
		}
	}

	el.Add(c.Storage.Validate())
	el.Add(c.Nats.Validate())
	el.Add(c.Game.Validate())
	el.Add(c.Console.Validate())

	return el.Err()
}

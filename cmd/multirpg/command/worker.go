package command

import (
	"context"
	"fmt"
	"time"

	"github.com/pixil98/go-service"

	"github.com/TehPeGaSuS/MultiRPG/internal/console"
	"github.com/TehPeGaSuS/MultiRPG/internal/driver"
	"github.com/TehPeGaSuS/MultiRPG/internal/game"
	"github.com/TehPeGaSuS/MultiRPG/internal/messaging"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Message bus
	natsServer, err := cfg.Nats.BuildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	bus := messaging.NewBus(natsServer)

	// Persistence
	st, err := cfg.Storage.BuildStore()
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	// Engine
	engine := game.NewEngine(st, cfg.Game.EngineOpts()...)

	// IRC clients
	clients := make(service.WorkerList, len(cfg.Networks))
	for i, n := range cfg.Networks {
		client, err := n.BuildClient(engine, st, bus)
		if err != nil {
			return nil, fmt.Errorf("creating client for %s: %w", n.Name, err)
		}
		clients[fmt.Sprintf("irc-%d", i)] = client
	}

	// Simulation clock
	var driverOpts []driver.GameDriverOpt
	if cfg.TickInterval != "" {
		d, err := time.ParseDuration(cfg.TickInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing tick_interval: %w", err)
		}
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	gameDriver := driver.NewGameDriver([]driver.Manager{
		&tickManager{engine: engine, bus: bus},
	}, driverOpts...)

	workers := service.WorkerList{
		"nats":    natsServer,
		"driver":  gameDriver,
		"clients": &clients,
	}

	if cfg.Console.Enabled() {
		listener, err := cfg.Console.BuildListener(console.New(engine, st, bus))
		if err != nil {
			return nil, fmt.Errorf("creating console listener: %w", err)
		}
		workers["console"] = listener
	}

	return workers, nil
}

// tickManager advances the simulation one pass and fans the resulting
// broadcasts out on the bus.
type tickManager struct {
	engine *game.Engine
	bus    *messaging.Bus
}

func (m *tickManager) Tick(ctx context.Context) error {
	msgs, err := m.engine.Tick(ctx)
	if err != nil {
		return err
	}
	return m.bus.PublishAll(msgs)
}

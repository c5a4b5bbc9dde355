package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
	"github.com/TehPeGaSuS/MultiRPG/internal/irc"
	"github.com/TehPeGaSuS/MultiRPG/internal/messaging"
)

type NetworkConfig struct {
	Name           string `json:"name"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Channel        string `json:"channel"`
	Nick           string `json:"nick"`
	ServerPass     string `json:"server_pass,omitempty"`
	NickservPass   string `json:"nickserv_pass,omitempty"`
	UseTLS         bool   `json:"use_tls"`
	ReconnectDelay string `json:"reconnect_delay,omitempty"`
	Modes          string `json:"modes,omitempty"`
}

func (c *NetworkConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Name == "" {
		el.Add(fmt.Errorf("name is required"))
	}
	if c.Host == "" {
		el.Add(fmt.Errorf("host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		el.Add(fmt.Errorf("port must be between 1 and 65535"))
	}
	if c.Channel == "" {
		el.Add(fmt.Errorf("channel is required"))
	}
	if c.Nick == "" {
		el.Add(fmt.Errorf("nick is required"))
	}
	if c.ReconnectDelay != "" {
		if _, err := time.ParseDuration(c.ReconnectDelay); err != nil {
			el.Add(fmt.Errorf("parsing reconnect_delay: %w", err))
		}
	}

	return el.Err()
}

func (c *NetworkConfig) BuildClient(engine *game.Engine, store game.Store, bus *messaging.Bus) (*irc.Client, error) {
	cfg := irc.Config{
		Network:      c.Name,
		Host:         c.Host,
		Port:         c.Port,
		Channel:      c.Channel,
		Nick:         c.Nick,
		ServerPass:   c.ServerPass,
		NickservPass: c.NickservPass,
		UseTLS:       c.UseTLS,
		Modes:        c.Modes,
	}
	if c.ReconnectDelay != "" {
		d, err := time.ParseDuration(c.ReconnectDelay)
		if err != nil {
			return nil, fmt.Errorf("parsing reconnect_delay: %w", err)
		}
		cfg.ReconnectDelay = d
	}

	return irc.NewClient(cfg, engine, store, bus), nil
}

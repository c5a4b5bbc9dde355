package command

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-log"
	"github.com/pixil98/go-service"
	"golang.org/x/crypto/ssh"

	"github.com/TehPeGaSuS/MultiRPG/internal/console"
)

type ConsoleProtocol int

const (
	ConsoleProtocolTelnet ConsoleProtocol = iota
	ConsoleProtocolSSH
)

func (p *ConsoleProtocol) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "telnet":
		*p = ConsoleProtocolTelnet
	case "ssh":
		*p = ConsoleProtocolSSH
	default:
		return fmt.Errorf("unknown console protocol: %s", text)
	}
	return nil
}

type ConsoleConfig struct {
	Protocol ConsoleProtocol `json:"protocol"`
	// Port for the operator console. Zero disables it.
	Port        uint16 `json:"port"`
	HostKeyPath string `json:"host_key_path,omitempty"`
}

func (c *ConsoleConfig) Validate() error {
	return errors.NewErrorList().Err()
}

func (c *ConsoleConfig) Enabled() bool {
	return c.Port != 0
}

func (c *ConsoleConfig) BuildListener(con *console.Console) (service.Worker, error) {
	switch c.Protocol {
	case ConsoleProtocolTelnet:
		return console.NewTelnetListener(c.Port, con), nil
	case ConsoleProtocolSSH:
		hostKey, err := c.loadOrGenerateHostKey()
		if err != nil {
			return nil, fmt.Errorf("setting up ssh host key: %w", err)
		}
		return console.NewSshListener(c.Port, con, hostKey), nil
	default:
		return nil, fmt.Errorf("unknown console protocol: %v", c.Protocol)
	}
}

func (c *ConsoleConfig) loadOrGenerateHostKey() (ssh.Signer, error) {
	if c.HostKeyPath != "" {
		keyBytes, err := os.ReadFile(c.HostKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading host key %q: %w", c.HostKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parsing host key %q: %w", c.HostKeyPath, err)
		}
		return signer, nil
	}

	log.NewLogger().Warn("no host_key_path configured for ssh console, generating ephemeral key")
	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(privKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer from ephemeral key: %w", err)
	}
	return signer, nil
}

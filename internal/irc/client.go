package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pixil98/go-log"

	"github.com/TehPeGaSuS/MultiRPG/internal/display"
	"github.com/TehPeGaSuS/MultiRPG/internal/game"
	"github.com/TehPeGaSuS/MultiRPG/internal/messaging"
)

const (
	defaultReconnectDelay = 30 * time.Second
	defaultModes          = "+i"

	// Pause between queued lines so the server doesn't flood-kick us.
	sendInterval = 500 * time.Millisecond
)

// Config describes one IRC network connection.
type Config struct {
	Network        string
	Host           string
	Port           int
	Channel        string
	Nick           string
	ServerPass     string
	NickservPass   string
	UseTLS         bool
	ReconnectDelay time.Duration
	Modes          string
}

// Client keeps a single network connected, relays channel activity to
// the engine, and answers players over private message. It reconnects
// forever until its context is cancelled.
type Client struct {
	cfg    Config
	engine *game.Engine
	store  game.Store
	bus    *messaging.Bus

	sendQ chan string

	mu          sync.Mutex
	conn        net.Conn
	currentNick string

	// userhost -> username for players who were online before the
	// last restart, consumed by the WHO sweep after joining.
	prevOnline   map[string]string
	autoLoggedIn int
}

func NewClient(cfg Config, engine *game.Engine, store game.Store, bus *messaging.Bus) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.Modes == "" {
		cfg.Modes = defaultModes
	}
	return &Client{
		cfg:    cfg,
		engine: engine,
		store:  store,
		bus:    bus,
		sendQ:  make(chan string, 512),
	}
}

// Start connects and serves until the context is cancelled. Connection
// failures are logged and retried after the configured delay.
func (c *Client) Start(ctx context.Context) error {
	logger := log.GetLogger(ctx).WithField("network", c.cfg.Network)

	// The broker worker starts concurrently with this one, so the first
	// subscription attempts can land before it accepts connections.
	var unsubscribe func()
	for {
		u, err := c.bus.SubscribeNetwork(c.cfg.Network, func(msg game.Broadcast) {
			c.deliver(ctx, msg)
		})
		if err == nil {
			unsubscribe = u
			break
		}
		logger.WithError(err).Warn("subscribing to broadcasts")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
	defer unsubscribe()

	for {
		if err := c.session(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("connection lost")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	logger := log.GetLogger(ctx).WithField("network", c.cfg.Network)

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	logger.Infof("connecting to %s", addr)

	var (
		conn net.Conn
		err  error
	)
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	if c.cfg.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.currentNick = c.cfg.Nick
	c.mu.Unlock()

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sessCtx.Done()
		conn.Close()
	}()
	go c.sendLoop(sessCtx, conn)

	if c.cfg.ServerPass != "" {
		c.raw("PASS " + c.cfg.ServerPass)
	}
	c.raw("NICK " + c.cfg.Nick)
	c.raw("USER multirpg 0 * :Multi IdleRPG Bot")

	return c.readLoop(sessCtx, conn)
}

func (c *Client) readLoop(ctx context.Context, conn net.Conn) error {
	scanner := newLineScanner(conn)
	for scanner.Scan() {
		msg, ok := parseMessage(scanner.Text())
		if !ok {
			continue
		}
		c.handleMessage(ctx, msg)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// sendLoop drains the outgoing queue one line at a time with a fixed
// pause between lines. The queue is shared across reconnects so
// nothing queued during an outage is lost.
func (c *Client) sendLoop(ctx context.Context, conn net.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-c.sendQ:
			if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(sendInterval):
			}
		}
	}
}

// raw writes a line immediately, bypassing the paced queue. Used for
// registration and PING replies where latency matters.
func (c *Client) raw(line string) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	fmt.Fprintf(conn, "%s\r\n", line)
}

func (c *Client) enqueue(line string) {
	select {
	case c.sendQ <- line:
	default:
		// Queue full, drop rather than block the game loop.
	}
}

// deliver turns a bus broadcast into channel or private traffic.
func (c *Client) deliver(ctx context.Context, msg game.Broadcast) {
	switch msg.Scope {
	case game.ScopeNotice:
		c.notice(msg.Nick, msg.Message)
	default:
		c.say(msg.Message)
	}
}

// say sends to the channel unless channel output is silenced.
func (c *Client) say(text string) {
	silent := c.engine.SilentLevel()
	if silent == 1 || silent == 3 {
		return
	}
	for _, chunk := range display.Chunk(text, display.DefaultChunkWidth) {
		c.enqueue("PRIVMSG " + c.cfg.Channel + " :" + chunk)
	}
}

// notice sends a private NOTICE unless private output is silenced.
func (c *Client) notice(nick, text string) {
	silent := c.engine.SilentLevel()
	if silent == 2 || silent == 3 {
		return
	}
	for _, chunk := range display.Chunk(text, display.DefaultChunkWidth) {
		c.enqueue("NOTICE " + nick + " :" + chunk)
	}
}

// reply answers a private message command.
func (c *Client) reply(nick, text string) {
	silent := c.engine.SilentLevel()
	if silent == 2 || silent == 3 {
		return
	}
	for _, chunk := range display.Chunk(text, display.DefaultChunkWidth) {
		c.enqueue("PRIVMSG " + nick + " :" + chunk)
	}
}

func (c *Client) nickIs(nick string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.EqualFold(nick, c.currentNick)
}

package irc

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/go-log"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
)

// Numeric replies the client cares about.
const (
	rplWelcome   = "001"
	rplWhoReply  = "352"
	rplEndOfWho  = "315"
	errNickInUse = "433"
)

func (c *Client) handleMessage(ctx context.Context, msg message) {
	logger := log.GetLogger(ctx).WithField("network", c.cfg.Network)

	switch msg.command {
	case "PING":
		c.raw("PONG :" + msg.last())

	case rplWelcome:
		if c.cfg.NickservPass != "" {
			c.raw("PRIVMSG NickServ :IDENTIFY " + c.cfg.NickservPass)
		}
		c.mu.Lock()
		nick := c.currentNick
		c.mu.Unlock()
		c.raw("MODE " + nick + " " + c.cfg.Modes)
		c.raw("JOIN " + c.cfg.Channel)

	case errNickInUse:
		c.mu.Lock()
		c.currentNick += "_"
		nick := c.currentNick
		c.mu.Unlock()
		c.raw("NICK " + nick)

	case "JOIN":
		if c.nickIs(msg.nick) {
			c.onSelfJoin(ctx)
		}

	case rplWhoReply:
		c.onWhoReply(ctx, msg)

	case rplEndOfWho:
		c.onWhoDone(ctx)

	case "PRIVMSG":
		if c.nickIs(msg.nick) {
			return
		}
		target := msg.param(0)
		text := msg.last()
		if c.nickIs(target) {
			c.handleCommand(ctx, msg.nick, msg.prefix, text)
		} else if strings.EqualFold(target, c.cfg.Channel) {
			msgs, err := c.engine.OnMessage(ctx, msg.nick, c.cfg.Network, text)
			c.publish(ctx, msgs, err)
		}

	case "NOTICE":
		if c.nickIs(msg.nick) {
			return
		}
		if strings.EqualFold(msg.param(0), c.cfg.Channel) {
			msgs, err := c.engine.OnNotice(ctx, msg.nick, c.cfg.Network, msg.last())
			c.publish(ctx, msgs, err)
		}

	case "PART":
		if !c.nickIs(msg.nick) && strings.EqualFold(msg.param(0), c.cfg.Channel) {
			msgs, err := c.engine.OnPart(ctx, msg.nick, c.cfg.Network)
			c.publish(ctx, msgs, err)
		}

	case "QUIT":
		if !c.nickIs(msg.nick) {
			msgs, err := c.engine.OnQuit(ctx, msg.nick, c.cfg.Network)
			c.publish(ctx, msgs, err)
		}

	case "KICK":
		if strings.EqualFold(msg.param(0), c.cfg.Channel) {
			kicked := msg.param(1)
			if c.nickIs(kicked) {
				c.raw("JOIN " + c.cfg.Channel)
				return
			}
			msgs, err := c.engine.OnKick(ctx, kicked, c.cfg.Network)
			c.publish(ctx, msgs, err)
		}

	case "NICK":
		newNick := msg.last()
		if c.nickIs(msg.nick) {
			c.mu.Lock()
			c.currentNick = newNick
			c.mu.Unlock()
			return
		}
		msgs, err := c.engine.OnNickChange(ctx, msg.nick, newNick, c.cfg.Network)
		c.publish(ctx, msgs, err)

	case "ERROR":
		logger.Warnf("server error: %s", msg.last())
	}
}

// onSelfJoin runs once the bot is in its channel. Players who were
// online before the last shutdown get a WHO sweep so they can be logged
// back in without typing LOGIN again.
func (c *Client) onSelfJoin(ctx context.Context) {
	logger := log.GetLogger(ctx).WithField("network", c.cfg.Network)
	logger.Infof("joined %s", c.cfg.Channel)

	prev, err := c.store.PreviouslyOnline(ctx, c.cfg.Network)
	if err != nil {
		logger.WithError(err).Error("loading previously online players")
		prev = nil
	}

	c.mu.Lock()
	c.prevOnline = make(map[string]string, len(prev))
	for _, p := range prev {
		if p.UserHost != "" {
			c.prevOnline[p.UserHost] = p.Username
		}
	}
	pending := len(c.prevOnline)
	c.mu.Unlock()

	if pending > 0 {
		c.raw("WHO " + c.cfg.Channel)
	} else if err := c.store.MarkAllOffline(ctx, c.cfg.Network); err != nil {
		logger.WithError(err).Error("marking players offline")
	}

	c.engine.MarkJoined()
}

// onWhoReply matches one WHO entry against the saved userhosts and
// silently logs matching players back in under their current nick.
func (c *Client) onWhoReply(ctx context.Context, msg message) {
	// <me> <channel> <user> <host> <server> <nick> ...
	user := msg.param(2)
	host := msg.param(3)
	nick := msg.param(5)
	if user == "" || host == "" || nick == "" {
		return
	}
	userhost := user + "@" + host

	c.mu.Lock()
	var username string
	for saved, uname := range c.prevOnline {
		if _, uh, found := strings.Cut(saved, "!"); found && uh == userhost {
			username = uname
			delete(c.prevOnline, saved)
			break
		}
	}
	c.mu.Unlock()
	if username == "" {
		return
	}

	logger := log.GetLogger(ctx).WithField("network", c.cfg.Network)
	p, err := c.store.PlayerByUsername(ctx, username)
	if err != nil {
		logger.WithError(err).Errorf("auto-login lookup for %s", username)
		return
	}
	if err := c.store.SetOnline(ctx, p.ID, nick, c.cfg.Channel, nick+"!"+userhost); err != nil {
		logger.WithError(err).Errorf("auto-login for %s", username)
		return
	}
	c.mu.Lock()
	c.autoLoggedIn++
	c.mu.Unlock()
}

// onWhoDone marks any saved player the WHO sweep didn't find as offline
// and reports how many came back.
func (c *Client) onWhoDone(ctx context.Context) {
	logger := log.GetLogger(ctx).WithField("network", c.cfg.Network)

	c.mu.Lock()
	leftovers := c.prevOnline
	c.prevOnline = nil
	count := c.autoLoggedIn
	c.autoLoggedIn = 0
	c.mu.Unlock()

	for _, username := range leftovers {
		p, err := c.store.PlayerByUsername(ctx, username)
		if err != nil {
			continue
		}
		if err := c.store.SetOffline(ctx, p.ID); err != nil {
			logger.WithError(err).Errorf("marking %s offline", username)
		}
	}

	if count > 0 {
		c.say(fmt.Sprintf("%d user(s) automatically logged in on %s.", count, c.cfg.Network))
	}
}

// publish hands engine output to the message bus. Scope-all broadcasts
// fan out to every network from there, including back to this one.
func (c *Client) publish(ctx context.Context, msgs []game.Broadcast, err error) {
	logger := log.GetLogger(ctx).WithField("network", c.cfg.Network)
	if err != nil {
		logger.WithError(err).Error("handling channel event")
	}
	if len(msgs) == 0 {
		return
	}
	if err := c.bus.PublishAll(msgs); err != nil {
		logger.WithError(err).Error("publishing broadcasts")
	}
}

package irc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pixil98/go-log"
)

var helpLines = []string{
	"MultiRPG commands (all via PM to the bot):",
	"  REGISTER <username> <password> <class>  - Create account",
	"  LOGIN <username> <password>              - Log in",
	"  LOGOUT                                   - Log out (penalty!)",
	"  STATUS [username]                        - Show stats",
	"  WHOAMI                                   - Short status",
	"  QUEST                                    - Active quest info",
	"  TOP                                      - Top 5 players",
	"  NEWPASS <password>                       - Change password",
	"  ALIGN <good|neutral|evil>                - Change alignment",
	"  REMOVEME                                 - Delete account",
	"Talking in channel, parting, quitting, nick changes = penalty!",
	"Admin commands: HOG PUSH CHPASS CHCLASS CHUSER PAUSE SILENT CLEARQ DELOLD MKADMIN DELADMIN",
}

// handleCommand dispatches one private message. Errors are reported to
// the sender in general terms and logged with detail.
func (c *Client) handleCommand(ctx context.Context, nick, userhost, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	cmd, args := strings.ToUpper(fields[0]), fields[1:]

	logger := log.GetLogger(ctx).WithField("network", c.cfg.Network)
	reply := func(msg string) { c.reply(nick, msg) }
	fail := func(err error) {
		logger.WithError(err).Errorf("command %s from %s", cmd, nick)
		reply("Something went wrong. Try again later.")
	}

	switch cmd {
	case "REGISTER":
		if len(args) < 3 {
			reply("Usage: REGISTER <username> <password> <class>")
			reply("Example: REGISTER PotHead toke420 420th Level Puffmage")
			return
		}
		class := strings.Join(args[2:], " ")
		_, priv, msgs, err := c.engine.OnRegister(ctx, args[0], c.cfg.Network, nick, c.cfg.Channel, args[1], class, userhost)
		if err != nil {
			fail(err)
			return
		}
		reply(priv)
		c.publish(ctx, msgs, nil)

	case "LOGIN":
		if len(args) < 2 {
			reply("Usage: LOGIN <username> <password>")
			return
		}
		_, msg, err := c.engine.OnLogin(ctx, args[0], c.cfg.Network, nick, c.cfg.Channel, args[1], userhost)
		if err != nil {
			fail(err)
			return
		}
		reply(msg)

	case "LOGOUT":
		msgs, err := c.engine.OnLogout(ctx, nick, c.cfg.Network)
		if err != nil {
			fail(err)
			return
		}
		if len(msgs) == 0 {
			reply("You are not logged in.")
			return
		}
		c.publish(ctx, msgs, nil)

	case "NEWPASS":
		if len(args) == 0 {
			reply("Usage: NEWPASS <password>")
			return
		}
		c.replyOrFail(reply, fail)(c.engine.NewPass(ctx, nick, c.cfg.Network, args[0]))

	case "ALIGN":
		if len(args) == 0 {
			reply("Usage: ALIGN <good|neutral|evil>")
			return
		}
		msg, msgs, err := c.engine.Align(ctx, nick, c.cfg.Network, strings.ToLower(args[0]))
		if err != nil {
			fail(err)
			return
		}
		reply(msg)
		c.publish(ctx, msgs, nil)

	case "REMOVEME":
		msg, msgs, err := c.engine.RemoveMe(ctx, nick, c.cfg.Network)
		if err != nil {
			fail(err)
			return
		}
		reply(msg)
		c.publish(ctx, msgs, nil)

	case "STATUS":
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		c.replyOrFail(reply, fail)(c.engine.Status(ctx, nick, c.cfg.Network, target))

	case "WHOAMI":
		c.replyOrFail(reply, fail)(c.engine.WhoAmI(ctx, nick, c.cfg.Network))

	case "QUEST":
		reply(c.engine.QuestStatus())

	case "TOP":
		lines, err := c.engine.Top(ctx, 5)
		if err != nil {
			fail(err)
			return
		}
		for _, line := range lines {
			reply(line)
		}

	case "HELP":
		for _, line := range helpLines {
			reply(line)
		}

	case "HOG":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		msgs, err := c.engine.HandOfGod(ctx)
		c.publish(ctx, msgs, err)

	case "PUSH":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		if len(args) < 2 {
			reply("Usage: PUSH <username> <seconds>")
			return
		}
		seconds, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			reply("Usage: PUSH <username> <seconds>")
			return
		}
		msg, msgs, err := c.engine.Push(ctx, nick, args[0], seconds)
		if err != nil {
			fail(err)
			return
		}
		reply(msg)
		c.publish(ctx, msgs, nil)

	case "CHPASS":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		if len(args) < 2 {
			reply("Usage: CHPASS <username> <password>")
			return
		}
		c.replyOrFail(reply, fail)(c.engine.ChangePassword(ctx, args[0], args[1]))

	case "CHCLASS":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		if len(args) < 2 {
			reply("Usage: CHCLASS <username> <class>")
			return
		}
		c.replyOrFail(reply, fail)(c.engine.ChangeClass(ctx, args[0], strings.Join(args[1:], " ")))

	case "CHUSER":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		if len(args) < 2 {
			reply("Usage: CHUSER <username> <new name>")
			return
		}
		c.replyOrFail(reply, fail)(c.engine.ChangeUsername(ctx, args[0], args[1]))

	case "DELOLD":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		days, err := parseDays(args)
		if err != nil {
			reply("Usage: DELOLD <days>")
			return
		}
		c.replyOrFail(reply, fail)(c.engine.DeleteOld(ctx, days))

	case "MKADMIN":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		if len(args) == 0 {
			reply("Usage: MKADMIN <username>")
			return
		}
		c.replyOrFail(reply, fail)(c.engine.SetAdmin(ctx, args[0], true))

	case "DELADMIN":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		if len(args) == 0 {
			reply("Usage: DELADMIN <username>")
			return
		}
		c.replyOrFail(reply, fail)(c.engine.SetAdmin(ctx, args[0], false))

	case "PAUSE":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		reply(c.engine.TogglePause())

	case "SILENT":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		level, err := parseSilentLevel(args)
		if err != nil {
			reply("Usage: SILENT <0|1|2|3>  (0=all on, 1=no chan, 2=no pm, 3=all off)")
			return
		}
		msg, err := c.engine.SetSilentLevel(level)
		if err != nil {
			reply("Usage: SILENT <0|1|2|3>  (0=all on, 1=no chan, 2=no pm, 3=all off)")
			return
		}
		reply(msg)

	case "CLEARQ":
		if !c.requireAdmin(ctx, nick, reply) {
			return
		}
		reply(fmt.Sprintf("Send queue cleared (%d messages dropped).", c.clearQueue()))

	default:
		reply(fmt.Sprintf("Unknown command '%s'. Send HELP for a list of commands.", cmd))
	}
}

// replyOrFail adapts the common (string, error) command result shape.
func (c *Client) replyOrFail(reply func(string), fail func(error)) func(string, error) {
	return func(msg string, err error) {
		if err != nil {
			fail(err)
			return
		}
		reply(msg)
	}
}

func (c *Client) requireAdmin(ctx context.Context, nick string, reply func(string)) bool {
	if c.engine.IsAdmin(ctx, nick, c.cfg.Network) {
		return true
	}
	reply("Access denied.")
	return false
}

func (c *Client) clearQueue() int {
	count := 0
	for {
		select {
		case <-c.sendQ:
			count++
		default:
			return count
		}
	}
}

func parseDays(args []string) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing days")
	}
	days, err := strconv.ParseFloat(args[0], 64)
	if err != nil || days <= 0 {
		return 0, fmt.Errorf("bad days %q", args[0])
	}
	return days, nil
}

func parseSilentLevel(args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing level")
	}
	level, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, err
	}
	return level, nil
}

package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
	"github.com/TehPeGaSuS/MultiRPG/internal/messaging"
)

const banner = `MultiRPG operator console. Type "help" for commands.`

// Console serves the operator command loop. Unlike the in-channel admin
// commands it talks to the engine and store directly and needs no
// registered account.
type Console struct {
	engine *game.Engine
	store  game.Store
	bus    *messaging.Bus
}

func New(engine *game.Engine, store game.Store, bus *messaging.Bus) *Console {
	return &Console{
		engine: engine,
		store:  store,
		bus:    bus,
	}
}

// RunSession reads commands until the client disconnects or quits.
func (c *Console) RunSession(ctx context.Context, rw io.ReadWriter) error {
	fmt.Fprintf(rw, "%s\n", banner)

	scanner := bufio.NewScanner(rw)
	for {
		fmt.Fprintf(rw, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		if cmd == "quit" || cmd == "exit" {
			fmt.Fprintf(rw, "Bye.\n")
			return nil
		}
		if err := c.dispatch(ctx, rw, cmd, args); err != nil {
			fmt.Fprintf(rw, "error: %s\n", err)
		}
	}
}

func (c *Console) dispatch(ctx context.Context, w io.Writer, cmd string, args []string) error {
	switch cmd {
	case "help":
		c.printHelp(w)
		return nil
	case "status":
		return c.printStatus(ctx, w)
	case "who":
		return c.printWho(ctx, w)
	case "whois":
		if len(args) == 0 {
			return fmt.Errorf("usage: whois <username>")
		}
		return c.printWhois(ctx, w, args[0])
	case "top":
		limit := 5
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("usage: top [count]")
			}
			limit = n
		}
		lines, err := c.engine.Top(ctx, limit)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
		}
		return nil
	case "events":
		limit := 20
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("usage: events [count]")
			}
			limit = n
		}
		events, err := c.store.RecentEvents(ctx, limit)
		if err != nil {
			return err
		}
		for _, ev := range events {
			fmt.Fprintf(w, "%s [%s] %s\n", ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Kind, ev.Message)
		}
		return nil
	case "push":
		if len(args) < 2 {
			return fmt.Errorf("usage: push <username> <seconds>")
		}
		seconds, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("usage: push <username> <seconds>")
		}
		msg, msgs, err := c.engine.Push(ctx, "console", args[0], seconds)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", msg)
		return c.bus.PublishAll(msgs)
	case "hog":
		msgs, err := c.engine.HandOfGod(ctx)
		if err != nil {
			return err
		}
		return c.bus.PublishAll(msgs)
	case "pause":
		fmt.Fprintf(w, "%s\n", c.engine.TogglePause())
		return nil
	case "silent":
		if len(args) == 0 {
			return fmt.Errorf("usage: silent <0|1|2|3>")
		}
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("usage: silent <0|1|2|3>")
		}
		msg, err := c.engine.SetSilentLevel(level)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", msg)
		return nil
	case "mkadmin", "deladmin":
		if len(args) == 0 {
			return fmt.Errorf("usage: %s <username>", cmd)
		}
		msg, err := c.engine.SetAdmin(ctx, args[0], cmd == "mkadmin")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", msg)
		return nil
	case "delold":
		if len(args) == 0 {
			return fmt.Errorf("usage: delold <days>")
		}
		days, err := strconv.ParseFloat(args[0], 64)
		if err != nil || days <= 0 {
			return fmt.Errorf("usage: delold <days>")
		}
		msg, err := c.engine.DeleteOld(ctx, days)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", msg)
		return nil
	case "quest":
		fmt.Fprintf(w, "%s\n", c.engine.QuestStatus())
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (c *Console) printHelp(w io.Writer) {
	for _, line := range []string{
		"status            overall game state",
		"who               online players",
		"whois <username>  one player in detail",
		"top [count]       leaderboard",
		"events [count]    recent event log entries",
		"quest             active quest info",
		"push <user> <sec> add or remove countdown seconds",
		"hog               trigger the hand of god",
		"pause             toggle tick processing",
		"silent <0-3>      set the silence level",
		"mkadmin <user>    grant admin",
		"deladmin <user>   revoke admin",
		"delold <days>     purge stale offline accounts",
		"quit              close this session",
	} {
		fmt.Fprintf(w, "%s\n", line)
	}
}

func (c *Console) printStatus(ctx context.Context, w io.Writer) error {
	online, err := c.store.OnlinePlayers(ctx)
	if err != nil {
		return err
	}
	state := "running"
	if c.engine.Paused() {
		state = "paused"
	}
	fmt.Fprintf(w, "Game %s, silent level %d, %d player(s) online.\n",
		state, c.engine.SilentLevel(), len(online))
	fmt.Fprintf(w, "%s\n", c.engine.QuestStatus())
	return nil
}

func (c *Console) printWho(ctx context.Context, w io.Writer) error {
	online, err := c.store.OnlinePlayers(ctx)
	if err != nil {
		return err
	}
	if len(online) == 0 {
		fmt.Fprintf(w, "Nobody is online.\n")
		return nil
	}
	for _, p := range online {
		fmt.Fprintf(w, "%s@%s as %s, level %d at [%d,%d], TTL %s\n",
			p.Username, p.Network, p.Nick, p.Level, p.X, p.Y, game.FormatDuration(p.TTL))
	}
	return nil
}

func (c *Console) printWhois(ctx context.Context, w io.Writer, username string) error {
	p, err := c.store.PlayerByUsername(ctx, username)
	if err != nil {
		return err
	}
	itemSum, err := c.store.ItemSum(ctx, p.ID)
	if err != nil {
		return err
	}
	presence := "offline"
	if p.Online {
		presence = fmt.Sprintf("online as %s", p.Nick)
	}
	fmt.Fprintf(w, "%s@%s, the level %d %s (%s)\n", p.Username, p.Network, p.Level, p.Class, presence)
	fmt.Fprintf(w, "Alignment %s, items %d, position [%d,%d], admin %v\n",
		p.Alignment.Name(), itemSum, p.X, p.Y, p.Admin)
	fmt.Fprintf(w, "TTL %s, penalties msg/%d nick/%d part/%d kick/%d quit/%d quest/%d logout/%d\n",
		game.FormatDuration(p.TTL),
		p.Penalties.Message, p.Penalties.Nick, p.Penalties.Part,
		p.Penalties.Kick, p.Penalties.Quit, p.Penalties.Quest, p.Penalties.Logout)
	return nil
}

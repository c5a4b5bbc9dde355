package game

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status describes a player for the STATUS command. With no target it
// reports on the caller.
func (e *Engine) Status(ctx context.Context, nick, network, target string) (string, error) {
	var p *Player
	var err error
	if target != "" {
		p, err = e.store.PlayerByUsername(ctx, target)
		if errors.Is(err, ErrPlayerNotFound) {
			return "No such user.", nil
		}
	} else {
		p, err = e.store.PlayerByNick(ctx, nick, network)
		if errors.Is(err, ErrPlayerNotFound) {
			return "You are not logged in.", nil
		}
	}
	if err != nil {
		return "", err
	}

	itemSum, err := e.store.ItemSum(ctx, p.ID)
	if err != nil {
		return "", err
	}
	state := "Offline"
	if p.Online {
		state = "Online"
	}
	return fmt.Sprintf("%s@%s | Level %d %s (%s) | %s | TTL: %s | Pos: [%d/%d] | Items: %d",
		p.Username, p.Network, p.Level, p.Class, p.Alignment.Name(), state,
		FormatDuration(p.TTL), p.X, p.Y, itemSum), nil
}

// WhoAmI is the short self-status reply.
func (e *Engine) WhoAmI(ctx context.Context, nick, network string) (string, error) {
	p, err := e.store.PlayerByNick(ctx, nick, network)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return "You are not logged in.", nil
		}
		return "", err
	}
	return fmt.Sprintf("You are %s, the level %d %s. Next level in %s.",
		p.Username, p.Level, p.Class, FormatDuration(p.TTL)), nil
}

// Top formats the top-ranked players for the TOP command.
func (e *Engine) Top(ctx context.Context, limit int) ([]string, error) {
	players, err := e.store.TopPlayers(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return []string{"No players yet."}, nil
	}
	lines := make([]string, 0, len(players))
	for i, p := range players {
		itemSum, err := e.store.ItemSum(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("%d. %s@%s, the level %d %s | Items: %d | TTL: %s",
			i+1, p.Username, p.Network, p.Level, p.Class, itemSum, FormatDuration(p.TTL)))
	}
	return lines, nil
}

// NewPass changes the caller's own password.
func (e *Engine) NewPass(ctx context.Context, nick, network, password string) (string, error) {
	p, err := e.store.PlayerByNick(ctx, nick, network)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return "You are not logged in.", nil
		}
		return "", err
	}
	if err := e.store.SetPassword(ctx, p.ID, password); err != nil {
		return "", err
	}
	return "Password changed.", nil
}

// Align changes the caller's alignment and announces it.
func (e *Engine) Align(ctx context.Context, nick, network, alignment string) (string, []Broadcast, error) {
	a, ok := ParseAlignment(alignment)
	if !ok {
		return "Usage: ALIGN <good|neutral|evil>", nil, nil
	}
	p, err := e.store.PlayerByNick(ctx, nick, network)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return "You are not logged in.", nil, nil
		}
		return "", nil, err
	}
	if err := e.store.SetAlignment(ctx, p.ID, a); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Your alignment is now %s.", a.Name()),
		[]Broadcast{BroadcastAll(fmt.Sprintf("%s changed alignment to: %s.", UTag(p), a.Name()))}, nil
}

// RemoveMe deletes the caller's account.
func (e *Engine) RemoveMe(ctx context.Context, nick, network string) (string, []Broadcast, error) {
	p, err := e.store.PlayerByNick(ctx, nick, network)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return "You are not logged in.", nil, nil
		}
		return "", nil, err
	}
	if err := e.store.DeletePlayer(ctx, p.ID); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Account %s removed.", p.Username),
		[]Broadcast{BroadcastAll(fmt.Sprintf("%s removed their account, %s, the %s.", nick, UTag(p), p.Class))}, nil
}

// Push carries a player toward (or away from) their next level by the
// given number of seconds. Admin only; the transport gates access.
func (e *Engine) Push(ctx context.Context, adminNick, target string, seconds int64) (string, []Broadcast, error) {
	p, err := e.store.PlayerByUsername(ctx, target)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return fmt.Sprintf("No such username %s.", target), nil, nil
		}
		return "", nil, err
	}
	if seconds > p.TTL {
		seconds = p.TTL
	}
	newTTL := p.TTL - seconds
	if newTTL < 0 {
		newTTL = 0
	}
	if err := e.store.SetTTL(ctx, p.ID, newTTL); err != nil {
		return "", nil, err
	}
	if err := e.store.Commit(ctx); err != nil {
		return "", nil, err
	}
	msg := fmt.Sprintf("%s pushed %s %s toward level %d. Next level in %s.",
		adminNick, UTag(p), FormatDuration(seconds), p.Level+1, FormatDuration(newTTL))
	return "Done.", []Broadcast{BroadcastAll(msg)}, nil
}

// HandOfGod fires a hand-of-fate event on demand. Admin only.
func (e *Engine) HandOfGod(ctx context.Context) ([]Broadcast, error) {
	online, err := e.store.OnlinePlayers(ctx)
	if err != nil {
		return nil, err
	}
	return e.handOfFate(ctx, online)
}

// DeleteOld removes accounts idle for more than the given number of
// days. Admin only.
func (e *Engine) DeleteOld(ctx context.Context, days float64) (string, error) {
	cutoff := e.now().Add(-time.Duration(days * 24 * float64(time.Hour)))
	n, err := e.store.DeleteStale(ctx, cutoff)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d accounts removed.", n), nil
}

// ChangePassword sets another player's password. Admin only.
func (e *Engine) ChangePassword(ctx context.Context, target, password string) (string, error) {
	p, err := e.store.PlayerByUsername(ctx, target)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return fmt.Sprintf("No such username %s.", target), nil
		}
		return "", err
	}
	if err := e.store.SetPassword(ctx, p.ID, password); err != nil {
		return "", err
	}
	return fmt.Sprintf("Password for %s changed.", target), nil
}

// ChangeClass sets another player's class label. Admin only.
func (e *Engine) ChangeClass(ctx context.Context, target, class string) (string, error) {
	p, err := e.store.PlayerByUsername(ctx, target)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return fmt.Sprintf("No such username %s.", target), nil
		}
		return "", err
	}
	if err := e.store.SetClass(ctx, p.ID, class); err != nil {
		return "", err
	}
	return fmt.Sprintf("Class for %s changed to %s.", target, class), nil
}

// ChangeUsername renames an account, keeping global uniqueness. Admin only.
func (e *Engine) ChangeUsername(ctx context.Context, target, newName string) (string, error) {
	if len(newName) < 1 || len(newName) > 16 {
		return "New name must be 1-16 characters.", nil
	}
	p, err := e.store.PlayerByUsername(ctx, target)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return fmt.Sprintf("No such username %s.", target), nil
		}
		return "", err
	}
	if _, err := e.store.PlayerByUsername(ctx, newName); err == nil {
		return fmt.Sprintf("The name %s is already taken.", newName), nil
	} else if !errors.Is(err, ErrPlayerNotFound) {
		return "", err
	}
	if err := e.store.SetUsername(ctx, p.ID, newName); err != nil {
		return "", err
	}
	return fmt.Sprintf("Username changed from %s to %s.", target, newName), nil
}

// SetAdmin grants or revokes the admin flag. Admin only.
func (e *Engine) SetAdmin(ctx context.Context, username string, admin bool) (string, error) {
	if err := e.store.SetAdmin(ctx, username, admin); err != nil {
		return "", err
	}
	if admin {
		return fmt.Sprintf("%s is now an admin.", username), nil
	}
	return fmt.Sprintf("%s is no longer an admin.", username), nil
}

// IsAdmin reports whether the nick maps to an online admin account.
func (e *Engine) IsAdmin(ctx context.Context, nick, network string) bool {
	p, err := e.store.PlayerByNick(ctx, nick, network)
	return err == nil && p.Admin
}

// TogglePause flips the tick-processing gate. Admin only.
func (e *Engine) TogglePause() string {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.paused = !e.paused
	if e.paused {
		return "Game PAUSED. Tick processing suspended."
	}
	return "Game RESUMED. Tick processing running."
}

// SetSilentLevel configures broadcast suppression. Admin only.
func (e *Engine) SetSilentLevel(level int) (string, error) {
	if level < 0 || level > 3 {
		return "", fmt.Errorf("silent level must be 0-3, got %d", level)
	}
	e.stateMu.Lock()
	e.silent = level
	e.stateMu.Unlock()

	labels := map[int]string{
		0: "all messages enabled",
		1: "channel messages disabled",
		2: "private messages disabled",
		3: "all messages disabled",
	}
	return fmt.Sprintf("Silent mode %d: %s.", level, labels[level]), nil
}

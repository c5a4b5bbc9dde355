package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// OnLogin authenticates a player and brings them online. Usernames are
// globally unique, so a character registered on one network may log in
// from any other. Returns ok and a private reply for the caller.
func (e *Engine) OnLogin(ctx context.Context, username, network, nick, channel, password, userhost string) (bool, string, error) {
	p, err := e.store.PlayerByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return false, "No such account. Use REGISTER to create one.", nil
		}
		return false, "", err
	}
	ok, err := e.store.CheckPassword(ctx, p.ID, password)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "Wrong password.", nil
	}
	if p.Online {
		return false, "You are already logged in.", nil
	}
	if err := e.store.SetOnline(ctx, p.ID, nick, channel, userhost); err != nil {
		return false, "", err
	}
	return true, fmt.Sprintf("Logon successful. %s, the level %d %s. Next level in %s.",
		p.Username, p.Level, p.Class, FormatDuration(p.TTL)), nil
}

// OnRegister creates an account and brings it online. All players start
// neutral at level zero. Returns ok, a private reply, and any welcome
// broadcasts.
func (e *Engine) OnRegister(ctx context.Context, username, network, nick, channel, password, class, userhost string) (bool, string, []Broadcast, error) {
	if len(username) < 1 || len(username) > 16 {
		return false, "Character names must be 1-16 chars.", nil, nil
	}
	if strings.HasPrefix(username, "#") {
		return false, "Character names may not begin with #.", nil, nil
	}
	if len(class) > 30 {
		return false, "Character classes must be < 31 chars.", nil, nil
	}

	if _, err := e.store.PlayerByUsername(ctx, username); err == nil {
		return false, fmt.Sprintf("Sorry, the name %s is already taken.", username), nil, nil
	} else if !errors.Is(err, ErrPlayerNotFound) {
		return false, "", nil, err
	}

	id, err := e.store.CreatePlayer(ctx, username, network, password, class)
	if err != nil {
		if errors.Is(err, ErrPlayerExists) {
			return false, "Sorry, that character name is already in use.", nil, nil
		}
		return false, "", nil, err
	}
	if err := e.store.SetOnline(ctx, id, nick, channel, userhost); err != nil {
		return false, "", nil, err
	}

	priv := fmt.Sprintf("Success! Account %s created. You have %s until level 1. "+
		"NOTE: The point of the game is to idle. Talking, parting, quitting, and nick changes all penalize you!",
		username, FormatDuration(ttlBase))
	welcome := BroadcastAll(fmt.Sprintf("Welcome %s@%s's new player %s, the %s! Next level in %s.",
		nick, network, username, class, FormatDuration(ttlBase)))
	return true, priv, []Broadcast{welcome}, nil
}

// OnLogout logs a player out voluntarily, which is itself an infraction.
func (e *Engine) OnLogout(ctx context.Context, nick, network string) ([]Broadcast, error) {
	p, err := e.onlineByNick(ctx, nick, network)
	if err != nil || p == nil {
		return nil, err
	}
	pen := Penalty(PenaltyLogout, p.Level, 0, e.penaltyCap)
	if err := e.store.AddTTL(ctx, p.ID, pen, PenaltyLogout); err != nil {
		return nil, err
	}
	if err := e.store.SetOffline(ctx, p.ID); err != nil {
		return nil, err
	}
	msgs := []Broadcast{BroadcastNotice(network, nick,
		fmt.Sprintf("Penalty of %s added to your timer for LOGOUT.", FormatDuration(pen)))}
	return e.withQuestAbort(ctx, p, msgs)
}

// OnNickChange penalizes a nick change and records the new nick.
func (e *Engine) OnNickChange(ctx context.Context, oldNick, newNick, network string) ([]Broadcast, error) {
	p, err := e.onlineByNick(ctx, oldNick, network)
	if err != nil || p == nil {
		return nil, err
	}
	pen := Penalty(PenaltyNick, p.Level, 0, e.penaltyCap)
	if err := e.store.AddTTL(ctx, p.ID, pen, PenaltyNick); err != nil {
		return nil, err
	}
	if err := e.store.UpdateNick(ctx, p.ID, newNick); err != nil {
		return nil, err
	}
	msgs := []Broadcast{BroadcastNotice(network, newNick,
		fmt.Sprintf("Penalty of %s added to your timer for nick change.", FormatDuration(pen)))}
	return e.withQuestAbort(ctx, p, msgs)
}

// OnPart penalizes leaving the channel and logs the player out.
func (e *Engine) OnPart(ctx context.Context, nick, network string) ([]Broadcast, error) {
	p, err := e.onlineByNick(ctx, nick, network)
	if err != nil || p == nil {
		return nil, err
	}
	pen := Penalty(PenaltyPart, p.Level, 0, e.penaltyCap)
	if err := e.store.AddTTL(ctx, p.ID, pen, PenaltyPart); err != nil {
		return nil, err
	}
	if err := e.store.SetOffline(ctx, p.ID); err != nil {
		return nil, err
	}
	msgs := []Broadcast{BroadcastNet(network,
		fmt.Sprintf("%s has parted. Penalty: %s.", UTag(p), FormatDuration(pen)))}
	return e.withQuestAbort(ctx, p, msgs)
}

// OnQuit penalizes a disconnect and logs the player out. Quits get no
// farewell broadcast; the player is already gone.
func (e *Engine) OnQuit(ctx context.Context, nick, network string) ([]Broadcast, error) {
	p, err := e.onlineByNick(ctx, nick, network)
	if err != nil || p == nil {
		return nil, err
	}
	pen := Penalty(PenaltyQuit, p.Level, 0, e.penaltyCap)
	if err := e.store.AddTTL(ctx, p.ID, pen, PenaltyQuit); err != nil {
		return nil, err
	}
	if err := e.store.SetOffline(ctx, p.ID); err != nil {
		return nil, err
	}
	return e.withQuestAbort(ctx, p, nil)
}

// OnKick penalizes being kicked from the channel.
func (e *Engine) OnKick(ctx context.Context, nick, network string) ([]Broadcast, error) {
	p, err := e.onlineByNick(ctx, nick, network)
	if err != nil || p == nil {
		return nil, err
	}
	pen := Penalty(PenaltyKick, p.Level, 0, e.penaltyCap)
	if err := e.store.AddTTL(ctx, p.ID, pen, PenaltyKick); err != nil {
		return nil, err
	}
	if err := e.store.SetOffline(ctx, p.ID); err != nil {
		return nil, err
	}
	msgs := []Broadcast{BroadcastNet(network,
		fmt.Sprintf("%s was kicked! Penalty: %s.", UTag(p), FormatDuration(pen)))}
	return e.withQuestAbort(ctx, p, msgs)
}

// OnMessage penalizes talking in the channel. The message length is the
// penalty base, scaled by level.
func (e *Engine) OnMessage(ctx context.Context, nick, network, message string) ([]Broadcast, error) {
	p, err := e.onlineByNick(ctx, nick, network)
	if err != nil || p == nil {
		return nil, err
	}
	pen := Penalty(PenaltyMessage, p.Level, len(message), e.penaltyCap)
	if err := e.store.AddTTL(ctx, p.ID, pen, PenaltyMessage); err != nil {
		return nil, err
	}
	msgs := []Broadcast{BroadcastNotice(network, nick,
		fmt.Sprintf("Penalty of %s added to your timer for talking.", FormatDuration(pen)))}
	return e.withQuestAbort(ctx, p, msgs)
}

// OnNotice treats a channel notice exactly like a channel message.
func (e *Engine) OnNotice(ctx context.Context, nick, network, message string) ([]Broadcast, error) {
	return e.OnMessage(ctx, nick, network, message)
}

// onlineByNick resolves an infraction's subject. Unknown or offline
// players are a silent no-op, not an error.
func (e *Engine) onlineByNick(ctx context.Context, nick, network string) (*Player, error) {
	p, err := e.store.PlayerByNick(ctx, nick, network)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !p.Online {
		return nil, nil
	}
	return p, nil
}

// withQuestAbort appends quest-failure fallout to an infraction's own
// broadcasts.
func (e *Engine) withQuestAbort(ctx context.Context, p *Player, msgs []Broadcast) ([]Broadcast, error) {
	abort, err := e.questAbortCheck(ctx, p)
	if err != nil {
		return msgs, err
	}
	return append(msgs, abort...), nil
}

package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pixil98/go-log"
)

const (
	// DefaultSelfClock is both the number of movement sub-steps per tick
	// and the seconds of simulated time one tick represents.
	DefaultSelfClock = 5

	topReportEvery     = 36000 // seconds of sim time between leaderboard announcements
	veteranBattleEvery = 1200  // seconds of sim time between veteran battle checks
)

// Engine runs the idle RPG simulation against a Store. It performs no
// network I/O; the transport layer feeds it events and delivers the
// Broadcasts it returns.
//
// One tick worker calls Tick; infraction handlers and commands may be
// called concurrently with it and with each other.
type Engine struct {
	store Store

	selfClock  int
	penaltyCap int64
	now        func() time.Time

	randMu sync.Mutex
	rng    *rand.Rand

	stateMu sync.Mutex
	paused  bool
	silent  int

	// Tick-driver-owned counters. Only the tick worker touches these.
	lastTick int64 // unix seconds of the last completed pass; 0 = not joined yet
	rpReport int64 // accumulated sim seconds, drives periodic announcements

	quest questState
}

// Opt configures an Engine.
type Opt func(*Engine)

// WithSelfClock sets the movement sub-step count / sim seconds per tick.
func WithSelfClock(n int) Opt {
	return func(e *Engine) {
		if n > 0 {
			e.selfClock = n
		}
	}
}

// WithPenaltyCap caps every computed infraction penalty at n seconds.
// Zero means uncapped.
func WithPenaltyCap(n int64) Opt {
	return func(e *Engine) {
		e.penaltyCap = n
	}
}

// WithRand replaces the engine's random source. Seeding it makes a whole
// game replayable.
func WithRand(rng *rand.Rand) Opt {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Opt {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine on top of the given store.
func NewEngine(store Store, opts ...Opt) *Engine {
	e := &Engine{
		store:     store,
		selfClock: DefaultSelfClock,
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	for _, opt := range opts {
		opt(e)
	}

	// First quest selection 1-2 hours after boot.
	e.quest.next = e.now().Add(time.Duration(3600+e.intN(3600)) * time.Second)

	return e
}

// MarkJoined activates the tick loop. Until the transport has joined its
// channels there is nobody to deliver to, so ticks are no-ops.
func (e *Engine) MarkJoined() {
	now := e.now().Unix()
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.lastTick == 0 {
		e.lastTick = now
	}
}

// Paused reports whether tick processing is suspended.
func (e *Engine) Paused() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.paused
}

// SilentLevel returns the operator-configured broadcast suppression level
// (0=deliver all, 1=no channel, 2=no notices, 3=neither). The transport
// layer reads it at delivery time; the engine computes broadcasts
// regardless.
func (e *Engine) SilentLevel() int {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.silent
}

// joined reports whether MarkJoined has run, and returns the last pass time.
func (e *Engine) joined() (int64, bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.lastTick, e.lastTick != 0
}

func (e *Engine) setLastTick(t int64) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.lastTick = t
}

// intN draws a uniform int in [0, n). The shared source is guarded so
// handlers and the tick worker can interleave.
func (e *Engine) intN(n int) int {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rng.IntN(n)
}

// roll draws a uniform float in [0, 1).
func (e *Engine) roll() float64 {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rng.Float64()
}

// chance reports a Bernoulli trial with probability p.
func (e *Engine) chance(p float64) bool {
	return e.roll() < p
}

// Tick runs one full simulation pass and returns the broadcasts it
// produced, in order. Subsystem faults are logged and skipped; the pass
// itself only aborts when the store does.
func (e *Engine) Tick(ctx context.Context) ([]Broadcast, error) {
	last, ok := e.joined()
	if !ok || e.Paused() {
		return nil, nil
	}

	online, err := e.store.OnlinePlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching online players: %w", err)
	}

	now := e.now().Unix()
	elapsed := now - last
	if elapsed <= 0 {
		return nil, nil
	}
	if len(online) == 0 {
		// The clock only advances over a populated realm. An idle gap
		// stays banked and is charged to whoever logs back in first.
		return nil, nil
	}

	logger := log.GetLogger(ctx)
	var msgs []Broadcast

	// Countdown pass. TTLs that would dip below one are zeroed and the
	// player is queued for a level-up.
	var levelled []int64
	for _, p := range online {
		newTTL := p.TTL - elapsed
		if newTTL < 1 {
			levelled = append(levelled, p.ID)
			newTTL = 0
		}
		if err := e.store.SetTTL(ctx, p.ID, newTTL); err != nil {
			return msgs, fmt.Errorf("updating countdown for %d: %w", p.ID, err)
		}
	}

	// All countdown changes land as one durable unit before any level-up
	// runs, so a crash mid-level-up never loses TTL consistency.
	if err := e.store.Commit(ctx); err != nil {
		return msgs, fmt.Errorf("committing countdowns: %w", err)
	}

	for _, id := range levelled {
		lu, err := e.levelUp(ctx, id)
		if err != nil {
			logger.WithError(err).Errorf("level-up for player %d", id)
			continue
		}
		msgs = append(msgs, lu...)
	}

	// World events. Each draw converts a rate-per-day into a per-tick
	// probability; each event is fault-isolated.
	n := len(online)
	var nGood, nEvil int
	for _, p := range online {
		switch p.Alignment {
		case AlignGood:
			nGood++
		case AlignEvil:
			nEvil++
		}
	}
	sc := float64(e.selfClock)
	perTick := func(count int, days float64) float64 {
		return float64(count) / ((days * 86400) / sc)
	}

	if e.chance(perTick(n, 20)) {
		msgs = append(msgs, e.guard(ctx, "hand of fate", func() ([]Broadcast, error) {
			return e.handOfFate(ctx, online)
		})...)
	}
	if e.chance(perTick(n, 24)) {
		msgs = append(msgs, e.guard(ctx, "team battle", func() ([]Broadcast, error) {
			return e.teamBattle(ctx, online)
		})...)
	}
	if e.chance(perTick(n, 8)) {
		msgs = append(msgs, e.guard(ctx, "calamity", func() ([]Broadcast, error) {
			return e.calamity(ctx, online)
		})...)
	}
	if e.chance(perTick(n, 4)) {
		msgs = append(msgs, e.guard(ctx, "godsend", func() ([]Broadcast, error) {
			return e.godsend(ctx, online)
		})...)
	}
	if e.chance(perTick(nEvil, 8)) {
		msgs = append(msgs, e.guard(ctx, "evilness", func() ([]Broadcast, error) {
			return e.evilness(ctx, online)
		})...)
	}
	if e.chance(perTick(nGood, 12)) {
		msgs = append(msgs, e.guard(ctx, "goodness", func() ([]Broadcast, error) {
			return e.goodness(ctx, online)
		})...)
	}

	msgs = append(msgs, e.guard(ctx, "movement", func() ([]Broadcast, error) {
		return e.movePlayers(ctx, online)
	})...)

	e.rpReport += int64(e.selfClock)
	if e.rpReport%topReportEvery == 0 {
		msgs = append(msgs, e.guard(ctx, "top players report", func() ([]Broadcast, error) {
			return e.announceTop(ctx)
		})...)
	}
	if e.rpReport%veteranBattleEvery == 0 {
		msgs = append(msgs, e.guard(ctx, "veteran battle", func() ([]Broadcast, error) {
			return e.veteranBattle(ctx, online)
		})...)
	}

	msgs = append(msgs, e.guard(ctx, "quest", func() ([]Broadcast, error) {
		return e.checkQuest(ctx, online)
	})...)

	if err := e.store.Commit(ctx); err != nil {
		return msgs, fmt.Errorf("committing tick: %w", err)
	}
	e.setLastTick(now)

	return msgs, nil
}

// guard runs one tick subsystem, converting panics and errors into log
// entries so the rest of the pass continues. Already-committed countdown
// changes are never rolled back by a faulting subsystem.
func (e *Engine) guard(ctx context.Context, name string, fn func() ([]Broadcast, error)) []Broadcast {
	logger := log.GetLogger(ctx)
	var out []Broadcast

	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("%s: panic: %v", name, r)
			}
		}()
		msgs, err := fn()
		if err != nil {
			logger.WithError(err).Errorf("%s", name)
			return
		}
		out = msgs
	}()

	return out
}

// levelUp advances one player a level, rolls loot, and possibly triggers
// a challenge battle. The player is re-fetched so the TTL is current.
func (e *Engine) levelUp(ctx context.Context, id int64) ([]Broadcast, error) {
	p, err := e.store.PlayerByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return nil, nil
		}
		return nil, err
	}

	newLevel := p.Level + 1
	newTTL := TimeToLevel(newLevel)
	if err := e.store.LevelUp(ctx, p.ID, newLevel, newTTL); err != nil {
		return nil, fmt.Errorf("levelling up: %w", err)
	}

	msgs := []Broadcast{BroadcastAll(fmt.Sprintf(
		"%s, the %s, has attained level %d! Next level in %s.",
		UTag(p), p.Class, newLevel, FormatDuration(newTTL),
	))}
	if err := e.store.LogEvent(ctx, "levelup",
		fmt.Sprintf("%s reached level %d", p.Username, newLevel), p.ID); err != nil {
		return msgs, err
	}

	itemMsgs, err := e.findItem(ctx, p, newLevel)
	if err != nil {
		return msgs, err
	}
	msgs = append(msgs, itemMsgs...)

	// Challenge battle: always at level 25+, 25% chance below.
	online, err := e.store.OnlinePlayers(ctx)
	if err != nil {
		return msgs, err
	}
	var opponents []*Player
	for _, o := range online {
		if o.ID != p.ID {
			opponents = append(opponents, o)
		}
	}
	if len(opponents) > 0 && (newLevel >= 25 || e.chance(0.25)) {
		fresh, err := e.store.PlayerByID(ctx, p.ID)
		if err == nil {
			battleMsgs, err := e.resolveBattle(ctx, fresh, opponents[e.intN(len(opponents))], false)
			if err != nil {
				return msgs, err
			}
			msgs = append(msgs, battleMsgs...)
		}
	}

	return msgs, nil
}

// findItem rolls loot for a fresh level and equips it when it beats the
// current item in that slot. The player only ever hears about it via
// notice, win or lose.
func (e *Engine) findItem(ctx context.Context, p *Player, level int) ([]Broadcast, error) {
	e.randMu.Lock()
	rolled := RollItem(e.rng, level)
	e.randMu.Unlock()

	items, err := e.store.Items(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching items: %w", err)
	}
	curLevel := items[rolled.Slot].Level

	nick := p.Nick
	if nick == "" {
		nick = p.Username
	}

	if rolled.Unique && rolled.Level > curLevel {
		if err := e.store.SetItem(ctx, p.ID, rolled.Slot, rolled.Level, rolled.Name, true); err != nil {
			return nil, err
		}
		for i := range uniqueItems {
			if uniqueItems[i].Name == rolled.Name {
				return []Broadcast{BroadcastNotice(p.Network, nick, uniqueFoundMessage(&uniqueItems[i], rolled.Level))}, nil
			}
		}
		return nil, nil
	}

	if !rolled.Unique && rolled.Level > curLevel {
		if err := e.store.SetItem(ctx, p.ID, rolled.Slot, rolled.Level, "", false); err != nil {
			return nil, err
		}
		return []Broadcast{BroadcastNotice(p.Network, nick, fmt.Sprintf(
			"You found a level %d %s! Your current %s is only level %d, so it seems Luck is with you!",
			rolled.Level, rolled.Slot, rolled.Slot, curLevel,
		))}, nil
	}

	return []Broadcast{BroadcastNotice(p.Network, nick, fmt.Sprintf(
		"You found a level %d %s. Your current %s is level %d, so it seems Luck is against you. You toss the %s.",
		rolled.Level, rolled.Slot, rolled.Slot, curLevel, rolled.Slot,
	))}, nil
}

// announceTop broadcasts the three highest-ranked players.
func (e *Engine) announceTop(ctx context.Context) ([]Broadcast, error) {
	players, err := e.store.TopPlayers(ctx, 3)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, nil
	}

	msgs := []Broadcast{BroadcastAll("Idle RPG Top Players:")}
	for i, p := range players {
		msgs = append(msgs, BroadcastAll(fmt.Sprintf(
			"%s, the level %d %s, is #%d! Next level in %s.",
			UTag(p), p.Level, p.Class, i+1, FormatDuration(p.TTL),
		)))
	}
	return msgs, nil
}

// veteranBattle pits a random level-45+ player against the field, but
// only when veterans make up more than 15% of everyone online.
func (e *Engine) veteranBattle(ctx context.Context, online []*Player) ([]Broadcast, error) {
	var veterans []*Player
	for _, p := range online {
		if p.Level >= 45 {
			veterans = append(veterans, p)
		}
	}
	if len(veterans) == 0 || float64(len(veterans))/float64(len(online)) <= 0.15 {
		return nil, nil
	}

	challenger := veterans[e.intN(len(veterans))]
	var others []*Player
	for _, p := range online {
		if p.ID != challenger.ID {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		return nil, nil
	}
	return e.resolveBattle(ctx, challenger, others[e.intN(len(others))], false)
}

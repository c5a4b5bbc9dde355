package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// QuestKind distinguishes the two quest families.
type QuestKind int

const (
	QuestNone QuestKind = iota
	// QuestTime completes when its deadline passes.
	QuestTime
	// QuestGrid completes when all participants stand on two successive
	// target cells.
	QuestGrid
)

// Point is a cell on the shared grid.
type Point struct {
	X, Y int
}

// QuestMember pins the identity of one participant. Positions and
// countdowns are always re-read from the store, never cached here.
type QuestMember struct {
	ID       int64
	Username string
	Network  string
}

// questState is the process-wide quest singleton. Every read or write
// goes through mu: quest aborts arrive from infraction handlers while
// the tick worker advances progress, and the two must not race.
type questState struct {
	mu       sync.Mutex
	kind     QuestKind
	stage    int
	members  []QuestMember
	p1, p2   Point
	text     string
	deadline time.Time // time quests only
	next     time.Time // earliest next selection while idle
}

type questDef struct {
	kind QuestKind
	text string
}

var questTable = []questDef{
	{QuestTime, "slay the dragon terrorising the realm"},
	{QuestTime, "retrieve the sacred chalice from the dark temple"},
	{QuestTime, "escort the princess safely across the mountains"},
	{QuestGrid, "cleanse the Temple of the Shadow God"},
	{QuestGrid, "recover the Lost Tome of Forbidden Knowledge"},
}

const (
	questMembers      = 4
	questMinLevel     = 40    // participants must be past level 39
	questMinOnlineSec = 36000 // continuous online time required
)

// questAbortPenalty is the level-scaled price every online player pays
// when a quest falls apart.
func questAbortPenalty(level int) int64 {
	return scalePenalty(15, level)
}

// memberNames joins participant tags for announcements.
func memberNames(members []QuestMember) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username + "@" + m.Network
	}
	return strings.Join(names, ", ")
}

// checkQuest advances the quest machine one step: starts a quest when
// idle and due, completes a time quest whose deadline passed.
func (e *Engine) checkQuest(ctx context.Context, online []*Player) ([]Broadcast, error) {
	q := &e.quest
	q.mu.Lock()
	defer q.mu.Unlock()

	now := e.now()

	if len(q.members) == 0 {
		if now.After(q.next) {
			return e.startQuestLocked(ctx, online, now)
		}
		return nil, nil
	}

	if q.kind == QuestTime && now.After(q.deadline) {
		msg := fmt.Sprintf("%s have blessed the realm by completing their quest! 25%% of their burden is eliminated.",
			memberNames(q.members))
		for _, m := range q.members {
			fresh, err := e.store.PlayerByID(ctx, m.ID)
			if err != nil {
				if errors.Is(err, ErrPlayerNotFound) {
					continue
				}
				return nil, err
			}
			if err := e.store.SetTTL(ctx, m.ID, int64(float64(fresh.TTL)*0.75)); err != nil {
				return nil, err
			}
		}
		q.members = nil
		q.kind = QuestNone
		q.next = now.Add(6 * time.Hour)
		if err := e.store.LogEvent(ctx, "quest", msg); err != nil {
			return nil, err
		}
		return []Broadcast{BroadcastAll(msg)}, nil
	}

	return nil, nil
}

// startQuestLocked selects participants and opens a new quest. Callers
// hold q.mu. With fewer than four eligible players the machine stays
// idle and simply retries on a later tick.
func (e *Engine) startQuestLocked(ctx context.Context, online []*Player, now time.Time) ([]Broadcast, error) {
	q := &e.quest

	var eligible []*Player
	for _, p := range online {
		if p.Level < questMinLevel {
			continue
		}
		if p.OnlineSince.IsZero() || now.Sub(p.OnlineSince) < questMinOnlineSec*time.Second {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) < questMembers {
		return nil, nil
	}

	e.randMu.Lock()
	perm := e.rng.Perm(len(eligible))
	def := questTable[e.rng.IntN(len(questTable))]
	e.randMu.Unlock()

	members := make([]QuestMember, questMembers)
	for i := 0; i < questMembers; i++ {
		p := eligible[perm[i]]
		members[i] = QuestMember{ID: p.ID, Username: p.Username, Network: p.Network}
	}

	q.members = members
	q.kind = def.kind
	q.text = def.text

	var msg string
	if def.kind == QuestTime {
		dur := time.Duration(43200+e.intN(43201)) * time.Second
		q.deadline = now.Add(dur)
		msg = fmt.Sprintf("%s have been chosen by the gods to %s. Quest ends in %s.",
			memberNames(members), def.text, FormatDuration(int64(dur.Seconds())))
	} else {
		q.stage = 1
		q.p1 = Point{X: e.intN(MapWidth), Y: e.intN(MapHeight)}
		q.p2 = Point{X: e.intN(MapWidth), Y: e.intN(MapHeight)}
		msg = fmt.Sprintf("%s have been chosen by the gods to %s. First reach [%d,%d], then [%d,%d].",
			memberNames(members), def.text, q.p1.X, q.p1.Y, q.p2.X, q.p2.Y)
	}

	if err := e.store.LogEvent(ctx, "quest", msg); err != nil {
		return nil, err
	}
	return []Broadcast{BroadcastAll(msg)}, nil
}

// gridQuestTarget snapshots the active grid-quest target and participant
// set for the movement simulator's bias roll.
func (e *Engine) gridQuestTarget() (Point, map[int64]bool, bool) {
	q := &e.quest
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.kind != QuestGrid || len(q.members) == 0 {
		return Point{}, nil, false
	}
	target := q.p1
	if q.stage == 2 {
		target = q.p2
	}
	ids := make(map[int64]bool, len(q.members))
	for _, m := range q.members {
		ids[m.ID] = true
	}
	return target, ids, true
}

// checkGridQuest runs after a movement pass: when every participant
// stands on the active target, the quest advances to stage two or
// completes with the 25% countdown reduction.
func (e *Engine) checkGridQuest(ctx context.Context) ([]Broadcast, error) {
	q := &e.quest
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.kind != QuestGrid || len(q.members) == 0 {
		return nil, nil
	}

	online, err := e.store.OnlinePlayers(ctx)
	if err != nil {
		return nil, err
	}
	fresh := make(map[int64]*Player, len(online))
	for _, p := range online {
		fresh[p.ID] = p
	}

	target := q.p1
	if q.stage == 2 {
		target = q.p2
	}
	for _, m := range q.members {
		p, ok := fresh[m.ID]
		if !ok || p.X != target.X || p.Y != target.Y {
			return nil, nil
		}
	}

	if q.stage == 1 {
		q.stage = 2
		return nil, nil
	}

	msg := fmt.Sprintf("%s have completed their journey! 25%% of their burden is eliminated.",
		memberNames(q.members))
	for _, m := range q.members {
		if p, ok := fresh[m.ID]; ok {
			if err := e.store.SetTTL(ctx, m.ID, int64(float64(p.TTL)*0.75)); err != nil {
				return nil, err
			}
		}
	}
	q.members = nil
	q.kind = QuestNone
	q.next = e.now().Add(time.Hour)
	if err := e.store.LogEvent(ctx, "quest", msg); err != nil {
		return nil, err
	}
	return []Broadcast{BroadcastAll(msg)}, nil
}

// questAbortCheck aborts the active quest when the given player is a
// participant who just committed an infraction. The gods are not
// selective: every online player pays, not just the questers.
func (e *Engine) questAbortCheck(ctx context.Context, player *Player) ([]Broadcast, error) {
	q := &e.quest
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.members) == 0 {
		return nil, nil
	}
	participant := false
	for _, m := range q.members {
		if m.ID == player.ID {
			participant = true
			break
		}
	}
	if !participant {
		return nil, nil
	}

	q.members = nil
	q.kind = QuestNone
	q.next = e.now().Add(12 * time.Hour)

	online, err := e.store.OnlinePlayers(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range online {
		if err := e.store.AddTTL(ctx, p.ID, questAbortPenalty(p.Level), PenaltyQuest); err != nil {
			return nil, err
		}
	}
	if err := e.store.Commit(ctx); err != nil {
		return nil, err
	}

	return []Broadcast{BroadcastAll(fmt.Sprintf(
		"%s's actions have brought the wrath of the gods upon the realm. Hell rains down upon you all.",
		UTag(player),
	))}, nil
}

// QuestStatus describes the active quest for the QUEST command.
func (e *Engine) QuestStatus() string {
	q := &e.quest
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.members) == 0 {
		return "There is no active quest."
	}
	names := memberNames(q.members)
	if q.kind == QuestTime {
		return fmt.Sprintf("%s are questing to %s. Ends in %s.",
			names, q.text, FormatDuration(int64(q.deadline.Sub(e.now()).Seconds())))
	}
	target := q.p1
	if q.stage == 2 {
		target = q.p2
	}
	return fmt.Sprintf("%s are questing to %s. Must reach [%d,%d] then [%d,%d]. Heading to [%d,%d].",
		names, q.text, q.p1.X, q.p1.Y, q.p2.X, q.p2.Y, target.X, target.Y)
}

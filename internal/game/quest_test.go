package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

// fakeClock is a settable wall clock for quest timing tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func questablePlayer(st *mockStore, username, network string, clock *fakeClock) *Player {
	p := st.addPlayer(&Player{
		Username:    username,
		Network:     network,
		Nick:        username,
		Level:       45,
		TTL:         100000,
		Online:      true,
		OnlineSince: clock.t.Add(-11 * time.Hour),
	})
	return p
}

func TestQuestNeedsFourEligible(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := newMockStore()
	questablePlayer(st, "alice", "libera", clock)
	questablePlayer(st, "bob", "libera", clock)
	questablePlayer(st, "carol", "oftc", clock)
	// Too low a level to quest.
	st.addPlayer(&Player{Username: "dave", Network: "oftc", Nick: "dave", Level: 10,
		TTL: 1000, Online: true, OnlineSince: clock.t.Add(-11 * time.Hour)})

	e := newTestEngine(st, 21, WithClock(clock.now))
	clock.advance(3 * time.Hour) // past the initial selection delay

	ctx := context.Background()
	online, _ := st.OnlinePlayers(ctx)
	msgs, err := e.checkQuest(ctx, online)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 0)
	testutil.AssertEqual(t, "members", len(e.quest.members), 0)
}

func TestQuestStartsWithFour(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := newMockStore()
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin"} {
		questablePlayer(st, name, "libera", clock)
	}

	e := newTestEngine(st, 22, WithClock(clock.now))
	clock.advance(3 * time.Hour)

	ctx := context.Background()
	online, _ := st.OnlinePlayers(ctx)
	msgs, err := e.checkQuest(ctx, online)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 1)
	testutil.AssertEqual(t, "members", len(e.quest.members), questMembers)
	if !strings.Contains(msgs[0].Message, "have been chosen by the gods") {
		t.Errorf("unexpected announcement: %q", msgs[0].Message)
	}
	if e.quest.kind == QuestTime && e.quest.deadline.Before(clock.t) {
		t.Error("time quest deadline is in the past")
	}
}

func TestTimeQuestCompletes(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := newMockStore()
	a := questablePlayer(st, "alice", "libera", clock)
	b := questablePlayer(st, "bob", "oftc", clock)

	e := newTestEngine(st, 23, WithClock(clock.now))
	e.quest.kind = QuestTime
	e.quest.members = []QuestMember{
		{ID: a.ID, Username: a.Username, Network: a.Network},
		{ID: b.ID, Username: b.Username, Network: b.Network},
	}
	e.quest.deadline = clock.t.Add(time.Hour)

	ctx := context.Background()
	clock.advance(2 * time.Hour)
	online, _ := st.OnlinePlayers(ctx)
	msgs, err := e.checkQuest(ctx, online)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 1)
	if !strings.Contains(msgs[0].Message, "blessed the realm") {
		t.Errorf("unexpected announcement: %q", msgs[0].Message)
	}

	// Completion wipes a quarter off every participant's countdown.
	fa, _ := st.PlayerByID(ctx, a.ID)
	fb, _ := st.PlayerByID(ctx, b.ID)
	testutil.AssertEqual(t, "alice ttl", fa.TTL, int64(75000))
	testutil.AssertEqual(t, "bob ttl", fb.TTL, int64(75000))
	testutil.AssertEqual(t, "members", len(e.quest.members), 0)
	testutil.AssertEqual(t, "cooldown", e.quest.next, clock.t.Add(6*time.Hour))
}

func TestGridQuestStages(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := newMockStore()
	a := questablePlayer(st, "alice", "libera", clock)
	b := questablePlayer(st, "bob", "oftc", clock)

	e := newTestEngine(st, 24, WithClock(clock.now))
	e.quest.kind = QuestGrid
	e.quest.stage = 1
	e.quest.members = []QuestMember{
		{ID: a.ID, Username: a.Username, Network: a.Network},
		{ID: b.ID, Username: b.Username, Network: b.Network},
	}
	e.quest.p1 = Point{X: 100, Y: 100}
	e.quest.p2 = Point{X: 200, Y: 200}

	ctx := context.Background()

	// Only one member on the first point: no progress.
	st.players[a.ID].X, st.players[a.ID].Y = 100, 100
	msgs, err := e.checkGridQuest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 0)
	testutil.AssertEqual(t, "stage", e.quest.stage, 1)

	// Both on the first point: silent advance to stage two.
	st.players[b.ID].X, st.players[b.ID].Y = 100, 100
	msgs, err = e.checkGridQuest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 0)
	testutil.AssertEqual(t, "stage", e.quest.stage, 2)

	// Both on the second point: completion.
	st.players[a.ID].X, st.players[a.ID].Y = 200, 200
	st.players[b.ID].X, st.players[b.ID].Y = 200, 200
	msgs, err = e.checkGridQuest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 1)
	if !strings.Contains(msgs[0].Message, "completed their journey") {
		t.Errorf("unexpected announcement: %q", msgs[0].Message)
	}
	fa, _ := st.PlayerByID(ctx, a.ID)
	testutil.AssertEqual(t, "alice ttl", fa.TTL, int64(75000))
	testutil.AssertEqual(t, "members", len(e.quest.members), 0)
}

func TestQuestAbortPenalizesEveryone(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := newMockStore()
	a := questablePlayer(st, "alice", "libera", clock)
	b := questablePlayer(st, "bob", "oftc", clock)
	// Online but not questing; the gods penalize them anyway.
	c := st.addPlayer(&Player{Username: "carol", Network: "libera", Nick: "carol", Level: 10,
		TTL: 1000, Online: true, OnlineSince: clock.t})

	e := newTestEngine(st, 25, WithClock(clock.now))
	e.quest.kind = QuestTime
	e.quest.members = []QuestMember{
		{ID: a.ID, Username: a.Username, Network: a.Network},
		{ID: b.ID, Username: b.Username, Network: b.Network},
	}
	e.quest.deadline = clock.t.Add(10 * time.Hour)

	ctx := context.Background()
	msgs, err := e.OnQuit(ctx, "alice", "libera")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, m := range msgs {
		if strings.Contains(m.Message, "wrath of the gods") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no wrath announcement in %v", msgs)
	}
	testutil.AssertEqual(t, "members", len(e.quest.members), 0)
	testutil.AssertEqual(t, "cooldown", e.quest.next, clock.t.Add(12*time.Hour))

	// Every remaining online player carries the 15*1.14^level penalty.
	fb, _ := st.PlayerByID(ctx, b.ID)
	fc, _ := st.PlayerByID(ctx, c.ID)
	testutil.AssertEqual(t, "bob quest penalty", fb.Penalties.Quest, questAbortPenalty(45))
	testutil.AssertEqual(t, "carol quest penalty", fc.Penalties.Quest, questAbortPenalty(10))
}

func TestQuestStatus(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := newMockStore()
	e := newTestEngine(st, 26, WithClock(clock.now))

	testutil.AssertEqual(t, "idle", e.QuestStatus(), "There is no active quest.")

	e.quest.kind = QuestTime
	e.quest.text = "slay the dragon terrorising the realm"
	e.quest.members = []QuestMember{{ID: 1, Username: "alice", Network: "libera"}}
	e.quest.deadline = clock.t.Add(2 * time.Hour)
	status := e.QuestStatus()
	if !strings.Contains(status, "slay the dragon") || !strings.Contains(status, "0 days, 02:00:00") {
		t.Errorf("unexpected status: %q", status)
	}
}

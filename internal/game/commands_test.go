package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestPushClampsToCountdown(t *testing.T) {
	st := newMockStore()
	st.addPlayer(&Player{Username: "alice", Network: "libera", Level: 5, TTL: 100, Online: true})

	e := newTestEngine(st, 51)
	reply, msgs, err := e.Push(context.Background(), "op", "alice", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reply", reply, "Done.")
	testutil.AssertEqual(t, "broadcasts", len(msgs), 1)

	// A push past the whole countdown lands the player exactly at zero.
	fresh, _ := st.PlayerByUsername(context.Background(), "alice")
	testutil.AssertEqual(t, "ttl", fresh.TTL, int64(0))
}

func TestPushUnknownTarget(t *testing.T) {
	e := newTestEngine(newMockStore(), 52)
	reply, msgs, err := e.Push(context.Background(), "op", "ghost", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "No such username") {
		t.Errorf("unexpected reply: %q", reply)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 0)
}

func TestAlign(t *testing.T) {
	st := newMockStore()
	st.addPlayer(&Player{Username: "alice", Network: "libera", Nick: "alice", Online: true,
		Alignment: AlignNeutral})

	e := newTestEngine(st, 53)
	reply, msgs, err := e.Align(context.Background(), "alice", "libera", "evil")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reply", reply, "Your alignment is now evil.")
	testutil.AssertEqual(t, "broadcasts", len(msgs), 1)

	fresh, _ := st.PlayerByUsername(context.Background(), "alice")
	testutil.AssertEqual(t, "alignment", fresh.Alignment, AlignEvil)

	reply, _, err = e.Align(context.Background(), "alice", "libera", "chaotic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "Usage") {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestRemoveMe(t *testing.T) {
	st := newMockStore()
	st.addPlayer(&Player{Username: "alice", Network: "libera", Nick: "alice", Online: true, Class: "bard"})

	e := newTestEngine(st, 54)
	reply, msgs, err := e.RemoveMe(context.Background(), "alice", "libera")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reply", reply, "Account alice removed.")
	testutil.AssertEqual(t, "broadcasts", len(msgs), 1)

	if _, err := st.PlayerByUsername(context.Background(), "alice"); err == nil {
		t.Error("account still present after removal")
	}
}

func TestChangeUsername(t *testing.T) {
	st := newMockStore()
	st.addPlayer(&Player{Username: "alice", Network: "libera"})
	st.addPlayer(&Player{Username: "bob", Network: "oftc"})

	e := newTestEngine(st, 55)

	reply, err := e.ChangeUsername(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "already taken") {
		t.Errorf("unexpected reply: %q", reply)
	}

	reply, err = e.ChangeUsername(context.Background(), "alice", "alicia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reply", reply, "Username changed from alice to alicia.")
	if _, err := st.PlayerByUsername(context.Background(), "alicia"); err != nil {
		t.Errorf("renamed account not found: %v", err)
	}
}

func TestDeleteOld(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := newMockStore()
	st.addPlayer(&Player{Username: "fresh", Network: "libera", LastLogin: clock.t.Add(-24 * time.Hour)})
	st.addPlayer(&Player{Username: "stale", Network: "libera", LastLogin: clock.t.Add(-60 * 24 * time.Hour)})
	st.addPlayer(&Player{Username: "idler", Network: "oftc", Online: true,
		LastLogin: clock.t.Add(-90 * 24 * time.Hour)})

	e := newTestEngine(st, 56, WithClock(clock.now))
	reply, err := e.DeleteOld(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reply", reply, "1 accounts removed.")

	// Online players are never reaped, however stale their last login.
	if _, err := st.PlayerByUsername(context.Background(), "idler"); err != nil {
		t.Errorf("online account reaped: %v", err)
	}
	if _, err := st.PlayerByUsername(context.Background(), "stale"); err == nil {
		t.Error("stale account survived")
	}
}

func TestStatus(t *testing.T) {
	st := newMockStore()
	p := st.addPlayer(&Player{Username: "alice", Network: "libera", Nick: "alice", Online: true,
		Class: "bard", Level: 12, TTL: 4000, Alignment: AlignGood, X: 7, Y: 9})
	st.items[p.ID][SlotWeapon] = Item{Slot: SlotWeapon, Level: 15}

	e := newTestEngine(st, 57)

	reply, err := e.Status(context.Background(), "alice", "libera", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"alice@libera", "Level 12 bard", "good", "Online", "[7/9]", "Items: 15"} {
		if !strings.Contains(reply, want) {
			t.Errorf("status %q does not contain %q", reply, want)
		}
	}

	reply, err = e.Status(context.Background(), "someone", "libera", "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reply", reply, "No such user.")
}

func TestSetAdmin(t *testing.T) {
	st := newMockStore()
	st.addPlayer(&Player{Username: "alice", Network: "libera", Nick: "alice", Online: true})

	e := newTestEngine(st, 58)
	reply, err := e.SetAdmin(context.Background(), "alice", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reply", reply, "alice is now an admin.")
	testutil.AssertEqual(t, "is admin", e.IsAdmin(context.Background(), "alice", "libera"), true)

	if _, err := e.SetAdmin(context.Background(), "alice", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "revoked", e.IsAdmin(context.Background(), "alice", "libera"), false)
}

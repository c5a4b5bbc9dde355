package game

import (
	"context"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestHandOfFateBounds(t *testing.T) {
	st := newMockStore()
	p := st.addPlayer(&Player{Username: "alice", Network: "libera", Nick: "alice",
		Level: 10, TTL: 10000, Online: true})

	e := newTestEngine(st, 61)
	ctx := context.Background()

	helped, hurt := false, false
	for i := 0; i < 300; i++ {
		if err := st.SetTTL(ctx, p.ID, 10000); err != nil {
			t.Fatal(err)
		}
		online, _ := st.OnlinePlayers(ctx)
		msgs, err := e.handOfFate(ctx, online)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msgs) == 0 {
			t.Fatal("hand of fate produced no broadcast")
		}

		fresh, _ := st.PlayerByID(ctx, p.ID)
		delta := fresh.TTL - 10000
		if delta > 0 {
			hurt = true
			if !strings.Contains(msgs[0].Message, "consumed") {
				t.Errorf("hurting announcement mismatch: %q", msgs[0].Message)
			}
		} else {
			helped = true
			if !strings.Contains(msgs[0].Message, "blessed hand of God carried") {
				t.Errorf("helping announcement mismatch: %q", msgs[0].Message)
			}
			delta = -delta
		}
		// The swing is always 5-75% of the clock.
		if delta < 500 || delta > 7500 {
			t.Fatalf("hand of fate moved %d seconds, want 500-7500", delta)
		}
	}
	if !helped || !hurt {
		t.Fatalf("300 rounds never covered both outcomes: helped=%v hurt=%v", helped, hurt)
	}
}

func TestGoodnessNeedsTwoGood(t *testing.T) {
	st := newMockStore()
	st.addPlayer(&Player{Username: "alice", Network: "libera", Alignment: AlignGood,
		TTL: 10000, Online: true})
	st.addPlayer(&Player{Username: "bob", Network: "libera", Alignment: AlignNeutral,
		TTL: 10000, Online: true})

	e := newTestEngine(st, 62)
	ctx := context.Background()
	online, _ := st.OnlinePlayers(ctx)
	msgs, err := e.goodness(ctx, online)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 0)
}

func TestGoodnessPrayer(t *testing.T) {
	st := newMockStore()
	a := st.addPlayer(&Player{Username: "alice", Network: "libera", Alignment: AlignGood,
		TTL: 10000, Online: true})
	b := st.addPlayer(&Player{Username: "bob", Network: "oftc", Alignment: AlignGood,
		TTL: 10000, Online: true})

	e := newTestEngine(st, 63)
	ctx := context.Background()
	online, _ := st.OnlinePlayers(ctx)
	msgs, err := e.goodness(ctx, online)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected prayer plus two clock lines, got %d broadcasts", len(msgs))
	}
	if !strings.Contains(msgs[0].Message, "have prayed together") {
		t.Errorf("unexpected announcement: %q", msgs[0].Message)
	}

	// Both countdowns shrink by the same 5-12% share.
	fa, _ := st.PlayerByID(ctx, a.ID)
	fb, _ := st.PlayerByID(ctx, b.ID)
	testutil.AssertEqual(t, "same cut", fa.TTL, fb.TTL)
	if fa.TTL < 8800 || fa.TTL > 9500 {
		t.Fatalf("prayer cut countdown to %d, want 8800-9500", fa.TTL)
	}
}

func TestEvilnessSelfPenalty(t *testing.T) {
	// With no good players around, the robbery branch fizzles and only
	// the self-penalty branch can produce broadcasts.
	st := newMockStore()
	p := st.addPlayer(&Player{Username: "alice", Network: "libera", Alignment: AlignEvil,
		TTL: 10000, Online: true})

	e := newTestEngine(st, 64)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		if err := st.SetTTL(ctx, p.ID, 10000); err != nil {
			t.Fatal(err)
		}
		online, _ := st.OnlinePlayers(ctx)
		msgs, err := e.evilness(ctx, online)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msgs) == 0 {
			continue
		}
		if !strings.Contains(msgs[0].Message, "forsaken by their evil god") {
			t.Fatalf("unexpected announcement: %q", msgs[0].Message)
		}
		fresh, _ := st.PlayerByID(ctx, p.ID)
		added := fresh.TTL - 10000
		if added < 100 || added > 500 {
			t.Fatalf("forsaking added %d seconds, want 100-500", added)
		}
		return
	}
	t.Fatal("no self-penalty in 200 evilness rounds")
}

func TestEvilnessRobbery(t *testing.T) {
	st := newMockStore()
	thief := st.addPlayer(&Player{Username: "alice", Network: "libera", Alignment: AlignEvil,
		TTL: 10000, Online: true})
	victim := st.addPlayer(&Player{Username: "bob", Network: "oftc", Alignment: AlignGood,
		TTL: 10000, Online: true})
	st.items[victim.ID][SlotHelm] = Item{Slot: SlotHelm, Level: 30}

	e := newTestEngine(st, 65)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		online, _ := st.OnlinePlayers(ctx)
		msgs, err := e.evilness(ctx, online)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, m := range msgs {
			if !strings.Contains(m.Message, "stole") {
				continue
			}
			tItems, _ := st.Items(ctx, thief.ID)
			vItems, _ := st.Items(ctx, victim.ID)
			testutil.AssertEqual(t, "thief helm", tItems[SlotHelm].Level, 30)
			testutil.AssertEqual(t, "victim helm", vItems[SlotHelm].Level, 0)
			return
		}
	}
	t.Fatal("no robbery in 200 evilness rounds")
}

func TestTeamBattleNeedsSix(t *testing.T) {
	st := newMockStore()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		st.addPlayer(&Player{Username: name, Network: "libera", TTL: 10000, Online: true})
	}

	e := newTestEngine(st, 66)
	ctx := context.Background()
	online, _ := st.OnlinePlayers(ctx)
	msgs, err := e.teamBattle(ctx, online)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 0)
}

func TestTeamBattleStake(t *testing.T) {
	st := newMockStore()
	var ids []int64
	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		p := st.addPlayer(&Player{Username: name, Network: "libera",
			TTL: int64(10000 + i*1000), Online: true})
		ids = append(ids, p.ID)
	}

	e := newTestEngine(st, 67)
	ctx := context.Background()
	online, _ := st.OnlinePlayers(ctx)
	before := make(map[int64]int64, len(online))
	for _, p := range online {
		before[p.ID] = p.TTL
	}

	msgs, err := e.teamBattle(ctx, online)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "broadcasts", len(msgs), 1)
	if !strings.Contains(msgs[0].Message, "team battled") {
		t.Errorf("unexpected announcement: %q", msgs[0].Message)
	}

	// Exactly three clocks moved, all by the same stake.
	var stakes []int64
	for _, id := range ids {
		fresh, _ := st.PlayerByID(ctx, id)
		if d := fresh.TTL - before[id]; d != 0 {
			if d < 0 {
				d = -d
			}
			stakes = append(stakes, d)
		}
	}
	testutil.AssertEqual(t, "moved clocks", len(stakes), 3)
	testutil.AssertEqual(t, "same stake a/b", stakes[0], stakes[1])
	testutil.AssertEqual(t, "same stake b/c", stakes[1], stakes[2])
}

func TestCalamityAndGodsendMirror(t *testing.T) {
	st := newMockStore()
	p := st.addPlayer(&Player{Username: "alice", Network: "libera", Nick: "alice",
		Level: 10, TTL: 10000, Online: true})
	for _, s := range calamitySlots {
		st.items[p.ID][s] = Item{Slot: s, Level: 100}
	}

	e := newTestEngine(st, 68)
	ctx := context.Background()

	sawItemLoss, sawSlowdown := false, false
	for i := 0; i < 300 && !(sawItemLoss && sawSlowdown); i++ {
		if err := st.SetTTL(ctx, p.ID, 10000); err != nil {
			t.Fatal(err)
		}
		for _, s := range calamitySlots {
			st.items[p.ID][s] = Item{Slot: s, Level: 100}
		}
		online, _ := st.OnlinePlayers(ctx)
		msgs, err := e.calamity(ctx, online)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msgs) == 0 {
			t.Fatal("calamity produced no broadcast")
		}
		if strings.Contains(msgs[0].Message, "loses 10% effectiveness") {
			sawItemLoss = true
			sum, _ := st.ItemSum(ctx, p.ID)
			testutil.AssertEqual(t, "item sum after loss", sum, 100*len(calamitySlots)-10)
		} else {
			sawSlowdown = true
			fresh, _ := st.PlayerByID(ctx, p.ID)
			added := fresh.TTL - 10000
			if added < 500 || added > 1200 {
				t.Fatalf("calamity added %d seconds, want 500-1200", added)
			}
		}
	}
	if !sawItemLoss || !sawSlowdown {
		t.Fatalf("300 calamities never covered both branches: item=%v slow=%v", sawItemLoss, sawSlowdown)
	}

	// Godsend runs the same two branches in the other direction.
	if err := st.SetTTL(ctx, p.ID, 10000); err != nil {
		t.Fatal(err)
	}
	sawGain := false
	for i := 0; i < 300 && !sawGain; i++ {
		if err := st.SetTTL(ctx, p.ID, 10000); err != nil {
			t.Fatal(err)
		}
		online, _ := st.OnlinePlayers(ctx)
		msgs, err := e.godsend(ctx, online)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msgs) > 0 && strings.Contains(msgs[0].Message, "godsend accelerated") {
			sawGain = true
			fresh, _ := st.PlayerByID(ctx, p.ID)
			removed := 10000 - fresh.TTL
			if removed < 500 || removed > 1200 {
				t.Fatalf("godsend removed %d seconds, want 500-1200", removed)
			}
		}
	}
	if !sawGain {
		t.Fatal("300 godsends never hit the countdown branch")
	}
}

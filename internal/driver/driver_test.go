package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

type countingManager struct {
	ticks int
	err   error
}

func (m *countingManager) Tick(ctx context.Context) error {
	m.ticks++
	return m.err
}

func TestTickRunsAllManagers(t *testing.T) {
	a := &countingManager{}
	b := &countingManager{}
	d := NewGameDriver([]Manager{a, b})

	d.Tick(context.Background())
	testutil.AssertEqual(t, "first manager", a.ticks, 1)
	testutil.AssertEqual(t, "second manager", b.ticks, 1)
}

func TestTickContinuesPastErrors(t *testing.T) {
	a := &countingManager{err: errors.New("boom")}
	b := &countingManager{}
	d := NewGameDriver([]Manager{a, b})

	d.Tick(context.Background())
	testutil.AssertEqual(t, "later manager still ran", b.ticks, 1)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	m := &countingManager{}
	d := NewGameDriver([]Manager{m}, WithTickLength(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ticks == 0 {
		t.Error("driver never ticked")
	}
}

package console

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
	"github.com/TehPeGaSuS/MultiRPG/internal/store"
)

// consoleConn feeds scripted input and captures output.
type consoleConn struct {
	in  io.Reader
	out bytes.Buffer
}

func (c *consoleConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *consoleConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func runScript(t *testing.T, st game.Store, script string) string {
	t.Helper()
	engine := game.NewEngine(st)
	console := New(engine, st, nil)
	conn := &consoleConn{in: strings.NewReader(script)}
	if err := console.RunSession(context.Background(), conn); err != nil {
		t.Fatalf("session: %v", err)
	}
	return conn.out.String()
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "game.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSessionQuit(t *testing.T) {
	out := runScript(t, openTestStore(t), "quit\n")
	testutil.AssertEqual(t, "banner", strings.Contains(out, "operator console"), true)
	testutil.AssertEqual(t, "bye", strings.Contains(out, "Bye."), true)
}

func TestSessionStatusEmpty(t *testing.T) {
	out := runScript(t, openTestStore(t), "status\nwho\nquit\n")
	testutil.AssertEqual(t, "running", strings.Contains(out, "Game running"), true)
	testutil.AssertEqual(t, "count", strings.Contains(out, "0 player(s) online"), true)
	testutil.AssertEqual(t, "who", strings.Contains(out, "Nobody is online."), true)
}

func TestSessionWhois(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, err := st.CreatePlayer(ctx, "alice", "libera", "hunter2", "Puffmage"); err != nil {
		t.Fatalf("creating player: %v", err)
	}

	out := runScript(t, st, "whois alice\ntop\nquit\n")
	testutil.AssertEqual(t, "whois line", strings.Contains(out, "alice@libera, the level 0 Puffmage (offline)"), true)
	testutil.AssertEqual(t, "top line", strings.Contains(out, "1. alice@libera"), true)
}

func TestSessionUnknownCommand(t *testing.T) {
	out := runScript(t, openTestStore(t), "frobnicate\nquit\n")
	testutil.AssertEqual(t, "error", strings.Contains(out, `unknown command "frobnicate"`), true)
}

func TestSessionPauseAndSilent(t *testing.T) {
	out := runScript(t, openTestStore(t), "pause\nsilent 3\nsilent 9\nquit\n")
	testutil.AssertEqual(t, "paused", strings.Contains(out, "Game PAUSED."), true)
	testutil.AssertEqual(t, "silent", strings.Contains(out, "all messages disabled"), true)
	testutil.AssertEqual(t, "bad level", strings.Contains(out, "error:"), true)
}

// Package store persists players, items, and the event log in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/text/cases"
	_ "modernc.org/sqlite"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
)

//go:embed schema.sql
var schema string

var _ game.Store = (*Store)(nil)

// Store implements game.Store over a single SQLite file.
//
// Mutations accumulate in one long-lived transaction and become durable
// on Commit, so a tick pass lands as a unit. All access serializes
// through one mutex and one connection; the engine's call pattern is
// many small statements, not concurrent scans.
type Store struct {
	db *sql.DB

	mu sync.Mutex
	tx *sql.Tx

	fold cases.Caser
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, fold: cases.Fold()}, nil
}

// dbtx is the subset of sql.DB and sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// writer returns the open transaction, starting one if needed. Callers
// hold s.mu.
func (s *Store) writer(ctx context.Context) (dbtx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

// reader returns the open transaction when there is one, so reads see
// buffered writes, and the bare handle otherwise. Callers hold s.mu.
func (s *Store) reader() dbtx {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Commit makes all buffered mutations durable. A no-op with nothing
// pending.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

func (s *Store) commitLocked() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Close flushes any pending transaction and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commitLocked(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}

// usernameKey is the caseless uniqueness key for a username.
func (s *Store) usernameKey(username string) string {
	return s.fold.String(username)
}

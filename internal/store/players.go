package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
)

const playerColumns = `id, username, network, class, alignment, level, ttl, next_ttl,
	x, y, online, nick, channel, userhost, is_admin,
	created_at, last_login, online_since,
	pen_message, pen_nick, pen_part, pen_kick, pen_quit, pen_quest, pen_logout`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*game.Player, error) {
	var p game.Player
	var alignment string
	var online, admin int
	var created, lastLogin, onlineSince int64

	err := row.Scan(
		&p.ID, &p.Username, &p.Network, &p.Class, &alignment, &p.Level, &p.TTL, &p.NextTTL,
		&p.X, &p.Y, &online, &p.Nick, &p.Channel, &p.UserHost, &admin,
		&created, &lastLogin, &onlineSince,
		&p.Penalties.Message, &p.Penalties.Nick, &p.Penalties.Part, &p.Penalties.Kick,
		&p.Penalties.Quit, &p.Penalties.Quest, &p.Penalties.Logout,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrPlayerNotFound
		}
		return nil, err
	}

	p.Alignment = game.Alignment(alignment)
	p.Online = online != 0
	p.Admin = admin != 0
	p.CreatedAt = time.Unix(created, 0)
	if lastLogin > 0 {
		p.LastLogin = time.Unix(lastLogin, 0)
	}
	if onlineSince > 0 {
		p.OnlineSince = time.Unix(onlineSince, 0)
	}
	return &p, nil
}

func (s *Store) queryPlayers(ctx context.Context, q string, args ...any) ([]*game.Player, error) {
	rows, err := s.reader().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*game.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) OnlinePlayers(ctx context.Context) ([]*game.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryPlayers(ctx,
		`SELECT `+playerColumns+` FROM players WHERE online = 1 ORDER BY id`)
}

func (s *Store) TopPlayers(ctx context.Context, limit int) ([]*game.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryPlayers(ctx,
		`SELECT `+playerColumns+` FROM players ORDER BY level DESC, ttl ASC LIMIT ?`, limit)
}

func (s *Store) PlayerByID(ctx context.Context, id int64) (*game.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanPlayer(s.reader().QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
}

func (s *Store) PlayerByNick(ctx context.Context, nick, network string) (*game.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanPlayer(s.reader().QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE nick = ? AND network = ?`, nick, network))
}

func (s *Store) PlayerByUsername(ctx context.Context, username string) (*game.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanPlayer(s.reader().QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE username_key = ?`, s.usernameKey(username)))
}

func (s *Store) CreatePlayer(ctx context.Context, username, network, password, class string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.writer(ctx)
	if err != nil {
		return 0, err
	}

	key := s.usernameKey(username)
	var exists int
	err = w.QueryRowContext(ctx, `SELECT 1 FROM players WHERE username_key = ?`, key).Scan(&exists)
	if err == nil {
		return 0, game.ErrPlayerExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hashing password: %w", err)
	}

	ttl := game.TimeToLevel(0)
	res, err := w.ExecContext(ctx, `
		INSERT INTO players (username, username_key, network, password_hash, class,
			ttl, next_ttl, x, y, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		username, key, network, string(hash), class,
		ttl, ttl, rand.IntN(game.MapWidth), rand.IntN(game.MapHeight), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("inserting player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	// One row per equipment slot, all starting empty.
	for _, slot := range game.Slots {
		if _, err := w.ExecContext(ctx,
			`INSERT INTO items (player_id, slot) VALUES (?, ?)`, id, string(slot)); err != nil {
			return 0, fmt.Errorf("inserting %s row: %w", slot, err)
		}
	}
	return id, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.writer(ctx)
	if err != nil {
		return err
	}
	res, err := w.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return game.ErrPlayerNotFound
	}
	return nil
}

func (s *Store) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.writer(ctx)
	if err != nil {
		return 0, err
	}
	res, err := w.ExecContext(ctx,
		`DELETE FROM players WHERE online = 0 AND last_login < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) SetOnline(ctx context.Context, id int64, nick, channel, userhost string) error {
	now := time.Now().Unix()
	return s.exec(ctx, `
		UPDATE players SET online = 1, nick = ?, channel = ?, userhost = ?,
			last_login = ?, online_since = ?
		WHERE id = ?`,
		nick, channel, userhost, now, now, id)
}

func (s *Store) SetOffline(ctx context.Context, id int64) error {
	return s.exec(ctx,
		`UPDATE players SET online = 0, online_since = 0 WHERE id = ?`, id)
}

func (s *Store) PreviouslyOnline(ctx context.Context, network string) ([]*game.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryPlayers(ctx,
		`SELECT `+playerColumns+` FROM players WHERE online = 1 AND network = ?`, network)
}

func (s *Store) MarkAllOffline(ctx context.Context, network string) error {
	return s.exec(ctx,
		`UPDATE players SET online = 0, online_since = 0 WHERE network = ?`, network)
}

func (s *Store) UpdateNick(ctx context.Context, id int64, nick string) error {
	return s.exec(ctx, `UPDATE players SET nick = ? WHERE id = ?`, nick, id)
}

func (s *Store) UpdatePosition(ctx context.Context, id int64, x, y int) error {
	return s.exec(ctx, `UPDATE players SET x = ?, y = ? WHERE id = ?`, x, y, id)
}

func (s *Store) SetTTL(ctx context.Context, id int64, ttl int64) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.exec(ctx, `UPDATE players SET ttl = ? WHERE id = ?`, ttl, id)
}

// penaltyColumns maps penalty kinds to their counter column. Only values
// from this map ever reach the SQL text.
var penaltyColumns = map[game.PenaltyKind]string{
	game.PenaltyMessage: "pen_message",
	game.PenaltyNick:    "pen_nick",
	game.PenaltyPart:    "pen_part",
	game.PenaltyKick:    "pen_kick",
	game.PenaltyQuit:    "pen_quit",
	game.PenaltyQuest:   "pen_quest",
	game.PenaltyLogout:  "pen_logout",
}

func (s *Store) AddTTL(ctx context.Context, id int64, seconds int64, kind game.PenaltyKind) error {
	col, counted := penaltyColumns[kind]
	if !counted {
		return s.exec(ctx,
			`UPDATE players SET ttl = MAX(0, ttl + ?) WHERE id = ?`, seconds, id)
	}
	return s.exec(ctx,
		`UPDATE players SET ttl = MAX(0, ttl + ?), `+col+` = `+col+` + ? WHERE id = ?`,
		seconds, seconds, id)
}

func (s *Store) LevelUp(ctx context.Context, id int64, level int, ttl int64) error {
	return s.exec(ctx,
		`UPDATE players SET level = ?, ttl = ?, next_ttl = ? WHERE id = ?`,
		level, ttl, ttl, id)
}

func (s *Store) SetPassword(ctx context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return s.exec(ctx, `UPDATE players SET password_hash = ? WHERE id = ?`, string(hash), id)
}

func (s *Store) CheckPassword(ctx context.Context, id int64, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash string
	err := s.reader().QueryRowContext(ctx,
		`SELECT password_hash FROM players WHERE id = ?`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, game.ErrPlayerNotFound
		}
		return false, err
	}

	switch err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) SetAlignment(ctx context.Context, id int64, alignment game.Alignment) error {
	return s.exec(ctx, `UPDATE players SET alignment = ? WHERE id = ?`, string(alignment), id)
}

func (s *Store) SetClass(ctx context.Context, id int64, class string) error {
	return s.exec(ctx, `UPDATE players SET class = ? WHERE id = ?`, class, id)
}

func (s *Store) SetUsername(ctx context.Context, id int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.writer(ctx)
	if err != nil {
		return err
	}
	_, err = w.ExecContext(ctx,
		`UPDATE players SET username = ?, username_key = ? WHERE id = ?`,
		username, s.usernameKey(username), id)
	return err
}

func (s *Store) SetAdmin(ctx context.Context, username string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.writer(ctx)
	if err != nil {
		return err
	}
	res, err := w.ExecContext(ctx,
		`UPDATE players SET is_admin = ? WHERE username_key = ?`,
		boolInt(admin), s.usernameKey(username))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return game.ErrPlayerNotFound
	}
	return nil
}

// exec runs one buffered mutation against the open transaction.
func (s *Store) exec(ctx context.Context, q string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.writer(ctx)
	if err != nil {
		return err
	}
	_, err = w.ExecContext(ctx, q, args...)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
)

func (s *Store) Items(ctx context.Context, playerID int64) (map[game.Slot]game.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.reader().QueryContext(ctx,
		`SELECT slot, level, name, unique_item FROM items WHERE player_id = ?`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[game.Slot]game.Item, len(game.Slots))
	for rows.Next() {
		var it game.Item
		var slot string
		var unique int
		if err := rows.Scan(&slot, &it.Level, &it.Name, &unique); err != nil {
			return nil, err
		}
		it.Slot = game.Slot(slot)
		it.Unique = unique != 0
		out[it.Slot] = it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, game.ErrPlayerNotFound
	}
	return out, nil
}

func (s *Store) ItemSum(ctx context.Context, playerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum sql.NullInt64
	err := s.reader().QueryRowContext(ctx,
		`SELECT SUM(level) FROM items WHERE player_id = ?`, playerID).Scan(&sum)
	if err != nil {
		return 0, err
	}
	if !sum.Valid {
		return 0, game.ErrPlayerNotFound
	}
	return int(sum.Int64), nil
}

func (s *Store) HighestItemSum(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best sql.NullInt64
	err := s.reader().QueryRowContext(ctx, `
		SELECT MAX(total) FROM (
			SELECT SUM(level) AS total FROM items GROUP BY player_id
		)`).Scan(&best)
	if err != nil {
		return 0, err
	}
	if !best.Valid {
		return 0, nil
	}
	return int(best.Int64), nil
}

func (s *Store) SetItem(ctx context.Context, playerID int64, slot game.Slot, level int, name string, unique bool) error {
	return s.exec(ctx, `
		UPDATE items SET level = ?, name = ?, unique_item = ?
		WHERE player_id = ? AND slot = ?`,
		level, name, boolInt(unique), playerID, string(slot))
}

func (s *Store) SwapItemLevels(ctx context.Context, aID, bID int64, slot game.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.writer(ctx)
	if err != nil {
		return err
	}

	levelOf := func(id int64) (int, error) {
		var lvl int
		err := w.QueryRowContext(ctx,
			`SELECT level FROM items WHERE player_id = ? AND slot = ?`,
			id, string(slot)).Scan(&lvl)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, game.ErrPlayerNotFound
		}
		return lvl, err
	}

	aLvl, err := levelOf(aID)
	if err != nil {
		return err
	}
	bLvl, err := levelOf(bID)
	if err != nil {
		return err
	}

	// The swap strips unique metadata from both sides.
	for _, u := range []struct {
		id  int64
		lvl int
	}{{aID, bLvl}, {bID, aLvl}} {
		if _, err := w.ExecContext(ctx, `
			UPDATE items SET level = ?, name = '', unique_item = 0
			WHERE player_id = ? AND slot = ?`,
			u.lvl, u.id, string(slot)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ScaleItemLevel(ctx context.Context, playerID int64, slot game.Slot, pct float64) error {
	return s.exec(ctx, `
		UPDATE items SET level = MAX(0, CAST(level * (1.0 + ?) AS INTEGER))
		WHERE player_id = ? AND slot = ?`,
		pct, playerID, string(slot))
}

package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
)

func (s *Store) LogEvent(ctx context.Context, kind, message string, actors ...int64) error {
	ids := make([]string, len(actors))
	for i, a := range actors {
		ids[i] = strconv.FormatInt(a, 10)
	}
	return s.exec(ctx, `
		INSERT INTO events (id, kind, message, actors, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), kind, message, strings.Join(ids, ","), time.Now().Unix())
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]game.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.reader().QueryContext(ctx, `
		SELECT id, kind, message, actors, created_at
		FROM events ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Event
	for rows.Next() {
		var ev game.Event
		var actors string
		var created int64
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Message, &actors, &created); err != nil {
			return nil, err
		}
		ev.CreatedAt = time.Unix(created, 0)
		if actors != "" {
			for _, part := range strings.Split(actors, ",") {
				id, err := strconv.ParseInt(part, 10, 64)
				if err != nil {
					continue
				}
				ev.Actors = append(ev.Actors, id)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

package game

import (
	"context"
	"sort"
	"strings"
	"time"
)

// mockStore is an in-memory Store for engine tests. It applies every
// mutation immediately and counts Commit calls.
type mockStore struct {
	players   map[int64]*Player
	passwords map[int64]string
	items     map[int64]map[Slot]Item
	events    []Event
	commits   int
	nextID    int64
}

func newMockStore() *mockStore {
	return &mockStore{
		players:   map[int64]*Player{},
		passwords: map[int64]string{},
		items:     map[int64]map[Slot]Item{},
		nextID:    1,
	}
}

// addPlayer registers a ready-made player, filling the item rows.
func (m *mockStore) addPlayer(p *Player) *Player {
	if p.ID == 0 {
		p.ID = m.nextID
		m.nextID++
	} else if p.ID >= m.nextID {
		m.nextID = p.ID + 1
	}
	m.players[p.ID] = p
	if m.items[p.ID] == nil {
		rows := make(map[Slot]Item, len(Slots))
		for _, s := range Slots {
			rows[s] = Item{Slot: s}
		}
		m.items[p.ID] = rows
	}
	return p
}

func (m *mockStore) OnlinePlayers(ctx context.Context) ([]*Player, error) {
	var out []*Player
	for _, p := range m.players {
		if p.Online {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) TopPlayers(ctx context.Context, limit int) ([]*Player, error) {
	var out []*Player
	for _, p := range m.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].TTL < out[j].TTL
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) PlayerByID(ctx context.Context, id int64) (*Player, error) {
	p, ok := m.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) PlayerByNick(ctx context.Context, nick, network string) (*Player, error) {
	for _, p := range m.players {
		if p.Nick == nick && p.Network == network {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (m *mockStore) PlayerByUsername(ctx context.Context, username string) (*Player, error) {
	for _, p := range m.players {
		if strings.EqualFold(p.Username, username) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (m *mockStore) CreatePlayer(ctx context.Context, username, network, password, class string) (int64, error) {
	if _, err := m.PlayerByUsername(ctx, username); err == nil {
		return 0, ErrPlayerExists
	}
	p := m.addPlayer(&Player{
		Username:  username,
		Network:   network,
		Class:     class,
		Alignment: AlignNeutral,
		TTL:       TimeToLevel(0),
		CreatedAt: time.Now(),
	})
	m.passwords[p.ID] = password
	return p.ID, nil
}

func (m *mockStore) DeletePlayer(ctx context.Context, id int64) error {
	if _, ok := m.players[id]; !ok {
		return ErrPlayerNotFound
	}
	delete(m.players, id)
	delete(m.items, id)
	delete(m.passwords, id)
	return nil
}

func (m *mockStore) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, p := range m.players {
		if !p.Online && p.LastLogin.Before(cutoff) {
			delete(m.players, id)
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) SetOnline(ctx context.Context, id int64, nick, channel, userhost string) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Online = true
	p.Nick = nick
	p.Channel = channel
	p.UserHost = userhost
	p.LastLogin = time.Now()
	p.OnlineSince = time.Now()
	return nil
}

func (m *mockStore) SetOffline(ctx context.Context, id int64) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Online = false
	p.OnlineSince = time.Time{}
	return nil
}

func (m *mockStore) PreviouslyOnline(ctx context.Context, network string) ([]*Player, error) {
	var out []*Player
	for _, p := range m.players {
		if p.Online && p.Network == network {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) MarkAllOffline(ctx context.Context, network string) error {
	for _, p := range m.players {
		if p.Network == network {
			p.Online = false
		}
	}
	return nil
}

func (m *mockStore) UpdateNick(ctx context.Context, id int64, nick string) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Nick = nick
	return nil
}

func (m *mockStore) UpdatePosition(ctx context.Context, id int64, x, y int) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.X, p.Y = x, y
	return nil
}

func (m *mockStore) SetTTL(ctx context.Context, id int64, ttl int64) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	if ttl < 0 {
		ttl = 0
	}
	p.TTL = ttl
	return nil
}

func (m *mockStore) AddTTL(ctx context.Context, id int64, seconds int64, kind PenaltyKind) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.TTL += seconds
	if p.TTL < 0 {
		p.TTL = 0
	}
	switch kind {
	case PenaltyMessage:
		p.Penalties.Message += seconds
	case PenaltyNick:
		p.Penalties.Nick += seconds
	case PenaltyPart:
		p.Penalties.Part += seconds
	case PenaltyQuit:
		p.Penalties.Quit += seconds
	case PenaltyLogout:
		p.Penalties.Logout += seconds
	case PenaltyKick:
		p.Penalties.Kick += seconds
	case PenaltyQuest:
		p.Penalties.Quest += seconds
	}
	return nil
}

func (m *mockStore) LevelUp(ctx context.Context, id int64, level int, ttl int64) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Level = level
	p.TTL = ttl
	p.NextTTL = ttl
	return nil
}

func (m *mockStore) SetPassword(ctx context.Context, id int64, password string) error {
	if _, ok := m.players[id]; !ok {
		return ErrPlayerNotFound
	}
	m.passwords[id] = password
	return nil
}

func (m *mockStore) CheckPassword(ctx context.Context, id int64, password string) (bool, error) {
	if _, ok := m.players[id]; !ok {
		return false, ErrPlayerNotFound
	}
	return m.passwords[id] == password, nil
}

func (m *mockStore) SetAlignment(ctx context.Context, id int64, alignment Alignment) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Alignment = alignment
	return nil
}

func (m *mockStore) SetClass(ctx context.Context, id int64, class string) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Class = class
	return nil
}

func (m *mockStore) SetUsername(ctx context.Context, id int64, username string) error {
	p, ok := m.players[id]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Username = username
	return nil
}

func (m *mockStore) SetAdmin(ctx context.Context, username string, admin bool) error {
	for _, p := range m.players {
		if strings.EqualFold(p.Username, username) {
			p.Admin = admin
			return nil
		}
	}
	return ErrPlayerNotFound
}

func (m *mockStore) Items(ctx context.Context, playerID int64) (map[Slot]Item, error) {
	rows, ok := m.items[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	out := make(map[Slot]Item, len(rows))
	for s, it := range rows {
		out[s] = it
	}
	return out, nil
}

func (m *mockStore) ItemSum(ctx context.Context, playerID int64) (int, error) {
	rows, ok := m.items[playerID]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	sum := 0
	for _, it := range rows {
		sum += it.Level
	}
	return sum, nil
}

func (m *mockStore) HighestItemSum(ctx context.Context) (int, error) {
	best := 0
	for id := range m.items {
		sum, _ := m.ItemSum(ctx, id)
		if sum > best {
			best = sum
		}
	}
	return best, nil
}

func (m *mockStore) SetItem(ctx context.Context, playerID int64, slot Slot, level int, name string, unique bool) error {
	rows, ok := m.items[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	rows[slot] = Item{Slot: slot, Level: level, Name: name, Unique: unique}
	return nil
}

func (m *mockStore) SwapItemLevels(ctx context.Context, aID, bID int64, slot Slot) error {
	a, ok := m.items[aID]
	if !ok {
		return ErrPlayerNotFound
	}
	b, ok := m.items[bID]
	if !ok {
		return ErrPlayerNotFound
	}
	aLvl, bLvl := a[slot].Level, b[slot].Level
	a[slot] = Item{Slot: slot, Level: bLvl}
	b[slot] = Item{Slot: slot, Level: aLvl}
	return nil
}

func (m *mockStore) ScaleItemLevel(ctx context.Context, playerID int64, slot Slot, pct float64) error {
	rows, ok := m.items[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	it := rows[slot]
	it.Level = int(float64(it.Level) * (1 + pct))
	if it.Level < 0 {
		it.Level = 0
	}
	rows[slot] = it
	return nil
}

func (m *mockStore) LogEvent(ctx context.Context, kind, message string, actors ...int64) error {
	m.events = append(m.events, Event{
		Kind:      kind,
		Message:   message,
		Actors:    actors,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *mockStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if len(m.events) > limit {
		return m.events[len(m.events)-limit:], nil
	}
	return m.events, nil
}

func (m *mockStore) Commit(ctx context.Context) error {
	m.commits++
	return nil
}

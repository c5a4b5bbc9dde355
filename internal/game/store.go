package game

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player already exists")
)

// Event is one entry in the persistent event log.
type Event struct {
	ID        string
	Kind      string
	Message   string
	Actors    []int64
	CreatedAt time.Time
}

// Store is the persistent player/item/event repository the engine runs
// against. Mutations become durable no later than the next Commit; AddTTL
// must be an atomic add on the stored countdown, never a read-modify-write
// in the caller, since infraction handlers interleave with the tick pass.
type Store interface {
	// Players
	OnlinePlayers(ctx context.Context) ([]*Player, error)
	TopPlayers(ctx context.Context, limit int) ([]*Player, error)
	PlayerByID(ctx context.Context, id int64) (*Player, error)
	PlayerByNick(ctx context.Context, nick, network string) (*Player, error)
	// PlayerByUsername looks up by username alone, case-insensitively,
	// across all networks. Usernames are globally unique.
	PlayerByUsername(ctx context.Context, username string) (*Player, error)
	CreatePlayer(ctx context.Context, username, network, password, class string) (int64, error)
	DeletePlayer(ctx context.Context, id int64) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)

	// Presence
	SetOnline(ctx context.Context, id int64, nick, channel, userhost string) error
	SetOffline(ctx context.Context, id int64) error
	PreviouslyOnline(ctx context.Context, network string) ([]*Player, error)
	MarkAllOffline(ctx context.Context, network string) error
	UpdateNick(ctx context.Context, id int64, nick string) error

	// Simulation state
	UpdatePosition(ctx context.Context, id int64, x, y int) error
	// SetTTL sets the countdown to an absolute value, clamped at zero.
	SetTTL(ctx context.Context, id int64, ttl int64) error
	// AddTTL adds seconds to the countdown. A non-empty kind also
	// increments that penalty counter.
	AddTTL(ctx context.Context, id int64, seconds int64, kind PenaltyKind) error
	LevelUp(ctx context.Context, id int64, level int, ttl int64) error

	// Account
	SetPassword(ctx context.Context, id int64, password string) error
	CheckPassword(ctx context.Context, id int64, password string) (bool, error)
	SetAlignment(ctx context.Context, id int64, alignment Alignment) error
	SetClass(ctx context.Context, id int64, class string) error
	SetUsername(ctx context.Context, id int64, username string) error
	SetAdmin(ctx context.Context, username string, admin bool) error

	// Items
	Items(ctx context.Context, playerID int64) (map[Slot]Item, error)
	ItemSum(ctx context.Context, playerID int64) (int, error)
	HighestItemSum(ctx context.Context) (int, error)
	SetItem(ctx context.Context, playerID int64, slot Slot, level int, name string, unique bool) error
	// SwapItemLevels exchanges the item levels two players hold in one
	// slot, stripping unique names from both sides.
	SwapItemLevels(ctx context.Context, aID, bID int64, slot Slot) error
	ScaleItemLevel(ctx context.Context, playerID int64, slot Slot, pct float64) error

	// Event log
	LogEvent(ctx context.Context, kind, message string, actors ...int64) error
	RecentEvents(ctx context.Context, limit int) ([]Event, error)

	// Commit makes all buffered mutations durable.
	Commit(ctx context.Context) error
}

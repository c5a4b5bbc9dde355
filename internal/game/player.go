package game

import (
	"fmt"
	"time"
)

// Alignment is a player's moral alignment. It scales battle power and
// gates a few world events. Stored as a single character.
type Alignment string

const (
	AlignGood    Alignment = "g"
	AlignNeutral Alignment = "n"
	AlignEvil    Alignment = "e"
)

// ParseAlignment maps the user-facing alignment words to their codes.
func ParseAlignment(s string) (Alignment, bool) {
	switch s {
	case "good":
		return AlignGood, true
	case "neutral":
		return AlignNeutral, true
	case "evil":
		return AlignEvil, true
	}
	return "", false
}

// Name returns the full alignment word for display.
func (a Alignment) Name() string {
	switch a {
	case AlignGood:
		return "good"
	case AlignEvil:
		return "evil"
	default:
		return "neutral"
	}
}

// Player is a snapshot of one character row. The engine never holds one
// across an I/O boundary: every mutation re-reads current state first.
type Player struct {
	ID        int64
	Username  string
	Network   string
	Class     string
	Alignment Alignment

	Level   int
	TTL     int64 // seconds until next level
	NextTTL int64 // TTL as of the last level-up, for display

	X, Y int

	Online   bool
	Nick     string
	Channel  string
	UserHost string
	Admin    bool

	CreatedAt   time.Time
	LastLogin   time.Time
	OnlineSince time.Time

	Penalties PenaltyTotals
}

// PenaltyTotals tracks lifetime penalty seconds per infraction category.
type PenaltyTotals struct {
	Message int64
	Nick    int64
	Part    int64
	Kick    int64
	Quit    int64
	Quest   int64
	Logout  int64
}

// Tag formats a player for battle and movement broadcasts, position included.
func Tag(p *Player) string {
	return fmt.Sprintf("%s@%s [%d/%d]", p.Username, p.Network, p.X, p.Y)
}

// UTag formats a player for channel-visible broadcasts.
func UTag(p *Player) string {
	return p.Username + "@" + p.Network
}

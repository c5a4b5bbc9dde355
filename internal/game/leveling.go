package game

import (
	"fmt"
	"math"
)

const (
	// MapWidth and MapHeight bound the shared toroidal grid.
	MapWidth  = 500
	MapHeight = 500

	ttlBase     = 600
	ttlStep     = 1.16
	penaltyStep = 1.14
)

// TimeToLevel returns the countdown, in seconds, a freshly levelled
// character waits before reaching the next level. Exponential through
// level 60, then one flat day per additional level.
func TimeToLevel(level int) int64 {
	if level > 60 {
		return int64(ttlBase*math.Pow(ttlStep, 60)) + 86400*int64(level-60)
	}
	return int64(ttlBase * math.Pow(ttlStep, float64(level)))
}

// PenaltyKind names a penalized player action.
type PenaltyKind string

const (
	PenaltyMessage PenaltyKind = "message"
	PenaltyNick    PenaltyKind = "nick"
	PenaltyPart    PenaltyKind = "part"
	PenaltyQuit    PenaltyKind = "quit"
	PenaltyLogout  PenaltyKind = "logout"
	PenaltyKick    PenaltyKind = "kick"
	PenaltyQuest   PenaltyKind = "quest"
)

var penaltyBase = map[PenaltyKind]int{
	PenaltyNick:   30,
	PenaltyPart:   200,
	PenaltyQuit:   20,
	PenaltyLogout: 20,
	PenaltyKick:   250,
}

// Penalty computes the countdown penalty for an infraction. Message and
// notice penalties use the message length as their base; everything else
// has a fixed base. The result scales with level, saturating at the
// int64 maximum, and is clamped at limit when limit is positive. A
// penalty is never negative.
func Penalty(kind PenaltyKind, level, msgLen int, limit int64) int64 {
	base, ok := penaltyBase[kind]
	if !ok {
		base = msgLen
	}
	pen := scalePenalty(base, level)
	if limit > 0 && pen > limit {
		return limit
	}
	return pen
}

// scalePenalty grows base by the per-level penalty factor. The float
// product exceeds the int64 range around level 290, where a plain
// conversion would go negative, so it saturates instead.
func scalePenalty(base, level int) int64 {
	v := float64(base) * math.Pow(penaltyStep, float64(level))
	if v >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(v)
}

// FormatDuration renders a countdown as "N day(s), HH:MM:SS".
func FormatDuration(seconds int64) string {
	s := seconds
	if s < 0 {
		s = -s
	}
	d := s / 86400
	s %= 86400
	h := s / 3600
	s %= 3600
	m := s / 60
	s %= 60
	unit := "days"
	if d == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%d %s, %02d:%02d:%02d", d, unit, h, m, s)
}

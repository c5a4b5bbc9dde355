package display

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

// DefaultChunkWidth keeps relayed lines inside a single IRC message,
// with headroom for the server-added prefix.
const DefaultChunkWidth = 400

// Chunk word-wraps text at width and returns the resulting lines, each
// short enough to relay as one message. Width values below one fall
// back to DefaultChunkWidth.
func Chunk(text string, width int) []string {
	if width < 1 {
		width = DefaultChunkWidth
	}
	wrapped := wordwrap.String(text, width)
	lines := strings.Split(wrapped, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

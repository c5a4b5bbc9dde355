package irc

import (
	"bufio"
	"io"
)

// newLineScanner reads CRLF-delimited IRC lines. The buffer is sized
// well above the 512 byte protocol limit since some networks tag lines
// past it.
func newLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 16384)
	return s
}

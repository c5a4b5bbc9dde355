package irc

import "strings"

// message is one parsed IRC line. Trailing parameters are folded into
// the last params entry.
type message struct {
	prefix  string
	nick    string
	command string
	params  []string
}

// param returns the i-th parameter or the empty string.
func (m message) param(i int) string {
	if i < 0 || i >= len(m.params) {
		return ""
	}
	return m.params[i]
}

// last returns the final parameter, which for PRIVMSG and friends is
// the message text.
func (m message) last() string {
	if len(m.params) == 0 {
		return ""
	}
	return m.params[len(m.params)-1]
}

func parseMessage(line string) (message, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return message{}, false
	}

	var m message
	rest := line
	if strings.HasPrefix(rest, ":") {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return message{}, false
		}
		m.prefix = rest[1:sp]
		rest = rest[sp+1:]
	}

	var trailing string
	hasTrailing := false
	if strings.HasPrefix(rest, ":") {
		trailing = rest[1:]
		hasTrailing = true
		rest = ""
	} else if i := strings.Index(rest, " :"); i >= 0 {
		trailing = rest[i+2:]
		hasTrailing = true
		rest = rest[:i]
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 && !hasTrailing {
		return message{}, false
	}
	if len(fields) > 0 {
		m.command = strings.ToUpper(fields[0])
		m.params = fields[1:]
	}
	if hasTrailing {
		m.params = append(m.params, trailing)
	}

	if bang := strings.IndexByte(m.prefix, '!'); bang >= 0 {
		m.nick = m.prefix[:bang]
	} else {
		m.nick = m.prefix
	}
	return m, m.command != ""
}

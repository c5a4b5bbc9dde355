package game

// Scope says how far a broadcast fans out.
type Scope int

const (
	// ScopeAll goes to the public channel of every connected network.
	ScopeAll Scope = iota
	// ScopeNetwork goes to the public channel of one network.
	ScopeNetwork
	// ScopeNotice goes to one nickname on one network.
	ScopeNotice
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeNetwork:
		return "network"
	case ScopeNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// Broadcast is an immutable outbound message descriptor. The engine
// produces them; the transport layer decides how (and whether, depending
// on the silence level) to deliver them.
type Broadcast struct {
	Scope   Scope  `json:"scope"`
	Network string `json:"network,omitempty"`
	Nick    string `json:"nick,omitempty"`
	Message string `json:"message"`
}

// BroadcastAll builds an all-networks broadcast.
func BroadcastAll(msg string) Broadcast {
	return Broadcast{Scope: ScopeAll, Message: msg}
}

// BroadcastNet builds a single-network channel broadcast.
func BroadcastNet(network, msg string) Broadcast {
	return Broadcast{Scope: ScopeNetwork, Network: network, Message: msg}
}

// BroadcastNotice builds a notice to one nickname on one network.
func BroadcastNotice(network, nick, msg string) Broadcast {
	return Broadcast{Scope: ScopeNotice, Network: network, Nick: nick, Message: msg}
}

package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/TehPeGaSuS/MultiRPG/internal/game"
)

const (
	subjectAll          = "broadcast.all"
	subjectNetPrefix    = "broadcast.net."
	subjectNoticePrefix = "notice."
)

// Bus fans engine broadcasts out to the transport workers over NATS.
// Channel-wide messages ride broadcast.all or broadcast.net.<network>;
// private notices ride notice.<network>.
type Bus struct {
	server *NatsServer
}

// NewBus wraps a NatsServer for broadcast delivery.
func NewBus(server *NatsServer) *Bus {
	return &Bus{server: server}
}

func subjectFor(msg game.Broadcast) (string, error) {
	switch msg.Scope {
	case game.ScopeAll:
		return subjectAll, nil
	case game.ScopeNetwork:
		return subjectNetPrefix + msg.Network, nil
	case game.ScopeNotice:
		return subjectNoticePrefix + msg.Network, nil
	default:
		return "", fmt.Errorf("unknown broadcast scope %d", msg.Scope)
	}
}

// Publish encodes one broadcast and sends it to its scope's subject.
func (b *Bus) Publish(msg game.Broadcast) error {
	subject, err := subjectFor(msg)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding broadcast: %w", err)
	}
	return b.server.Publish(subject, data)
}

// PublishAll sends a batch in order, returning the first failure.
func (b *Bus) PublishAll(msgs []game.Broadcast) error {
	for _, msg := range msgs {
		if err := b.Publish(msg); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeNetwork delivers everything one network's client must relay:
// realm-wide broadcasts, its own channel messages, and its notices.
// Returns an unsubscribe function covering all three subjects.
func (b *Bus) SubscribeNetwork(network string, handler func(game.Broadcast)) (func(), error) {
	decode := func(data []byte) {
		var msg game.Broadcast
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		handler(msg)
	}

	subjects := []string{
		subjectAll,
		subjectNetPrefix + network,
		subjectNoticePrefix + network,
	}
	var cancels []func()
	for _, subject := range subjects {
		cancel, err := b.server.Subscribe(subject, decode)
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		cancels = append(cancels, cancel)
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}, nil
}

package mqtt

import (
	"log/slog"
	"sync"

	"github.com/sweeney/fish-feeder/internal/ring"
)

// DefaultOutboxSize is the number of messages held while disconnected.
const DefaultOutboxSize = 100

// message is a serialized MQTT message held for replay after reconnection.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages while the broker is unreachable. Oldest messages are
// dropped once it is full.
type outbox struct {
	mu      sync.Mutex
	pending *ring.Buffer[message]
	logger  *slog.Logger
}

func newOutbox(size int, logger *slog.Logger) *outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &outbox{pending: ring.New[message](size), logger: logger}
}

func (o *outbox) hold(m message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	wasFull := o.pending.Overflowed()
	if !o.pending.Push(m) && !wasFull {
		o.logger.Warn("mqtt buffer full, dropping oldest", "capacity", o.pending.Cap())
	}
}

// flush sends held messages oldest first. A message that fails to send is
// held again along with everything after it. Returns the number sent.
func (o *outbox) flush(send func(message) error) int {
	o.mu.Lock()
	msgs := o.pending.DrainAll()
	o.mu.Unlock()

	for i, m := range msgs {
		if err := send(m); err != nil {
			o.logger.Warn("mqtt replay failed", "topic", m.topic, "error", err)
			for _, rest := range msgs[i:] {
				o.hold(rest)
			}
			return i
		}
	}
	return len(msgs)
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending.Len()
}

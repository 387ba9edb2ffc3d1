// Package input converts raw button and limit switch edges into actuator
// commands.
package input

import (
	"log/slog"
	"sync"

	"github.com/sweeney/fish-feeder/internal/logic"
	"github.com/sweeney/fish-feeder/internal/ring"
)

// DefaultDepth is the default queue capacity.
const DefaultDepth = 10

// Queue is the bounded hand-off between the line watcher and the actuator
// task. Push never blocks: when the queue is full the oldest event is dropped
// so the newest button intent survives.
type Queue struct {
	mu     sync.Mutex
	buf    *ring.Buffer[logic.ButtonEvent]
	ready  chan struct{}
	logger *slog.Logger
}

// NewQueue creates a queue holding at most depth events.
func NewQueue(depth int, logger *slog.Logger) *Queue {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Queue{
		buf:    ring.New[logic.ButtonEvent](depth),
		ready:  make(chan struct{}, 1),
		logger: logger,
	}
}

// Push enqueues ev and wakes the consumer. Safe for concurrent use.
func (q *Queue) Push(ev logic.ButtonEvent) {
	q.mu.Lock()
	wasFull := q.buf.Overflowed()
	if !q.buf.Push(ev) && !wasFull {
		q.logger.Warn("button queue full, dropping oldest",
			"depth", q.buf.Cap())
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after at least one Push since the last Drain.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Drain removes and returns all queued events, oldest first.
func (q *Queue) Drain() []logic.ButtonEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.DrainAll()
}

// Dropped returns the number of events lost to overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Dropped()
}

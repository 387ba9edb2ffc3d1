// Package feeder runs the actuator task: the only goroutine that touches the
// stepper state. Button edges, schedule commands and the step tick are all
// applied here.
package feeder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/fish-feeder/internal/gpio"
	"github.com/sweeney/fish-feeder/internal/input"
	"github.com/sweeney/fish-feeder/internal/logic"
)

// DefaultStepPeriod is the default interval between stepper ticks.
const DefaultStepPeriod = 5 * time.Millisecond

// Controller owns a logic.Actuator and drives the stepper from it.
type Controller struct {
	act        *logic.Actuator
	stepper    gpio.Stepper
	queue      *input.Queue
	dispatcher *input.Dispatcher
	cmds       chan func()
	events     chan<- logic.Event
	now        func() time.Time
	logger     *slog.Logger

	released bool

	mu    sync.RWMutex
	state logic.ActuatorState
}

// New creates a controller. events receives telemetry; sends never block and
// are dropped when the channel is full.
func New(geo logic.Geometry, stepper gpio.Stepper, queue *input.Queue, dispatcher *input.Dispatcher, events chan<- logic.Event, now func() time.Time, logger *slog.Logger) *Controller {
	act := logic.NewActuator(geo)
	return &Controller{
		act:        act,
		stepper:    stepper,
		queue:      queue,
		dispatcher: dispatcher,
		cmds:       make(chan func()),
		events:     events,
		now:        now,
		logger:     logger,
		state:      act.State(),
	}
}

// Run applies ticks, queued button events and commands until ctx is done.
func (c *Controller) Run(ctx context.Context, tick <-chan time.Time) error {
	defer func() {
		if err := c.stepper.Release(); err != nil {
			c.logger.Warn("release stepper on exit", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tick:
			c.step()

		case <-c.queue.Ready():
			for _, ev := range c.queue.Drain() {
				if t := c.dispatcher.Handle(ev, c.act); t != "" {
					c.emit(t)
				}
			}
			c.publishState()

		case cmd := <-c.cmds:
			cmd()
			c.publishState()
		}
	}
}

func (c *Controller) step() {
	s := c.act.Tick()
	switch s.Kind {
	case logic.StepForward, logic.StepBackward:
		c.released = false
		if err := c.stepper.Energize(logic.Phases[s.Phase]); err != nil {
			c.logger.Warn("energize stepper", "error", err)
		}
		c.publishState()
	case logic.StepRelease:
		if c.released {
			return
		}
		if err := c.stepper.Release(); err != nil {
			c.logger.Warn("release stepper", "error", err)
			return
		}
		c.released = true
		c.publishState()
	}
}

// do runs f on the controller goroutine.
func (c *Controller) do(ctx context.Context, f func()) error {
	done := make(chan struct{})
	select {
	case c.cmds <- func() { f(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Feed extends the next bucket as a scheduled feed. Extending when every
// bucket is out or a move is pending is a no-op.
func (c *Controller) Feed(ctx context.Context) error {
	return c.do(ctx, func() {
		if !c.act.ExtendBucket() {
			c.logger.Info("feed skipped",
				"target", c.act.State().Target,
				"all_extended", c.act.AllExtended())
			return
		}
		c.logger.Info("feeding", "target", c.act.State().Target)
		c.emit(logic.EventFeed)
	})
}

// Snapshot returns the actuator state as seen by the controller goroutine.
func (c *Controller) Snapshot(ctx context.Context) (logic.ActuatorState, error) {
	var s logic.ActuatorState
	err := c.do(ctx, func() { s = c.act.State() })
	return s, err
}

// State returns the most recently published actuator state without
// synchronizing with the controller goroutine.
func (c *Controller) State() logic.ActuatorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) publishState() {
	s := c.act.State()
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) emit(t logic.EventType) {
	if c.events == nil {
		return
	}
	s := c.act.State()
	ev := logic.Event{
		ID:        uuid.NewString(),
		Timestamp: c.now(),
		Type:      t,
		Position:  s.Position,
		Target:    s.Target,
		Buckets:   c.act.Buckets(),
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event channel full, dropping event", "event", t)
	}
}

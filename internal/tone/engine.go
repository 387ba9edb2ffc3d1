// Package tone plays tone patterns on a monophonic waveform output.
package tone

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/fish-feeder/internal/gpio"
	"github.com/sweeney/fish-feeder/internal/logic"
)

// DefaultPoll is the default playback poll interval.
const DefaultPoll = 10 * time.Millisecond

// command is a mailbox entry. A nil pattern means stop.
type command struct {
	pattern *logic.Pattern
}

// State describes current playback.
type State struct {
	Playing   bool
	Pattern   string
	Keyframe  int
	Frequency int
}

// Engine owns the playback cursor. PlayPattern and Stop may be called from
// any goroutine; only Run touches the cursor and the waveform.
type Engine struct {
	out     gpio.Waveform
	mailbox chan command
	now     func() time.Time
	logger  *slog.Logger

	cursor logic.Cursor

	mu    sync.RWMutex
	state State
}

// New creates an engine driving out.
func New(out gpio.Waveform, now func() time.Time, logger *slog.Logger) *Engine {
	return &Engine{
		out:     out,
		mailbox: make(chan command, 1),
		now:     now,
		logger:  logger,
	}
}

// PlayPattern restarts playback with p. A newer call replaces an unconsumed
// older one.
func (e *Engine) PlayPattern(p *logic.Pattern) {
	if p == nil {
		e.Stop()
		return
	}
	e.post(command{pattern: p})
}

// Stop silences output. It overrides any pending PlayPattern.
func (e *Engine) Stop() {
	e.post(command{})
}

// post replaces the mailbox content with cmd.
func (e *Engine) post(cmd command) {
	for {
		select {
		case e.mailbox <- cmd:
			return
		default:
		}
		select {
		case <-e.mailbox:
		default:
		}
	}
}

// State returns the current playback state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Run plays patterns until ctx is done. tick drives deadline checks; pass a
// ticker channel with the poll interval.
func (e *Engine) Run(ctx context.Context, tick <-chan time.Time) error {
	defer e.silence()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-e.mailbox:
			e.apply(cmd)

		case <-tick:
			// A pending command always wins over the frame timer.
			select {
			case cmd := <-e.mailbox:
				e.apply(cmd)
				continue
			default:
			}
			if e.cursor.Advance(e.now()) {
				e.program()
			}
		}
	}
}

func (e *Engine) apply(cmd command) {
	if cmd.pattern == nil {
		e.logger.Debug("tone stop")
		e.cursor.Clear()
		e.silence()
		e.publish()
		return
	}

	e.logger.Debug("tone reset", "pattern", cmd.pattern.Name)
	e.silence()
	e.cursor.Reset(cmd.pattern, e.now())
	e.program()
}

// program drives the waveform from the active keyframe.
func (e *Engine) program() {
	kf, ok := e.cursor.Current()
	switch {
	case !ok:
		e.logger.Debug("tone pattern finished")
		e.silence()
	case kf.Rest():
		e.silence()
	default:
		if err := e.out.Start(kf.FrequencyHz); err != nil {
			e.logger.Warn("start tone", "hz", kf.FrequencyHz, "error", err)
		}
	}
	e.publish()
}

func (e *Engine) silence() {
	if err := e.out.Stop(); err != nil {
		e.logger.Warn("stop tone", "error", err)
	}
}

func (e *Engine) publish() {
	var s State
	if kf, ok := e.cursor.Current(); ok {
		s = State{
			Playing:   true,
			Pattern:   e.cursor.Pattern().Name,
			Keyframe:  e.cursor.Index(),
			Frequency: kf.FrequencyHz,
		}
	}
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

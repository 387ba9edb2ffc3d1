package input

import (
	"log/slog"
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
)

// DefaultCooldown is the default per-button debounce window.
const DefaultCooldown = 250 * time.Millisecond

// LimitSensor reads the current limit switch level.
type LimitSensor interface {
	LimitClear() (bool, error)
}

// Dispatcher applies debounce and maps accepted edges to actuator commands.
// It must run on the goroutine that owns the actuator.
type Dispatcher struct {
	debounce     *logic.Debouncer
	limit        LimitSensor
	manualExtend bool
	logger       *slog.Logger
}

// NewDispatcher creates a dispatcher. manualExtend enables the extend button
// to advance one bucket; when disabled it can only eject.
func NewDispatcher(cooldown time.Duration, limit LimitSensor, manualExtend bool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		debounce:     logic.NewDebouncer(cooldown),
		limit:        limit,
		manualExtend: manualExtend,
		logger:       logger,
	}
}

// Handle applies ev to a. It returns the resulting event type, or "" when the
// event had no effect.
func (d *Dispatcher) Handle(ev logic.ButtonEvent, a *logic.Actuator) logic.EventType {
	if ev.Source == logic.SourceLimit {
		if !a.State().Calibrating {
			return ""
		}
		if a.OnLimitEdge(ev.Edge) {
			d.logger.Info("calibration end")
			return logic.EventCalibrationDone
		}
		return ""
	}

	// Buttons only interrupt on press.
	if ev.Edge != logic.EdgeRising {
		return ""
	}
	if !d.debounce.Accept(ev) {
		d.logger.Debug("debounced", "source", ev.Source)
		return ""
	}

	switch ev.Source {
	case logic.SourceExtend:
		if a.AllExtended() {
			if a.EjectAll() {
				d.logger.Info("ejecting buckets", "target", a.State().Target)
				return logic.EventEject
			}
			return ""
		}
		if d.manualExtend && a.ExtendBucket() {
			d.logger.Info("next bucket", "target", a.State().Target)
			return logic.EventExtend
		}

	case logic.SourceRetract:
		if a.State().HasCalibrated {
			return ""
		}
		clear, err := d.limit.LimitClear()
		if err != nil {
			d.logger.Warn("read limit switch", "error", err)
			return ""
		}
		if clear {
			a.StartCalibration()
			d.logger.Info("started calibration")
			return logic.EventCalibrationStart
		}
	}
	return ""
}

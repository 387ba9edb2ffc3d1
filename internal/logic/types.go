// Package logic contains the pure state machines of the feeder: the actuator,
// the button debouncer, the schedule trigger and the tone playback cursor.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Source identifies the physical input that produced a ButtonEvent.
type Source int

const (
	SourceExtend Source = iota
	SourceRetract
	SourceLimit
)

func (s Source) String() string {
	switch s {
	case SourceExtend:
		return "extend"
	case SourceRetract:
		return "retract"
	case SourceLimit:
		return "limit"
	default:
		return "unknown"
	}
}

// Edge is the direction of a line transition.
type Edge int

const (
	EdgeRising Edge = iota
	EdgeFalling
)

func (e Edge) String() string {
	if e == EdgeFalling {
		return "falling"
	}
	return "rising"
}

// ButtonEvent is a raw edge captured from an input line.
type ButtonEvent struct {
	Source Source
	Edge   Edge
	Time   time.Time
}

// Geometry describes the bucket wheel in stepper steps.
type Geometry struct {
	BucketCount      int
	StepsPerBucket   int
	FirstBucketSteps int
}

// Limit returns the target ceiling reachable through normal extension.
func (g Geometry) Limit() int {
	return g.BucketCount * g.StepsPerBucket
}

// EventType names a feeder telemetry event.
type EventType string

const (
	EventFeed             EventType = "FEED"
	EventExtend           EventType = "EXTEND"
	EventEject            EventType = "EJECT"
	EventCalibrationStart EventType = "CALIBRATION_START"
	EventCalibrationDone  EventType = "CALIBRATION_DONE"
	EventResyncFailed     EventType = "RESYNC_FAILED"
)

// Event is a feeder state change to be published.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      EventType
	Position  int
	Target    int
	Buckets   int
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Feeds        int
	Extends      int
	Ejects       int
	Calibrations int
	ResyncFails  int
}

// Count increments the counter matching t.
func (c *EventCounts) Count(t EventType) {
	switch t {
	case EventFeed:
		c.Feeds++
	case EventExtend:
		c.Extends++
	case EventEject:
		c.Ejects++
	case EventCalibrationDone:
		c.Calibrations++
	case EventResyncFailed:
		c.ResyncFails++
	}
}

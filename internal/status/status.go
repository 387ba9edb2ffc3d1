// Package status provides a thread-safe status tracker for the fish-feeder daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// ToneInfo is a local copy of tone playback state, so status does not
// depend on the tone engine.
type ToneInfo struct {
	Playing   bool
	Pattern   string
	Keyframe  int
	Frequency int
}

// ScheduleInfo is a local copy of the schedule state.
type ScheduleInfo struct {
	FeedingTime string
	LastFeed    time.Time
	LastResync  time.Time
	ResyncOK    bool
}

// Config contains daemon configuration for display.
type Config struct {
	Buckets        int
	StepsPerBucket int
	StepPeriodMs   int64
	DebounceMs     int64
	HeartbeatMs    int64
	ManualExtend   bool
	Timezone       string
	NTPServer      string
	Broker         string
	HTTPAddr       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Actuator      logic.ActuatorState
	Tone          ToneInfo
	Schedule      ScheduleInfo
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update refreshes the component states. Called from the telemetry loop on
// every tick.
func (t *Tracker) Update(act logic.ActuatorState, tone ToneInfo, sched ScheduleInfo) {
	t.mu.Lock()
	t.snap.Actuator = act
	t.snap.Tone = tone
	t.snap.Schedule = sched
	t.mu.Unlock()
}

// CountEvent records a published feeder event.
func (t *Tracker) CountEvent(typ logic.EventType) {
	t.mu.Lock()
	t.snap.Counts.Count(typ)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffered sets the number of MQTT messages waiting for a connection.
func (t *Tracker) SetMQTTBuffered(n int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}

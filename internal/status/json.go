package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Actuator      ActuatorJSON `json:"actuator"`
	Tone          ToneJSON     `json:"tone"`
	Schedule      ScheduleJSON `json:"schedule"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ActuatorJSON is the JSON representation of the actuator.
type ActuatorJSON struct {
	Mode          string `json:"mode"`
	Position      int    `json:"position"`
	Target        int    `json:"target"`
	Buckets       int    `json:"buckets"`
	AllExtended   bool   `json:"all_extended"`
	HasCalibrated bool   `json:"has_calibrated"`
}

// ToneJSON is the JSON representation of tone playback.
type ToneJSON struct {
	Playing   bool   `json:"playing"`
	Pattern   string `json:"pattern,omitempty"`
	Keyframe  int    `json:"keyframe"`
	Frequency int    `json:"frequency_hz"`
}

// ScheduleJSON is the JSON representation of the schedule.
type ScheduleJSON struct {
	FeedingTime string `json:"feeding_time"`
	LastFeed    string `json:"last_feed,omitempty"`
	LastResync  string `json:"last_resync,omitempty"`
	ResyncOK    bool   `json:"resync_ok"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Feeds        int `json:"feeds"`
	Extends      int `json:"extends"`
	Ejects       int `json:"ejects"`
	Calibrations int `json:"calibrations"`
	ResyncFails  int `json:"resync_failures"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Buckets        int    `json:"buckets"`
	StepsPerBucket int    `json:"steps_per_bucket"`
	StepPeriodMs   int64  `json:"step_period_ms"`
	DebounceMs     int64  `json:"debounce_ms"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	ManualExtend   bool   `json:"manual_extend"`
	Timezone       string `json:"timezone"`
	NTPServer      string `json:"ntp_server"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Actuator.Mode)
	if mode == "" {
		mode = string(logic.ModeIdle)
	}

	return StatusInner{
		Actuator: ActuatorJSON{
			Mode:          mode,
			Position:      snap.Actuator.Position,
			Target:        snap.Actuator.Target,
			Buckets:       snap.Actuator.Buckets,
			AllExtended:   snap.Actuator.AllExtended,
			HasCalibrated: snap.Actuator.HasCalibrated,
		},
		Tone: ToneJSON{
			Playing:   snap.Tone.Playing,
			Pattern:   snap.Tone.Pattern,
			Keyframe:  snap.Tone.Keyframe,
			Frequency: snap.Tone.Frequency,
		},
		Schedule: ScheduleJSON{
			FeedingTime: snap.Schedule.FeedingTime,
			LastFeed:    formatTime(snap.Schedule.LastFeed),
			LastResync:  formatTime(snap.Schedule.LastResync),
			ResyncOK:    snap.Schedule.ResyncOK,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Buffered: snap.MQTTBuffered},
		Counts: CountsJSON{
			Feeds:        snap.Counts.Feeds,
			Extends:      snap.Counts.Extends,
			Ejects:       snap.Counts.Ejects,
			Calibrations: snap.Counts.Calibrations,
			ResyncFails:  snap.Counts.ResyncFails,
		},
		Config: ConfigJSON(snap.Config),
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		n := NetworkJSON(*snap.Network)
		inner.Network = &n
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

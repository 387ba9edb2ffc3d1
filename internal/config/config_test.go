package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sweeney/fish-feeder/internal/gpio"
	"github.com/sweeney/fish-feeder/internal/tone"
)

func TestDefault(t *testing.T) {
	c := Default()

	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if c.FeedingMinute() != 8*60 {
		t.Errorf("FeedingMinute: got %d, want 480", c.FeedingMinute())
	}
	geo := c.Geometry()
	if geo.BucketCount != 6 || geo.StepsPerBucket != 580 || geo.FirstBucketSteps != 580 {
		t.Errorf("Geometry: got %+v", geo)
	}
	if c.GPIOPins() != gpio.DefaultPins() {
		t.Errorf("Pins: got %+v", c.GPIOPins())
	}
	if c.Timing.StepPeriod.D() != 5*time.Millisecond {
		t.Errorf("StepPeriod: got %v", c.Timing.StepPeriod.D())
	}
	if c.Timing.Debounce.D() != 250*time.Millisecond {
		t.Errorf("Debounce: got %v", c.Timing.Debounce.D())
	}
	if c.Timing.ResyncCooldown.D() != time.Hour {
		t.Errorf("ResyncCooldown: got %v", c.Timing.ResyncCooldown.D())
	}
	if c.MQTT.Heartbeat.D() != DefaultHeartbeat {
		t.Errorf("Heartbeat: got %v", c.MQTT.Heartbeat.D())
	}
	if c.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr: got %q", c.HTTP.Addr)
	}
	if c.FeedAlert != tone.DefaultFeedAlert {
		t.Errorf("FeedAlert: got %q", c.FeedAlert)
	}
	if c.RestartDelay.D() != 10*time.Second {
		t.Errorf("RestartDelay: got %v", c.RestartDelay.D())
	}
}

func TestParse(t *testing.T) {
	const doc = `
feeding_time = "18:45"
timezone = "Europe/London"
manual_extend = true
feed_alert = "A4:200 R:50 A5:200"

[buckets]
count = 4
steps_per_bucket = 1200
first_bucket_steps = 900

[timing]
step_period = "2ms"
debounce = "100ms"
resync_cooldown = "30m"

[pins]
chip = "gpiochip4"
step = [1, 2, 3, 4]
extend = 5
retract = 6
limit = 7
buzzer = 8

[ntp]
server = "time.example.net"

[mqtt]
broker = "tcp://broker.local:1883"
heartbeat = "0s"

[http]
addr = ":8080"
mdns = true
`
	c, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.FeedingMinute() != 18*60+45 {
		t.Errorf("FeedingMinute: got %d", c.FeedingMinute())
	}
	loc, err := c.Location()
	if err != nil || loc.String() != "Europe/London" {
		t.Errorf("Location: got %v, %v", loc, err)
	}
	if !c.ManualExtend {
		t.Error("ManualExtend should be true")
	}
	if geo := c.Geometry(); geo.BucketCount != 4 || geo.StepsPerBucket != 1200 || geo.FirstBucketSteps != 900 {
		t.Errorf("Geometry: got %+v", geo)
	}
	if c.Timing.StepPeriod.D() != 2*time.Millisecond || c.Timing.Debounce.D() != 100*time.Millisecond {
		t.Errorf("Timing: got %+v", c.Timing)
	}
	if c.Timing.ResyncCooldown.D() != 30*time.Minute {
		t.Errorf("ResyncCooldown: got %v", c.Timing.ResyncCooldown.D())
	}
	// Unset timing keys fall back to defaults.
	if c.Timing.TonePoll.D() != tone.DefaultPoll {
		t.Errorf("TonePoll: got %v", c.Timing.TonePoll.D())
	}
	pins := c.GPIOPins()
	if pins.Chip != "gpiochip4" || pins.Step != [4]int{1, 2, 3, 4} || pins.Buzzer != 8 {
		t.Errorf("Pins: got %+v", pins)
	}
	if c.NTP.Server != "time.example.net" || c.NTP.Attempts != 3 {
		t.Errorf("NTP: got %+v", c.NTP)
	}
	if c.MQTT.Heartbeat != 0 {
		t.Errorf("explicit zero heartbeat should disable it, got %v", c.MQTT.Heartbeat.D())
	}
	if c.HTTP.Addr != ":8080" || !c.HTTP.MDNS {
		t.Errorf("HTTP: got %+v", c.HTTP)
	}
}

func TestParseEmptyDocumentUsesDefaults(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.MQTT.Heartbeat.D() != DefaultHeartbeat || c.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("optional defaults not applied: %+v %+v", c.MQTT, c.HTTP)
	}
}

func TestParseExplicitEmptyHTTPAddrDisablesServer(t *testing.T) {
	c, err := Parse(strings.NewReader("[http]\naddr = \"\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.HTTP.Addr != "" {
		t.Errorf("HTTP.Addr: got %q, want empty", c.HTTP.Addr)
	}
}

func TestParsePinLineZero(t *testing.T) {
	c, err := Parse(strings.NewReader("[pins]\nextend = 0\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	pins := c.GPIOPins()
	if pins.Extend != 0 {
		t.Errorf("extend: got %d, want 0", pins.Extend)
	}
	if pins.Retract != gpio.DefaultPinRetract || pins.Step != gpio.DefaultPins().Step {
		t.Errorf("unset pins should keep defaults, got %+v", pins)
	}

	c, err = Parse(strings.NewReader("[pins]\nstep = [0, 1, 2, 3]\n"))
	if err != nil {
		t.Fatalf("Parse step: %v", err)
	}
	if got := c.GPIOPins().Step; got != [4]int{0, 1, 2, 3} {
		t.Errorf("step: got %v", got)
	}
}

func TestParseQueueDepthBounds(t *testing.T) {
	for _, depth := range []int{MinQueueDepth, MaxQueueDepth} {
		c, err := Parse(strings.NewReader(fmt.Sprintf("[timing]\nqueue_depth = %d\n", depth)))
		if err != nil {
			t.Fatalf("depth %d: %v", depth, err)
		}
		if c.Timing.QueueDepth != depth {
			t.Errorf("depth: got %d, want %d", c.Timing.QueueDepth, depth)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"syntax", "feeding_time = ", "decode toml"},
		{"bad duration", "[timing]\ndebounce = \"soon\"", "decode toml"},
		{"bad feeding time", "feeding_time = \"25:00\"", "feeding_time"},
		{"bad timezone", "timezone = \"Mars/Olympus\"", "timezone"},
		{"bad melody", "feed_alert = \"H9\"", "feed_alert"},
		{"negative buckets", "[buckets]\ncount = -1", "buckets.count"},
		{"negative debounce", "[timing]\ndebounce = \"-1s\"", "timing.debounce"},
		{"duplicate pin", "[pins]\nextend = 16", "both use line 16"},
		{"mdns without http", "[http]\naddr = \"\"\nmdns = true", "http.mdns"},
		{"queue too shallow", "[timing]\nqueue_depth = 7", "timing.queue_depth"},
		{"queue too deep", "[timing]\nqueue_depth = 500", "timing.queue_depth"},
		{"line 0 twice", "[pins]\nextend = 0\nretract = 0", "both use line 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeder.toml")
	if err := os.WriteFile(path, []byte("feeding_time = \"07:15\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.FeedingTime != "07:15" {
		t.Errorf("FeedingTime: got %q", c.FeedingTime)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.FeedingTime != DefaultFeedingTime {
		t.Errorf("FeedingTime: got %q", c.FeedingTime)
	}
}

func TestLoadInvalidFileNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("feeding_time = \"noon\"\n"), 0o644)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("error should name the file, got %v", err)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	if d.D() != 90*time.Second {
		t.Errorf("got %v", d.D())
	}
	text, _ := d.MarshalText()
	if string(text) != "1m30s" {
		t.Errorf("MarshalText: got %q", text)
	}
}

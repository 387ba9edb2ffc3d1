// Package config loads the daemon configuration from a TOML file.
package config

import (
	"encoding"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/sweeney/fish-feeder/internal/feeder"
	"github.com/sweeney/fish-feeder/internal/gpio"
	"github.com/sweeney/fish-feeder/internal/input"
	"github.com/sweeney/fish-feeder/internal/logic"
	"github.com/sweeney/fish-feeder/internal/mqtt"
	"github.com/sweeney/fish-feeder/internal/schedule"
	"github.com/sweeney/fish-feeder/internal/tone"
)

// DefaultPath is where the daemon looks for its configuration.
const DefaultPath = "/etc/fish-feeder.toml"

// Bounds for timing.queue_depth.
const (
	MinQueueDepth = 8
	MaxQueueDepth = 16
)

// Defaults for settings that live outside the component packages.
const (
	DefaultFeedingTime      = "08:00"
	DefaultBucketCount      = 6
	DefaultStepsPerBucket   = 580
	DefaultBroker           = "tcp://192.168.1.200:1883"
	DefaultHeartbeat        = 15 * time.Minute
	DefaultHTTPAddr         = ":80"
	DefaultRestartDelay     = 10 * time.Second
	DefaultMDNSInstanceName = "fish-feeder"
)

// Config is the daemon configuration.
type Config struct {
	// FeedingTime is the local time of day to feed, as "HH:MM".
	FeedingTime string `toml:"feeding_time"`
	// Timezone is an IANA zone name used to interpret FeedingTime.
	// Empty means the system zone.
	Timezone string `toml:"timezone"`
	// ManualExtend lets the extend button advance one bucket.
	ManualExtend bool `toml:"manual_extend"`
	// FeedAlert is the melody played after a scheduled feed.
	FeedAlert string `toml:"feed_alert"`
	// RestartDelay is how long to wait before exiting on a fatal startup
	// error.
	RestartDelay Duration `toml:"restart_delay"`

	Buckets BucketsConfig `toml:"buckets"`
	Timing  TimingConfig  `toml:"timing"`
	Pins    PinsConfig    `toml:"pins"`
	NTP     NTPConfig     `toml:"ntp"`
	MQTT    MQTTConfig    `toml:"mqtt"`
	HTTP    HTTPConfig    `toml:"http"`
}

// BucketsConfig is the bucket wheel geometry, in stepper steps.
type BucketsConfig struct {
	Count            int `toml:"count"`
	StepsPerBucket   int `toml:"steps_per_bucket"`
	FirstBucketSteps int `toml:"first_bucket_steps"`
}

// TimingConfig holds the loop periods and cooldowns.
type TimingConfig struct {
	StepPeriod     Duration `toml:"step_period"`
	Debounce       Duration `toml:"debounce"`
	TonePoll       Duration `toml:"tone_poll"`
	SchedulePeriod Duration `toml:"schedule_period"`
	ResyncCooldown Duration `toml:"resync_cooldown"`
	QueueDepth     int      `toml:"queue_depth"`
}

// PinsConfig holds GPIO line offsets.
type PinsConfig struct {
	Chip    string `toml:"chip"`
	Step    [4]int `toml:"step"`
	Extend  int    `toml:"extend"`
	Retract int    `toml:"retract"`
	Limit   int    `toml:"limit"`
	Buzzer  int    `toml:"buzzer"`
}

// NTPConfig configures clock synchronization.
type NTPConfig struct {
	Server   string   `toml:"server"`
	Timeout  Duration `toml:"timeout"`
	Attempts int      `toml:"attempts"`
}

// MQTTConfig configures telemetry.
type MQTTConfig struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
	// Heartbeat is the interval between status heartbeats; 0 disables them.
	Heartbeat Duration `toml:"heartbeat"`
	// Disabled turns telemetry off entirely.
	Disabled bool `toml:"disabled"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `toml:"addr"`
	// MDNS advertises the server on the local network.
	MDNS     bool   `toml:"mdns"`
	Instance string `toml:"instance"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	c.applyOptionalDefaults(nil)
	return c
}

// Duration is a time.Duration that can be parsed from TOML.
type Duration time.Duration

var (
	_ encoding.TextUnmarshaler = (*Duration)(nil)
	_ encoding.TextMarshaler   = (*Duration)(nil)
)

func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// Parse reads a configuration from r, fills in defaults and validates it.
func Parse(r io.Reader) (*Config, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode toml")
	}
	var c Config
	if err := tree.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode toml")
	}
	c.applyDefaults()
	c.applyOptionalDefaults(tree)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the configuration file at path. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// applyOptionalDefaults fills settings whose zero value is meaningful (a
// disabled feature or GPIO line 0), unless tree sets them explicitly.
func (c *Config) applyOptionalDefaults(tree *toml.Tree) {
	has := func(key string) bool { return tree != nil && tree.Has(key) }

	pins := gpio.DefaultPins()
	if !has("pins.step") {
		c.Pins.Step = pins.Step
	}
	for _, p := range []struct {
		key  string
		line *int
		def  int
	}{
		{"pins.extend", &c.Pins.Extend, pins.Extend},
		{"pins.retract", &c.Pins.Retract, pins.Retract},
		{"pins.limit", &c.Pins.Limit, pins.Limit},
		{"pins.buzzer", &c.Pins.Buzzer, pins.Buzzer},
	} {
		if !has(p.key) {
			*p.line = p.def
		}
	}

	if !has("mqtt.heartbeat") {
		c.MQTT.Heartbeat = Duration(DefaultHeartbeat)
	}
	if !has("http.addr") {
		c.HTTP.Addr = DefaultHTTPAddr
	}
}

// applyDefaults fills zero values.
func (c *Config) applyDefaults() {
	setString(&c.FeedingTime, DefaultFeedingTime)
	setString(&c.FeedAlert, tone.DefaultFeedAlert)
	setDuration(&c.RestartDelay, DefaultRestartDelay)

	setInt(&c.Buckets.Count, DefaultBucketCount)
	setInt(&c.Buckets.StepsPerBucket, DefaultStepsPerBucket)
	setInt(&c.Buckets.FirstBucketSteps, c.Buckets.StepsPerBucket)

	setDuration(&c.Timing.StepPeriod, feeder.DefaultStepPeriod)
	setDuration(&c.Timing.Debounce, input.DefaultCooldown)
	setDuration(&c.Timing.TonePoll, tone.DefaultPoll)
	setDuration(&c.Timing.SchedulePeriod, schedule.DefaultPeriod)
	setDuration(&c.Timing.ResyncCooldown, schedule.DefaultResyncCooldown)
	setInt(&c.Timing.QueueDepth, input.DefaultDepth)

	setString(&c.Pins.Chip, gpio.DefaultPins().Chip)

	setString(&c.NTP.Server, schedule.DefaultNTPServer)
	setDuration(&c.NTP.Timeout, schedule.DefaultNTPTimeout)
	setInt(&c.NTP.Attempts, schedule.DefaultNTPAttempts)

	setString(&c.MQTT.Broker, DefaultBroker)
	setString(&c.MQTT.ClientID, mqtt.DefaultClientID)

	setString(&c.HTTP.Instance, DefaultMDNSInstanceName)
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *Duration, def time.Duration) {
	if *v == 0 {
		*v = Duration(def)
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if _, err := logic.ParseClock(c.FeedingTime); err != nil {
		return errors.Wrap(err, "feeding_time")
	}
	if _, err := c.Location(); err != nil {
		return errors.Wrap(err, "timezone")
	}
	if _, err := tone.FeedAlert(c.FeedAlert); err != nil {
		return errors.Wrap(err, "feed_alert")
	}

	if c.Buckets.Count < 1 {
		return errors.New("buckets.count must be at least 1")
	}
	if c.Buckets.StepsPerBucket < 1 || c.Buckets.FirstBucketSteps < 1 {
		return errors.New("bucket step counts must be positive")
	}

	for name, d := range map[string]Duration{
		"timing.step_period":     c.Timing.StepPeriod,
		"timing.debounce":        c.Timing.Debounce,
		"timing.tone_poll":       c.Timing.TonePoll,
		"timing.schedule_period": c.Timing.SchedulePeriod,
		"timing.resync_cooldown": c.Timing.ResyncCooldown,
		"ntp.timeout":            c.NTP.Timeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.MQTT.Heartbeat < 0 {
		return errors.New("mqtt.heartbeat must not be negative")
	}
	if c.Timing.QueueDepth < MinQueueDepth || c.Timing.QueueDepth > MaxQueueDepth {
		return fmt.Errorf("timing.queue_depth must be between %d and %d", MinQueueDepth, MaxQueueDepth)
	}

	seen := make(map[int]string)
	lines := map[string]int{
		"step[0]": c.Pins.Step[0],
		"step[1]": c.Pins.Step[1],
		"step[2]": c.Pins.Step[2],
		"step[3]": c.Pins.Step[3],
		"extend":  c.Pins.Extend,
		"retract": c.Pins.Retract,
		"limit":   c.Pins.Limit,
		"buzzer":  c.Pins.Buzzer,
	}
	for name, line := range lines {
		if line < 0 {
			return fmt.Errorf("pins.%s: negative line %d", name, line)
		}
		if other, ok := seen[line]; ok {
			return fmt.Errorf("pins.%s and pins.%s both use line %d", name, other, line)
		}
		seen[line] = name
	}

	if c.HTTP.MDNS && c.HTTP.Addr == "" {
		return errors.New("http.mdns requires http.addr")
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// FeedingMinute returns the feeding time as minutes past midnight.
func (c *Config) FeedingMinute() int {
	m, _ := logic.ParseClock(c.FeedingTime)
	return m
}

// Geometry returns the bucket wheel geometry.
func (c *Config) Geometry() logic.Geometry {
	return logic.Geometry{
		BucketCount:      c.Buckets.Count,
		StepsPerBucket:   c.Buckets.StepsPerBucket,
		FirstBucketSteps: c.Buckets.FirstBucketSteps,
	}
}

// GPIOPins returns the line assignment.
func (c *Config) GPIOPins() gpio.Pins {
	return gpio.Pins{
		Chip:    c.Pins.Chip,
		Step:    c.Pins.Step,
		Extend:  c.Pins.Extend,
		Retract: c.Pins.Retract,
		Limit:   c.Pins.Limit,
		Buzzer:  c.Pins.Buzzer,
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/fish-feeder/internal/logic"
	"github.com/sweeney/fish-feeder/internal/mqtt"
	"github.com/sweeney/fish-feeder/internal/status"
)

// statusPeriod is how often the status tracker is refreshed.
const statusPeriod = 250 * time.Millisecond

// errShutdown ends the task group after a signal.
var errShutdown = errors.New("shutdown requested")

// sources reads the live state of the other tasks.
type sources struct {
	actuator func() logic.ActuatorState
	tone     func() status.ToneInfo
	schedule func() status.ScheduleInfo
}

// telemetry publishes feeder events and system lifecycle events, and keeps the
// status tracker current.
type telemetry struct {
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus // nil when telemetry is disabled
	tracker   *status.Tracker
	sources   sources
	now       func() time.Time
	logger    *slog.Logger
}

// run publishes STARTUP, then handles events and ticks until a signal arrives
// (SHUTDOWN is published and errShutdown returned) or ctx is canceled by a
// failing task (SHUTDOWN with reason FAILURE).
func (t *telemetry) run(ctx context.Context, events <-chan logic.Event, tick, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	t.refresh()
	if net := readNetworkInfo(); net != nil {
		t.tracker.SetNetwork(net)
	}
	t.publishSystem("STARTUP", "", true)

	for {
		select {
		case s := <-sig:
			t.logger.Info("received signal, shutting down", "signal", s)
			t.drain(events)
			t.publishSystem("SHUTDOWN", signalName(s), true)
			return errShutdown

		case <-ctx.Done():
			t.drain(events)
			t.publishSystem("SHUTDOWN", "FAILURE", true)
			return ctx.Err()

		case ev := <-events:
			t.handle(ev)

		case <-tick:
			t.refresh()

		case <-heartbeat:
			t.refresh()
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				t.tracker.SetNetwork(net)
			}
			snap := t.tracker.Snapshot()
			t.logger.Info("heartbeat",
				"uptime", snap.Uptime().Truncate(time.Second),
				"feeds", snap.Counts.Feeds,
				"position", snap.Actuator.Position,
				"target", snap.Actuator.Target)
			t.publishSystem("HEARTBEAT", "", false)
		}
	}
}

func (t *telemetry) handle(ev logic.Event) {
	t.logger.Info("event", "type", ev.Type, "position", ev.Position, "target", ev.Target, "buckets", ev.Buckets)
	t.tracker.CountEvent(ev.Type)
	if err := t.publisher.Publish(ev); err != nil {
		// Don't crash on publish failure
		t.logger.Warn("publish error", "event", ev.Type, "error", err)
	}
}

// drain publishes events already queued so the last feed is not lost on exit.
func (t *telemetry) drain(events <-chan logic.Event) {
	for {
		select {
		case ev := <-events:
			t.handle(ev)
		default:
			return
		}
	}
}

func (t *telemetry) refresh() {
	t.tracker.Update(t.sources.actuator(), t.sources.tone(), t.sources.schedule())
	if t.conn != nil {
		t.tracker.SetMQTTConnected(t.conn.IsConnected())
		t.tracker.SetMQTTBuffered(t.conn.Buffered())
	}
}

func (t *telemetry) publishSystem(event, reason string, retained bool) {
	t.refresh()
	snap := t.tracker.Snapshot()
	err := t.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  t.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		t.logger.Warn("failed to publish system event", "event", event, "error", err)
		return
	}
	t.logger.Debug("published system event", "event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

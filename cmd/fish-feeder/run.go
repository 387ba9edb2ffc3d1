package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/fish-feeder/internal/config"
	"github.com/sweeney/fish-feeder/internal/feeder"
	"github.com/sweeney/fish-feeder/internal/gpio"
	"github.com/sweeney/fish-feeder/internal/input"
	"github.com/sweeney/fish-feeder/internal/logic"
	"github.com/sweeney/fish-feeder/internal/mqtt"
	"github.com/sweeney/fish-feeder/internal/schedule"
	"github.com/sweeney/fish-feeder/internal/status"
	"github.com/sweeney/fish-feeder/internal/tone"
	"github.com/sweeney/fish-feeder/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the feeder daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fatal(config.DefaultRestartDelay, "load config", err)
		}

		d, err := newDaemon(cfg)
		if err != nil {
			return fatal(cfg.RestartDelay.D(), "start daemon", err)
		}
		defer d.Close()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		return d.Run(context.Background(), sigCh)
	},
}

// fatal logs a startup failure and waits before returning it, so the
// supervisor does not restart the daemon in a tight loop.
func fatal(delay time.Duration, what string, err error) error {
	logger.Error("startup failed, exiting after delay", "step", what, "error", err, "delay", delay)
	time.Sleep(delay)
	return fmt.Errorf("%s: %w", what, err)
}

// daemon is the wired set of tasks making up the feeder.
type daemon struct {
	cfg *config.Config

	stepper  gpio.Stepper
	buttons  gpio.Buttons
	waveform gpio.Waveform

	queue      *input.Queue
	controller *feeder.Controller
	engine     *tone.Engine
	clock      *schedule.NTPClock
	scheduler  *schedule.Scheduler
	publisher  *mqtt.RealPublisher
	tracker    *status.Tracker
	server     *web.Server
	events     chan logic.Event
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{cfg: cfg, events: make(chan logic.Event, 32)}
	if err := d.init(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *daemon) init() error {
	cfg := d.cfg

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	alert, err := tone.FeedAlert(cfg.FeedAlert)
	if err != nil {
		return err
	}
	pins := cfg.GPIOPins()

	stepper, err := gpio.NewRealStepper(pins)
	if err != nil {
		return fmt.Errorf("init stepper: %w", err)
	}
	d.stepper = stepper

	waveform, err := gpio.NewRealWaveform(pins, logger.With("component", "gpio"))
	if err != nil {
		return fmt.Errorf("init buzzer: %w", err)
	}
	d.waveform = waveform

	d.queue = input.NewQueue(cfg.Timing.QueueDepth, logger.With("component", "input"))
	buttons, err := gpio.NewRealButtons(pins, d.queue.Push)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}
	d.buttons = buttons

	dispatcher := input.NewDispatcher(cfg.Timing.Debounce.D(), buttons, cfg.ManualExtend, logger.With("component", "input"))
	d.controller = feeder.New(cfg.Geometry(), stepper, d.queue, dispatcher, d.events, time.Now, logger.With("component", "feeder"))
	d.engine = tone.New(waveform, time.Now, logger.With("component", "tone"))

	d.clock = schedule.NewNTPClock(cfg.NTP.Server, cfg.NTP.Timeout.D(), cfg.NTP.Attempts, loc)
	d.scheduler = schedule.New(schedule.Config{
		FeedingMinute:  cfg.FeedingMinute(),
		ResyncCooldown: cfg.Timing.ResyncCooldown.D(),
		Alert:          alert,
	}, d.clock, d.controller, d.engine, time.Now, d.events, logger.With("component", "schedule"))

	if !cfg.MQTT.Disabled {
		publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, logger.With("component", "mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		d.publisher = publisher
	}

	d.tracker = status.NewTracker(time.Now(), statusConfig(cfg))
	if cfg.HTTP.Addr != "" {
		d.server = web.New(cfg.HTTP.Addr, d.tracker, logger.With("component", "web"))
	}
	return nil
}

func statusConfig(cfg *config.Config) status.Config {
	broker := cfg.MQTT.Broker
	if cfg.MQTT.Disabled {
		broker = ""
	}
	return status.Config{
		Buckets:        cfg.Buckets.Count,
		StepsPerBucket: cfg.Buckets.StepsPerBucket,
		StepPeriodMs:   cfg.Timing.StepPeriod.D().Milliseconds(),
		DebounceMs:     cfg.Timing.Debounce.D().Milliseconds(),
		HeartbeatMs:    cfg.MQTT.Heartbeat.D().Milliseconds(),
		ManualExtend:   cfg.ManualExtend,
		Timezone:       cfg.Timezone,
		NTPServer:      cfg.NTP.Server,
		Broker:         broker,
		HTTPAddr:       cfg.HTTP.Addr,
	}
}

// Run starts every task and blocks until a signal arrives or a task fails.
func (d *daemon) Run(ctx context.Context, sig <-chan os.Signal) error {
	errg, ctx := errgroup.WithContext(ctx)

	stepTicker := time.NewTicker(d.cfg.Timing.StepPeriod.D())
	defer stepTicker.Stop()
	errg.Go(func() error {
		return d.controller.Run(ctx, stepTicker.C)
	})

	toneTicker := time.NewTicker(d.cfg.Timing.TonePoll.D())
	defer toneTicker.Stop()
	errg.Go(func() error {
		return d.engine.Run(ctx, toneTicker.C)
	})

	schedTicker := time.NewTicker(d.cfg.Timing.SchedulePeriod.D())
	defer schedTicker.Stop()
	errg.Go(func() error {
		return d.scheduler.Run(ctx, schedTicker.C)
	})

	var publisher mqtt.Publisher = nopPublisher{}
	var conn mqtt.ConnectionStatus
	if d.publisher != nil {
		publisher, conn = d.publisher, d.publisher
	}
	t := &telemetry{
		publisher: publisher,
		conn:      conn,
		tracker:   d.tracker,
		sources: sources{
			actuator: d.controller.State,
			tone:     func() status.ToneInfo { return status.ToneInfo(d.engine.State()) },
			schedule: func() status.ScheduleInfo { return scheduleInfo(d.scheduler.Status()) },
		},
		now:    time.Now,
		logger: logger.With("component", "telemetry"),
	}
	statusTicker := time.NewTicker(statusPeriod)
	defer statusTicker.Stop()
	var heartbeat <-chan time.Time
	if hb := d.cfg.MQTT.Heartbeat.D(); hb > 0 {
		hbTicker := time.NewTicker(hb)
		defer hbTicker.Stop()
		heartbeat = hbTicker.C
	}
	errg.Go(func() error {
		return t.run(ctx, d.events, statusTicker.C, heartbeat, sig)
	})

	if d.server != nil {
		errg.Go(func() error {
			logger.Info("http status server listening", "addr", d.cfg.HTTP.Addr)
			if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		errg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return d.server.Shutdown(shutdownCtx)
		})

		if d.cfg.HTTP.MDNS {
			errg.Go(func() error {
				// mDNS is a convenience; failing to advertise is not fatal.
				if err := web.Advertise(ctx, d.cfg.HTTP.Instance, d.cfg.HTTP.Addr, logger.With("component", "mdns")); err != nil {
					logger.Warn("mdns advertisement failed", "error", err)
				}
				return nil
			})
		}
	}

	d.engine.PlayPattern(tone.Startup)
	logger.Info("started",
		"feeding_time", d.cfg.FeedingTime,
		"buckets", d.cfg.Buckets.Count,
		"step_period", d.cfg.Timing.StepPeriod.D(),
		"broker", d.cfg.MQTT.Broker)

	if err := errg.Wait(); err != nil && !errors.Is(err, errShutdown) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func scheduleInfo(s schedule.Status) status.ScheduleInfo {
	return status.ScheduleInfo{
		FeedingTime: s.FeedingTime,
		LastFeed:    s.LastFeed,
		LastResync:  s.LastResync,
		ResyncOK:    s.ResyncOK,
	}
}

// Close releases the hardware and the broker connection.
func (d *daemon) Close() {
	if d.publisher != nil {
		d.publisher.Close()
	}
	// Buttons first so no more edges arrive while the outputs are released.
	devices := []struct {
		name string
		c    interface{ Close() error }
	}{
		{"buttons", d.buttons},
		{"stepper", d.stepper},
		{"waveform", d.waveform},
	}
	for _, dev := range devices {
		if dev.c == nil {
			continue
		}
		if err := dev.c.Close(); err != nil {
			logger.Warn("close hardware", "device", dev.name, "error", err)
		}
	}
}

// nopPublisher is used when telemetry is disabled.
type nopPublisher struct{}

func (nopPublisher) Publish(logic.Event) error            { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Close() error                         { return nil }

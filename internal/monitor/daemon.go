// Package monitor wires the nearwatch daemon together: live state,
// accumulator, sensor sampler, day rollover, overlay renderer, settings
// persistence and the local HTTP endpoint.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/nearwatch/internal/config"
	"git.home.luguber.info/inful/nearwatch/internal/history"
	"git.home.luguber.info/inful/nearwatch/internal/ledger"
	"git.home.luguber.info/inful/nearwatch/internal/logfields"
	"git.home.luguber.info/inful/nearwatch/internal/metrics"
	"git.home.luguber.info/inful/nearwatch/internal/overlay"
	"git.home.luguber.info/inful/nearwatch/internal/prefs"
	"git.home.luguber.info/inful/nearwatch/internal/rollover"
	"git.home.luguber.info/inful/nearwatch/internal/sched"
	"git.home.luguber.info/inful/nearwatch/internal/sensor"
	"git.home.luguber.info/inful/nearwatch/internal/state"
	"git.home.luguber.info/inful/nearwatch/internal/tracker"
)

// Options carries the platform collaborators the daemon cannot construct
// itself. Any of them may be nil; the corresponding subsystem then stays
// off.
type Options struct {
	// ConfigPath enables live configuration reloading when set.
	ConfigPath string
	// Source and Detector together enable distance sampling.
	Source   sensor.FrameSource
	Detector sensor.Detector
	// WindowHost enables the overlay renderer.
	WindowHost overlay.WindowHost
	// OnTap is the overlay foreground action.
	OnTap func()
}

// Daemon owns every long-lived component of the monitor.
type Daemon struct {
	cfg      *config.Config
	store    *state.Store
	recorder *metrics.PrometheusRecorder

	prefsBackend prefs.Backend
	days         ledger.Store

	scheduler  *sched.Scheduler
	tracker    *tracker.Tracker
	sampler    *sensor.Sampler
	rollover   *rollover.Scheduler
	aggregator *history.Aggregator
	overlay    *overlay.Controller
	server     *HTTPServer
	publisher  *EventPublisher
	watcher    *ConfigWatcher

	workers workerGroup
	cancel  context.CancelFunc
}

// New assembles a daemon from configuration. Storage is opened here;
// nothing starts running until Start.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	prefsBackend, err := prefs.NewSQLiteBackend(filepath.Join(cfg.DataDir, "prefs.db"))
	if err != nil {
		return nil, fmt.Errorf("open preferences store: %w", err)
	}
	days, err := ledger.NewSQLiteStore(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		prefsBackend.Close()
		return nil, fmt.Errorf("open history ledger: %w", err)
	}

	scheduler, err := sched.NewScheduler()
	if err != nil {
		prefsBackend.Close()
		days.Close()
		return nil, err
	}

	d := &Daemon{
		cfg:          cfg,
		store:        state.NewStore(state.Defaults()),
		recorder:     metrics.NewPrometheusRecorder(prom.NewRegistry()),
		prefsBackend: prefsBackend,
		days:         days,
		scheduler:    scheduler,
	}

	d.tracker = tracker.New(d.store, prefs.NewNamespace(prefsBackend, "screen_time"),
		scheduler, d.recorder, cfg.Tracker.TickInterval, cfg.Tracker.PersistEveryTicks)

	// Event publishing is optional and its broker may be unreachable at
	// startup; the monitor runs fine without it.
	if cfg.Events.Enabled {
		pub, err := NewEventPublisher(cfg.Events)
		if err != nil {
			slog.Warn("Event publishing unavailable",
				logfields.Component("daemon"), logfields.Error(err))
		} else {
			d.publisher = pub
		}
	}
	var onEvent func(rollover.Event)
	if d.publisher != nil {
		onEvent = d.publisher.Publish
	}
	d.rollover = rollover.New(d.store, d.tracker, days, scheduler, d.recorder, onEvent)

	d.aggregator = history.NewAggregator(days, cfg.History.WeekStart())

	if opts.Source != nil && opts.Detector != nil {
		d.sampler = sensor.NewSampler(d.store, opts.Source, opts.Detector, d.recorder, cfg.Sensor)
	}
	if opts.WindowHost != nil {
		d.overlay = overlay.NewController(d.store, opts.WindowHost, cfg.Overlay, opts.OnTap)
	}
	if cfg.Server.Enabled {
		d.server = NewHTTPServer(cfg.Server, d.store, d.tracker, d.aggregator, d.recorder.Handler())
	}
	if opts.ConfigPath != "" {
		watcher, err := NewConfigWatcher(opts.ConfigPath, d.applyReload)
		if err != nil {
			slog.Warn("Configuration watching unavailable",
				logfields.Component("daemon"), logfields.Error(err))
		} else {
			d.watcher = watcher
		}
	}

	return d, nil
}

// Store exposes the live state, primarily for the host UI layer.
func (d *Daemon) Store() *state.Store { return d.store }

// Aggregator exposes the history rollups.
func (d *Daemon) Aggregator() *history.Aggregator { return d.aggregator }

// Overlay exposes the overlay controller, or nil when no window host was
// provided.
func (d *Daemon) Overlay() *overlay.Controller { return d.overlay }

// Start brings every subsystem up. On error the daemon is left stopped.
func (d *Daemon) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.tracker.LoadInitialState(ctx, false)
	d.store.Update(func(s state.Settings) state.Settings {
		s.OverlayEnabled = d.cfg.Overlay.Enabled
		return s
	})

	d.scheduler.Start(runCtx)
	if err := d.tracker.Start(); err != nil {
		d.stopStarted(ctx)
		return fmt.Errorf("start tracker: %w", err)
	}
	d.rollover.Arm(ctx)

	if d.sampler != nil && d.cfg.Sensor.Enabled {
		if err := d.sampler.Start(); err != nil {
			// Camera problems degrade to time-only tracking.
			slog.Warn("Distance sampling unavailable",
				logfields.Component("daemon"), logfields.Error(err))
		} else {
			d.workers.Go(func() { d.tracker.RunViolationWatcher(runCtx) })
		}
	}

	d.workers.Go(func() { newSettingsPersister(d.store, d.tracker, 0).run(runCtx) })
	if d.overlay != nil {
		d.workers.Go(func() { d.overlay.Run(runCtx) })
	}

	if d.server != nil {
		if err := d.server.Start(runCtx); err != nil {
			d.stopStarted(ctx)
			return err
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Start(runCtx); err != nil {
			slog.Warn("Configuration watcher failed to start",
				logfields.Component("daemon"), logfields.Error(err))
		}
	}

	slog.Info("Monitor started", logfields.Component("daemon"))
	return nil
}

// Stop shuts the daemon down in reverse dependency order: producers stop
// before the state store and storage close underneath them.
func (d *Daemon) Stop(ctx context.Context) error {
	var errs []error

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.server != nil {
		if err := d.server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if d.sampler != nil {
		d.sampler.Destroy()
	}
	d.rollover.Disarm()
	d.tracker.Stop()

	if d.cancel != nil {
		d.cancel()
	}
	if err := d.workers.StopAndWait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker shutdown: %w", err))
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}

	if d.publisher != nil {
		d.publisher.Close()
	}
	d.store.Close()
	if err := d.days.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history ledger: %w", err))
	}
	if err := d.prefsBackend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close preferences store: %w", err))
	}

	slog.Info("Monitor stopped", logfields.Component("daemon"))
	return errors.Join(errs...)
}

// stopStarted tears down after a partial Start.
func (d *Daemon) stopStarted(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		slog.Warn("Cleanup after failed start",
			logfields.Component("daemon"), logfields.Error(err))
	}
}

// applyReload pushes runtime-tunable configuration into the live state.
// Storage paths, listen addresses and overlay geometry are fixed for the
// process lifetime; changing them needs a restart.
func (d *Daemon) applyReload(newCfg *config.Config) {
	d.cfg.Overlay.Enabled = newCfg.Overlay.Enabled
	d.store.Update(func(s state.Settings) state.Settings {
		s.OverlayEnabled = newCfg.Overlay.Enabled
		return s
	})
	slog.Info("Runtime configuration applied",
		logfields.Component("daemon"),
		slog.Bool("overlay_enabled", newCfg.Overlay.Enabled))
}

// Package tracker owns the usage-time accumulator: a once-per-second tick
// that advances the live counter, best-effort persistence of the running
// total, and the daily distance-violation counter.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/nearwatch/internal/logfields"
	"git.home.luguber.info/inful/nearwatch/internal/metrics"
	"git.home.luguber.info/inful/nearwatch/internal/prefs"
	"git.home.luguber.info/inful/nearwatch/internal/sched"
	"git.home.luguber.info/inful/nearwatch/internal/state"
)

// Preference keys for the screen_time namespace.
const (
	KeyAccumulatedSeconds = "accumulated_seconds"
	KeyDistanceViolations = "distance_violations_today"
	KeyTargetHours        = "target_hours"
	KeyTargetMinutes      = "target_minutes"
	KeyDistanceTarget     = "distance_target_cm"
	KeyWindowTransparency = "window_transparency"
	KeyWindowTintHue      = "window_tint_hue"
	KeyFontColor          = "font_color"
	KeyWindowShape        = "window_shape"
)

// Tracker is the accumulator producer. One instance owns the screen_time
// preference namespace; nothing else writes those keys.
type Tracker struct {
	store        *state.Store
	prefs        *prefs.Namespace
	scheduler    *sched.Scheduler
	recorder     metrics.Recorder
	tickInterval time.Duration
	persistEvery uint64

	mu      sync.Mutex
	running bool
	jobID   uuid.UUID
}

// New creates a tracker. recorder may be the Noop recorder.
func New(store *state.Store, ns *prefs.Namespace, scheduler *sched.Scheduler, recorder metrics.Recorder, tickInterval time.Duration, persistEveryTicks int) *Tracker {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if persistEveryTicks <= 0 {
		persistEveryTicks = 5
	}
	return &Tracker{
		store:        store,
		prefs:        ns,
		scheduler:    scheduler,
		recorder:     recorder,
		tickInterval: tickInterval,
		persistEvery: uint64(persistEveryTicks),
	}
}

// Start begins the periodic tick. Idempotent: calling while already
// running is a no-op.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	id, err := t.scheduler.ScheduleEvery("usage-tick", t.tickInterval, t.tick)
	if err != nil {
		return err
	}
	t.jobID = id
	t.running = true
	slog.Info("Usage tracking started", logfields.Component("tracker"))
	return nil
}

// Stop cancels the tick and forces one final persist.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.scheduler.Remove(t.jobID)
	t.running = false

	t.persist(context.Background(), t.store.Current().AccumulatedSeconds)
	slog.Info("Usage tracking stopped", logfields.Component("tracker"))
}

// Running reports whether the tick loop is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// tick advances the live counter by one second and persists every Nth
// second. The in-memory counter stays authoritative when persistence
// fails.
func (t *Tracker) tick() {
	snap := t.store.Update(func(s state.Settings) state.Settings {
		s.AccumulatedSeconds++
		return s
	})
	t.recorder.IncStateCommit("accumulator")
	t.recorder.SetAccumulatedSeconds(snap.AccumulatedSeconds)

	if snap.AccumulatedSeconds%t.persistEvery == 0 {
		t.persist(context.Background(), snap.AccumulatedSeconds)
	}
}

func (t *Tracker) persist(ctx context.Context, seconds uint64) {
	if err := t.prefs.PutUint64(ctx, KeyAccumulatedSeconds, seconds); err != nil {
		t.recorder.IncPersistFailure("prefs")
		slog.Warn("Persist accumulated seconds failed",
			logfields.Component("tracker"), logfields.Error(err))
	}
}

// Reset zeroes the accumulated time in both the store and durable storage
// and clears today's violation counter. Serialized against RecordViolation
// so a violation landing at the boundary is either counted before the
// archive read or lands cleanly in the new day.
func (t *Tracker) Reset(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store.Update(func(s state.Settings) state.Settings {
		s.AccumulatedSeconds = 0
		return s
	})
	t.recorder.SetAccumulatedSeconds(0)
	if err := t.prefs.PutUint64(ctx, KeyAccumulatedSeconds, 0); err != nil {
		t.recorder.IncPersistFailure("prefs")
		slog.Warn("Reset accumulated seconds failed",
			logfields.Component("tracker"), logfields.Error(err))
	}
	if err := t.prefs.PutUint64(ctx, KeyDistanceViolations, 0); err != nil {
		t.recorder.IncPersistFailure("prefs")
		slog.Warn("Reset violation counter failed",
			logfields.Component("tracker"), logfields.Error(err))
	}
}

// RecordViolation increments the daily violation counter and immediately
// persists it. The read-modify-write holds t.mu so a concurrent Reset
// cannot interleave between the read and the write.
func (t *Tracker) RecordViolation(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.prefs.Uint64(ctx, KeyDistanceViolations, 0)
	if err := t.prefs.PutUint64(ctx, KeyDistanceViolations, current+1); err != nil {
		t.recorder.IncPersistFailure("prefs")
		slog.Warn("Persist violation counter failed",
			logfields.Component("tracker"), logfields.Error(err))
	}
	t.recorder.IncViolation()
}

// ViolationCount returns how many distance violations were recorded today.
func (t *Tracker) ViolationCount(ctx context.Context) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint32(t.prefs.Uint64(ctx, KeyDistanceViolations, 0))
}

// LoadInitialState seeds the live state from durable storage. When the
// tracker is already active in this process the persisted counter is
// behind the live one, so the load is skipped unless forced.
func (t *Tracker) LoadInitialState(ctx context.Context, force bool) {
	if !force && t.store.Current().TrackerActive {
		return
	}

	t.store.Update(func(s state.Settings) state.Settings {
		s.AccumulatedSeconds = t.prefs.Uint64(ctx, KeyAccumulatedSeconds, 0)
		s.TargetHours = uint8(t.prefs.Uint64(ctx, KeyTargetHours, uint64(s.TargetHours)))
		s.TargetMinutes = uint8(t.prefs.Uint64(ctx, KeyTargetMinutes, uint64(s.TargetMinutes)))
		s.DistanceTargetCm = uint16(t.prefs.Uint64(ctx, KeyDistanceTarget, uint64(s.DistanceTargetCm)))
		s.WindowTransparency = t.prefs.Float64(ctx, KeyWindowTransparency, s.WindowTransparency)
		s.WindowTintHue = t.prefs.Float64(ctx, KeyWindowTintHue, s.WindowTintHue)
		s.FontColor = uint32(t.prefs.Uint64(ctx, KeyFontColor, uint64(s.FontColor)))
		s.WindowShape = state.WindowShape(t.prefs.String(ctx, KeyWindowShape, string(s.WindowShape)))
		return s
	})
}

// PersistSettings writes the user-tunable fields of snap to durable
// storage. Called by the settings persister subscriber; the accumulated
// counter is excluded because the tick loop owns its persistence cadence.
func (t *Tracker) PersistSettings(ctx context.Context, snap state.Settings) {
	puts := []struct {
		key string
		err error
	}{
		{KeyTargetHours, t.prefs.PutUint64(ctx, KeyTargetHours, uint64(snap.TargetHours))},
		{KeyTargetMinutes, t.prefs.PutUint64(ctx, KeyTargetMinutes, uint64(snap.TargetMinutes))},
		{KeyDistanceTarget, t.prefs.PutUint64(ctx, KeyDistanceTarget, uint64(snap.DistanceTargetCm))},
		{KeyWindowTransparency, t.prefs.PutFloat64(ctx, KeyWindowTransparency, snap.WindowTransparency)},
		{KeyWindowTintHue, t.prefs.PutFloat64(ctx, KeyWindowTintHue, snap.WindowTintHue)},
		{KeyFontColor, t.prefs.PutUint64(ctx, KeyFontColor, uint64(snap.FontColor))},
		{KeyWindowShape, t.prefs.PutString(ctx, KeyWindowShape, string(snap.WindowShape))},
	}
	for _, p := range puts {
		if p.err != nil {
			t.recorder.IncPersistFailure("prefs")
			slog.Warn("Persist setting failed",
				logfields.Component("tracker"),
				slog.String("key", p.key),
				logfields.Error(p.err))
		}
	}
}

package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nearwatch/internal/metrics"
	"git.home.luguber.info/inful/nearwatch/internal/prefs"
	"git.home.luguber.info/inful/nearwatch/internal/sched"
	"git.home.luguber.info/inful/nearwatch/internal/state"
)

func newTracker(t *testing.T) (*Tracker, *state.Store, *prefs.MemoryBackend, *sched.Scheduler) {
	t.Helper()
	store := state.NewStore(state.Defaults())
	backend := prefs.NewMemoryBackend()
	scheduler, err := sched.NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = scheduler.Stop(context.Background()) })

	tr := New(store, prefs.NewNamespace(backend, "screen_time"), scheduler, metrics.NoopRecorder{}, time.Second, 5)
	return tr, store, backend, scheduler
}

func TestStart_IsIdempotent(t *testing.T) {
	tr, _, _, scheduler := newTracker(t)

	require.NoError(t, tr.Start())
	require.NoError(t, tr.Start())
	require.Equal(t, 1, scheduler.Len(), "double Start must not schedule a second tick loop")
	require.True(t, tr.Running())

	tr.Stop()
	require.False(t, tr.Running())
	require.Equal(t, 0, scheduler.Len())
	tr.Stop() // second Stop is a no-op
}

func TestTick_AccumulatesAndPersistsEveryFifth(t *testing.T) {
	ctx := context.Background()
	tr, store, backend, _ := newTracker(t)
	ns := prefs.NewNamespace(backend, "screen_time")

	for i := 0; i < 4; i++ {
		tr.tick()
	}
	require.Equal(t, uint64(4), store.Current().AccumulatedSeconds)
	require.Equal(t, uint64(0), ns.Uint64(ctx, KeyAccumulatedSeconds, 0),
		"no persist before the fifth second")

	tr.tick()
	require.Equal(t, uint64(5), ns.Uint64(ctx, KeyAccumulatedSeconds, 0))

	for i := 0; i < 5; i++ {
		tr.tick()
	}
	require.Equal(t, uint64(10), ns.Uint64(ctx, KeyAccumulatedSeconds, 0))
}

func TestTick_PersistenceFailureKeepsMemoryAuthoritative(t *testing.T) {
	tr, store, backend, _ := newTracker(t)
	backend.FailPuts(errors.New("disk full"))

	for i := 0; i < 10; i++ {
		tr.tick()
	}
	require.Equal(t, uint64(10), store.Current().AccumulatedSeconds,
		"counter must keep advancing through persistence failures")
}

func TestStop_ForcesFinalPersist(t *testing.T) {
	ctx := context.Background()
	tr, _, backend, _ := newTracker(t)
	ns := prefs.NewNamespace(backend, "screen_time")

	require.NoError(t, tr.Start())
	tr.tick()
	tr.tick()
	tr.Stop()

	require.Equal(t, uint64(2), ns.Uint64(ctx, KeyAccumulatedSeconds, 0))
}

func TestReset_ClearsCounterAndViolations(t *testing.T) {
	ctx := context.Background()
	tr, store, backend, _ := newTracker(t)
	ns := prefs.NewNamespace(backend, "screen_time")

	for i := 0; i < 7; i++ {
		tr.tick()
	}
	tr.RecordViolation(ctx)
	tr.RecordViolation(ctx)
	require.Equal(t, uint32(2), tr.ViolationCount(ctx))

	tr.Reset(ctx)
	require.Equal(t, uint64(0), store.Current().AccumulatedSeconds)
	require.Equal(t, uint64(0), ns.Uint64(ctx, KeyAccumulatedSeconds, 99))
	require.Equal(t, uint32(0), tr.ViolationCount(ctx))
}

func TestRecordViolation_SerializedWithReset(t *testing.T) {
	ctx := context.Background()
	tr, _, _, _ := newTracker(t)

	// The watcher and the rollover run on different goroutines; the
	// counter's read-modify-write must not interleave with a reset.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			tr.RecordViolation(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			tr.Reset(ctx)
		}
	}()
	wg.Wait()

	tr.Reset(ctx)
	tr.RecordViolation(ctx)
	tr.RecordViolation(ctx)
	require.Equal(t, uint32(2), tr.ViolationCount(ctx),
		"counter must stay exact once the interleaving settles")
}

func TestLoadInitialState_GuardsAgainstLiveOverwrite(t *testing.T) {
	ctx := context.Background()
	tr, store, backend, _ := newTracker(t)
	ns := prefs.NewNamespace(backend, "screen_time")

	require.NoError(t, ns.PutUint64(ctx, KeyAccumulatedSeconds, 1234))
	require.NoError(t, ns.PutUint64(ctx, KeyTargetMinutes, 45))
	require.NoError(t, ns.PutString(ctx, KeyWindowShape, string(state.ShapePill)))

	tr.LoadInitialState(ctx, false)
	snap := store.Current()
	require.Equal(t, uint64(1234), snap.AccumulatedSeconds)
	require.Equal(t, uint8(45), snap.TargetMinutes)
	require.Equal(t, state.ShapePill, snap.WindowShape)

	// Simulate an active in-process tracker with a fresher counter.
	store.Update(func(s state.Settings) state.Settings {
		s.TrackerActive = true
		s.AccumulatedSeconds = 2000
		return s
	})
	tr.LoadInitialState(ctx, false)
	require.Equal(t, uint64(2000), store.Current().AccumulatedSeconds,
		"unforced load must not rewind a live counter")

	tr.LoadInitialState(ctx, true)
	require.Equal(t, uint64(1234), store.Current().AccumulatedSeconds)
}

func TestPersistSettings_RoundTripsThroughLoad(t *testing.T) {
	ctx := context.Background()
	tr, store, _, _ := newTracker(t)

	snap := store.Current()
	snap.TargetHours = 2
	snap.DistanceTargetCm = 35
	snap.WindowTintHue = 310
	snap.WindowShape = state.ShapeCircle
	tr.PersistSettings(ctx, snap)

	tr.LoadInitialState(ctx, true)
	got := store.Current()
	require.Equal(t, uint8(2), got.TargetHours)
	require.Equal(t, uint16(35), got.DistanceTargetCm)
	require.Equal(t, 310.0, got.WindowTintHue)
	require.Equal(t, state.ShapeCircle, got.WindowShape)
}

func TestViolationWatcher_EdgeTriggered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr, store, _, _ := newTracker(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.RunViolationWatcher(ctx)
	}()

	setDistance := func(cm float64) {
		store.Update(func(s state.Settings) state.Settings {
			s.LiveDistanceCm = cm
			return s
		})
		// The watcher's conflated channel needs a moment to drain.
		time.Sleep(20 * time.Millisecond)
	}

	setDistance(40) // above 25cm target
	setDistance(20) // crossing below: one violation
	setDistance(18) // still below: no new violation
	setDistance(40) // recovered
	setDistance(10) // crossing again: second violation
	setDistance(state.DistanceUnavailable)

	require.Equal(t, uint32(2), tr.ViolationCount(ctx))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not exit on cancel")
	}
}

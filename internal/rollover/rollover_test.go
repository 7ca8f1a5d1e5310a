package rollover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nearwatch/internal/ledger"
	"git.home.luguber.info/inful/nearwatch/internal/metrics"
	"git.home.luguber.info/inful/nearwatch/internal/prefs"
	"git.home.luguber.info/inful/nearwatch/internal/sched"
	"git.home.luguber.info/inful/nearwatch/internal/state"
	"git.home.luguber.info/inful/nearwatch/internal/tracker"
)

// fakeLedger records snapshots in memory and can be told to fail.
type fakeLedger struct {
	mu      sync.Mutex
	records map[string]ledger.DayRecord
	failErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: map[string]ledger.DayRecord{}}
}

func (f *fakeLedger) RecordSnapshot(_ context.Context, date string, deltaSecs uint64, deltaViolations uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	rec := f.records[date]
	rec.Date = date
	rec.ScreenTimeSecs += deltaSecs
	rec.DistanceViolations += deltaViolations
	f.records[date] = rec
	return nil
}

func (f *fakeLedger) GetRecord(_ context.Context, date string) (ledger.DayRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[date]; ok {
		return rec, nil
	}
	return ledger.DayRecord{Date: date}, nil
}

func (f *fakeLedger) Close() error { return nil }

type fixture struct {
	rollover *Scheduler
	store    *state.Store
	tracker  *tracker.Tracker
	days     *fakeLedger
	sched    *sched.Scheduler
	events   []Event
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	scheduler, err := sched.NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = scheduler.Stop(context.Background()) })

	fx := &fixture{
		store: state.NewStore(state.Defaults()),
		days:  newFakeLedger(),
		sched: scheduler,
		clock: time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC),
	}
	fx.tracker = tracker.New(fx.store, prefs.NewNamespace(prefs.NewMemoryBackend(), "screen_time"),
		scheduler, metrics.NoopRecorder{}, time.Second, 5)
	fx.rollover = New(fx.store, fx.tracker, fx.days, scheduler, metrics.NoopRecorder{},
		func(ev Event) { fx.events = append(fx.events, ev) })
	fx.rollover.now = func() time.Time { return fx.clock }
	return fx
}

func TestNextMidnight(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"mid-day",
			time.Date(2024, 3, 15, 13, 45, 12, 0, time.UTC),
			time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			"month boundary",
			time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"year boundary",
			time.Date(2023, 12, 31, 6, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"exactly midnight advances a full day",
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NextMidnight(tc.in))
		})
	}
}

func TestFire_ArchivesEndedDayAndResets(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.store.Update(func(s state.Settings) state.Settings {
		s.AccumulatedSeconds = 5400
		return s
	})
	fx.tracker.RecordViolation(ctx)
	fx.tracker.RecordViolation(ctx)

	fx.rollover.Arm(ctx)
	require.Equal(t, 1, fx.sched.Len())

	fx.clock = time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	fx.rollover.fire(ctx)

	rec, err := fx.days.GetRecord(ctx, "2024-03-15")
	require.NoError(t, err)
	require.Equal(t, uint64(5400), rec.ScreenTimeSecs)
	require.Equal(t, uint32(2), rec.DistanceViolations)

	require.Equal(t, uint64(0), fx.store.Current().AccumulatedSeconds)
	require.Equal(t, uint32(0), fx.tracker.ViolationCount(ctx))

	// The next boundary is armed for the new day.
	require.Equal(t, "2024-03-16", fx.rollover.armedDate)

	require.Len(t, fx.events, 1)
	require.Equal(t, "2024-03-15", fx.events[0].Date)
	require.Equal(t, uint64(5400), fx.events[0].ScreenTimeSecs)
	require.Equal(t, uint32(2), fx.events[0].DistanceViolations)
}

func TestFire_ArchiveFailureStillResetsCounters(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.days.failErr = errors.New("disk full")

	fx.store.Update(func(s state.Settings) state.Settings {
		s.AccumulatedSeconds = 1000
		return s
	})
	fx.rollover.Arm(ctx)
	fx.rollover.fire(ctx)

	require.Equal(t, uint64(0), fx.store.Current().AccumulatedSeconds,
		"the new day must start from zero even when archival fails")
	require.Empty(t, fx.events, "no event for a failed archive")
}

func TestPoll_FiresOnlyOnDateChange(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.store.Update(func(s state.Settings) state.Settings {
		s.AccumulatedSeconds = 300
		return s
	})
	fx.rollover.Arm(ctx)

	fx.rollover.poll(ctx)
	require.Equal(t, uint64(300), fx.store.Current().AccumulatedSeconds,
		"same date: poll must not roll over")

	fx.clock = fx.clock.Add(time.Hour) // 00:30 next day
	fx.rollover.poll(ctx)
	rec, err := fx.days.GetRecord(ctx, "2024-03-15")
	require.NoError(t, err)
	require.Equal(t, uint64(300), rec.ScreenTimeSecs)
	require.Equal(t, uint64(0), fx.store.Current().AccumulatedSeconds)
}

func TestDisarm_ConcurrentWithFire(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.rollover.Arm(ctx)

	// A shutdown can coincide with the midnight fire; both touch the
	// armed job state and must not corrupt it.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 25; i++ {
			fx.rollover.fire(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 25; i++ {
			fx.rollover.Disarm()
		}
	}()
	wg.Wait()

	fx.rollover.Disarm()
	require.Equal(t, "2024-03-15", fx.rollover.armedDate,
		"armed date must stay coherent through the race")
}

func TestDisarm_RemovesPendingJob(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.rollover.Arm(ctx)
	require.Equal(t, 1, fx.sched.Len())
	fx.rollover.Disarm()
	require.Equal(t, 0, fx.sched.Len())
	fx.rollover.Disarm() // idempotent
}

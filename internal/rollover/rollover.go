// Package rollover archives the live counters into the day ledger at each
// local-midnight boundary and resets them for the new day.
package rollover

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/nearwatch/internal/ledger"
	"git.home.luguber.info/inful/nearwatch/internal/logfields"
	"git.home.luguber.info/inful/nearwatch/internal/metrics"
	"git.home.luguber.info/inful/nearwatch/internal/sched"
	"git.home.luguber.info/inful/nearwatch/internal/state"
	"git.home.luguber.info/inful/nearwatch/internal/tracker"
)

// fallbackInterval is the polling cadence used when exact one-shot
// scheduling is unavailable. The rollover then lands up to this long
// after midnight, which the additive ledger tolerates.
const fallbackInterval = time.Minute

// Event describes one completed day rollover, for optional publishing.
type Event struct {
	Date               string    `json:"date"`
	ScreenTimeSecs     uint64    `json:"screen_time_secs"`
	DistanceViolations uint32    `json:"distance_violations"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// Scheduler arms a one-shot job for the next local midnight. When it
// fires, the day that just ended is archived under the date it was armed
// for, the live counters reset, and the next midnight is armed. Arming
// happens on every process start, so a missed boundary (process down over
// midnight) costs at most the unarchived remainder of that day.
type Scheduler struct {
	store    *state.Store
	tracker  *tracker.Tracker
	days     ledger.Store
	sched    *sched.Scheduler
	recorder metrics.Recorder
	onEvent  func(Event)
	now      func() time.Time

	// mu guards jobID and armedDate: Arm/Disarm run on caller
	// goroutines while fire and poll run on scheduler goroutines.
	mu        sync.Mutex
	jobID     uuid.UUID
	armedDate string
}

// New creates a day-boundary scheduler. onEvent may be nil.
func New(store *state.Store, tr *tracker.Tracker, days ledger.Store, s *sched.Scheduler, recorder metrics.Recorder, onEvent func(Event)) *Scheduler {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Scheduler{
		store:    store,
		tracker:  tr,
		days:     days,
		sched:    s,
		recorder: recorder,
		onEvent:  onEvent,
		now:      time.Now,
	}
}

// NextMidnight returns the first instant of the calendar day after t, in
// t's location. time.Date normalizes day+1 across month and year ends and
// resolves DST transitions, so the boundary is always a real local instant.
func NextMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// Arm schedules the rollover for the next midnight. If exact one-shot
// scheduling fails it degrades to a periodic date-change poll.
func (s *Scheduler) Arm(ctx context.Context) {
	now := s.now()
	date := now.Format(ledger.DateFormat)
	at := NextMidnight(now)

	id, err := s.sched.ScheduleAt("day-rollover", at, func() { s.fire(context.Background()) })
	if err != nil {
		slog.Warn("Exact midnight scheduling failed, falling back to polling",
			logfields.Component("rollover"), logfields.Error(err))
		id, err = s.sched.ScheduleEvery("day-rollover-poll", fallbackInterval, func() { s.poll(context.Background()) })
		if err != nil {
			slog.Error("Rollover scheduling unavailable",
				logfields.Component("rollover"), logfields.Error(err))
			return
		}
	}

	s.mu.Lock()
	s.jobID = id
	s.armedDate = date
	s.mu.Unlock()

	slog.Info("Day rollover armed",
		logfields.Component("rollover"),
		logfields.Date(date),
		slog.Time("fires_at", at))
}

// Disarm cancels any pending rollover job.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	id := s.jobID
	s.jobID = uuid.Nil
	s.mu.Unlock()

	if id != uuid.Nil {
		s.sched.Remove(id)
	}
}

// poll is the fallback trigger: it fires once the local date no longer
// matches the armed one.
func (s *Scheduler) poll(ctx context.Context) {
	s.mu.Lock()
	if s.now().Format(ledger.DateFormat) == s.armedDate {
		s.mu.Unlock()
		return
	}
	id := s.jobID
	s.jobID = uuid.Nil
	s.mu.Unlock()

	s.sched.Remove(id)
	s.fire(ctx)
}

// fire archives the ended day and starts the new one. The counters are
// reset even when archival fails: the live day must start from zero, and
// a stuck counter would double-count into the next snapshot.
func (s *Scheduler) fire(ctx context.Context) {
	s.mu.Lock()
	endedDate := s.armedDate
	s.mu.Unlock()

	seconds := s.store.Current().AccumulatedSeconds
	violations := s.tracker.ViolationCount(ctx)

	if err := s.days.RecordSnapshot(ctx, endedDate, seconds, violations); err != nil {
		s.recorder.IncRollover(false)
		slog.Error("Archiving day failed, counters reset anyway",
			logfields.Component("rollover"),
			logfields.Date(endedDate),
			logfields.Error(err))
	} else {
		s.recorder.IncRollover(true)
		slog.Info("Day archived",
			logfields.Component("rollover"),
			logfields.Date(endedDate),
			logfields.Seconds(seconds),
			logfields.Violations(violations))
		if s.onEvent != nil {
			s.onEvent(Event{
				Date:               endedDate,
				ScreenTimeSecs:     seconds,
				DistanceViolations: violations,
				OccurredAt:         s.now(),
			})
		}
	}

	s.tracker.Reset(ctx)
	s.Arm(ctx)
}

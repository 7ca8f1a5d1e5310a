// Package ledger is the durable per-day history of screen time and
// distance violations. Days are keyed by calendar date string; recording
// the same date twice adds, so callers must pass deltas since the previous
// archival, never running totals.
package ledger

import (
	"context"
	"time"
)

// DateFormat is the canonical calendar-date key layout.
const DateFormat = "2006-01-02"

// DayRecord is one archived day.
type DayRecord struct {
	Date               string `json:"date"`
	ScreenTimeSecs     uint64 `json:"screen_time_secs"`
	DistanceViolations uint32 `json:"distance_violations"`
}

// ScreenTimeHours returns the whole hours of the day's screen time.
func (r DayRecord) ScreenTimeHours() int { return int(r.ScreenTimeSecs / 3600) }

// ScreenTimeMinutes returns the minutes of the day's screen time beyond
// whole hours.
func (r DayRecord) ScreenTimeMinutes() int { return int(r.ScreenTimeSecs % 3600 / 60) }

// Store is the archival ledger contract. RecordSnapshot adds to any
// existing totals for date; GetRecord returns a zero-valued record for
// unknown dates with no error.
type Store interface {
	RecordSnapshot(ctx context.Context, date string, deltaSecs uint64, deltaViolations uint32) error
	GetRecord(ctx context.Context, date string) (DayRecord, error)
	Close() error
}

// Today returns the current local calendar date key.
func Today() string { return time.Now().Format(DateFormat) }

// Package history produces read-only rollups over the archival ledger.
// Every call recomputes from day records; nothing is cached, so the
// rollups are always safe to run concurrently with the midnight rollover.
package history

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/nearwatch/internal/ledger"
)

// Reader is the subset of the ledger the aggregator needs.
type Reader interface {
	GetRecord(ctx context.Context, date string) (ledger.DayRecord, error)
}

// PeriodAggregate is a week/month/year bucket summed from day records.
// Derived only; never persisted.
type PeriodAggregate struct {
	Label              string `json:"label"`
	ScreenTimeSecs     uint64 `json:"screen_time_secs"`
	DistanceViolations uint32 `json:"distance_violations"`
}

// Aggregator computes period rollups from a ledger reader.
type Aggregator struct {
	reader    Reader
	weekStart time.Weekday
	now       func() time.Time
}

// NewAggregator creates an aggregator bucketing weeks from weekStart.
func NewAggregator(reader Reader, weekStart time.Weekday) *Aggregator {
	return &Aggregator{
		reader:    reader,
		weekStart: weekStart,
		now:       time.Now,
	}
}

// LastDays returns the previous n day records, most recent first. Today is
// live and excluded.
func (a *Aggregator) LastDays(ctx context.Context, n int) ([]ledger.DayRecord, error) {
	today := a.today()
	records := make([]ledger.DayRecord, 0, n)
	for i := 1; i <= n; i++ {
		date := today.AddDate(0, 0, -i).Format(ledger.DateFormat)
		rec, err := a.reader.GetRecord(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("read day %s: %w", date, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LastWeeks returns n week buckets, most recent first. Weeks start at the
// configured first day of week; the current week is included and labeled
// "This Week".
func (a *Aggregator) LastWeeks(ctx context.Context, n int) ([]PeriodAggregate, error) {
	currentWeek := a.startOfWeek(a.today())
	aggs := make([]PeriodAggregate, 0, n)
	for i := 0; i < n; i++ {
		start := currentWeek.AddDate(0, 0, -7*i)
		label := "This Week"
		if i > 0 {
			label = "Week of " + start.Format("Jan 2")
		}
		agg, err := a.sumDays(ctx, start, 7, label)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, nil
}

// LastMonths returns n calendar-month buckets, most recent first. Month
// lengths come from the calendar, not a constant.
func (a *Aggregator) LastMonths(ctx context.Context, n int) ([]PeriodAggregate, error) {
	today := a.today()
	aggs := make([]PeriodAggregate, 0, n)
	for i := 0; i < n; i++ {
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).AddDate(0, -i, 0)
		// Day zero of the following month is this month's last day.
		days := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, first.Location()).Day()
		agg, err := a.sumDays(ctx, first, days, first.Format("January 2006"))
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, nil
}

// LastYears returns n calendar-year buckets, most recent first, honoring
// leap years.
func (a *Aggregator) LastYears(ctx context.Context, n int) ([]PeriodAggregate, error) {
	today := a.today()
	aggs := make([]PeriodAggregate, 0, n)
	for i := 0; i < n; i++ {
		first := time.Date(today.Year()-i, time.January, 1, 0, 0, 0, 0, today.Location())
		days := time.Date(first.Year(), time.December, 31, 0, 0, 0, 0, first.Location()).YearDay()
		agg, err := a.sumDays(ctx, first, days, first.Format("2006"))
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, nil
}

func (a *Aggregator) sumDays(ctx context.Context, start time.Time, days int, label string) (PeriodAggregate, error) {
	agg := PeriodAggregate{Label: label}
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format(ledger.DateFormat)
		rec, err := a.reader.GetRecord(ctx, date)
		if err != nil {
			return agg, fmt.Errorf("read day %s: %w", date, err)
		}
		agg.ScreenTimeSecs += rec.ScreenTimeSecs
		agg.DistanceViolations += rec.DistanceViolations
	}
	return agg, nil
}

// today returns midnight of the current local day.
func (a *Aggregator) today() time.Time {
	now := a.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// startOfWeek walks t back to the configured first day of week.
func (a *Aggregator) startOfWeek(t time.Time) time.Time {
	for t.Weekday() != a.weekStart {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

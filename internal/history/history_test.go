package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nearwatch/internal/ledger"
)

// fixedClock pins the aggregator to a known date.
func fixedClock(date string) func() time.Time {
	t, _ := time.ParseInLocation(ledger.DateFormat, date, time.Local)
	return func() time.Time { return t.Add(13 * time.Hour) }
}

func seededStore(t *testing.T, days map[string]ledger.DayRecord) *ledger.SQLiteStore {
	t.Helper()
	s, err := ledger.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	for date, rec := range days {
		require.NoError(t, s.RecordSnapshot(context.Background(), date, rec.ScreenTimeSecs, rec.DistanceViolations))
	}
	return s
}

func TestLastDays_CountOrderAndLiveDayExclusion(t *testing.T) {
	store := seededStore(t, map[string]ledger.DayRecord{
		"2024-03-15": {ScreenTimeSecs: 100}, // live day, must not appear
		"2024-03-14": {ScreenTimeSecs: 840, DistanceViolations: 2},
		"2024-03-13": {ScreenTimeSecs: 360},
	})
	a := NewAggregator(store, time.Monday)
	a.now = fixedClock("2024-03-15")

	days, err := a.LastDays(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, days, 30)

	require.Equal(t, "2024-03-14", days[0].Date)
	require.Equal(t, uint64(840), days[0].ScreenTimeSecs)
	require.Equal(t, uint32(2), days[0].DistanceViolations)
	require.Equal(t, "2024-03-13", days[1].Date)

	for _, d := range days {
		require.NotEqual(t, "2024-03-15", d.Date, "live day must be excluded")
	}
	// Unknown dates come back zero-valued.
	require.Zero(t, days[29].ScreenTimeSecs)
}

func TestLastWeeks_BucketsFromConfiguredWeekStart(t *testing.T) {
	// 2024-03-15 is a Friday; with Monday weeks the current week starts
	// 2024-03-11 and the previous one 2024-03-04.
	store := seededStore(t, map[string]ledger.DayRecord{
		"2024-03-11": {ScreenTimeSecs: 60},
		"2024-03-14": {ScreenTimeSecs: 40, DistanceViolations: 1},
		"2024-03-04": {ScreenTimeSecs: 500, DistanceViolations: 3},
		"2024-03-10": {ScreenTimeSecs: 70}, // Sunday, tail of previous week
	})
	a := NewAggregator(store, time.Monday)
	a.now = fixedClock("2024-03-15")

	weeks, err := a.LastWeeks(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, weeks, 2)

	require.Equal(t, "This Week", weeks[0].Label)
	require.Equal(t, uint64(100), weeks[0].ScreenTimeSecs)
	require.Equal(t, uint32(1), weeks[0].DistanceViolations)

	require.Equal(t, "Week of Mar 4", weeks[1].Label)
	require.Equal(t, uint64(570), weeks[1].ScreenTimeSecs)
	require.Equal(t, uint32(3), weeks[1].DistanceViolations)
}

func TestLastWeeks_SundayStartMovesBoundary(t *testing.T) {
	store := seededStore(t, map[string]ledger.DayRecord{
		"2024-03-10": {ScreenTimeSecs: 70}, // Sunday
	})
	a := NewAggregator(store, time.Sunday)
	a.now = fixedClock("2024-03-15")

	weeks, err := a.LastWeeks(context.Background(), 1)
	require.NoError(t, err)
	// With Sunday weeks, 03-10 belongs to the current week.
	require.Equal(t, uint64(70), weeks[0].ScreenTimeSecs)
}

func TestLastMonths_UsesCalendarLengths(t *testing.T) {
	store := seededStore(t, map[string]ledger.DayRecord{
		"2024-02-29": {ScreenTimeSecs: 111}, // leap day must be counted
		"2024-03-31": {ScreenTimeSecs: 222},
	})
	a := NewAggregator(store, time.Monday)
	a.now = fixedClock("2024-03-15")

	months, err := a.LastMonths(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, months, 2)

	require.Equal(t, "March 2024", months[0].Label)
	require.Equal(t, uint64(222), months[0].ScreenTimeSecs)
	require.Equal(t, "February 2024", months[1].Label)
	require.Equal(t, uint64(111), months[1].ScreenTimeSecs)
}

func TestLastYears_HonorsLeapYears(t *testing.T) {
	store := seededStore(t, map[string]ledger.DayRecord{
		"2024-12-31": {ScreenTimeSecs: 10},
		"2023-01-01": {ScreenTimeSecs: 20},
	})
	a := NewAggregator(store, time.Monday)
	a.now = fixedClock("2024-03-15")

	years, err := a.LastYears(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, "2024", years[0].Label)
	require.Equal(t, uint64(10), years[0].ScreenTimeSecs)
	require.Equal(t, "2023", years[1].Label)
	require.Equal(t, uint64(20), years[1].ScreenTimeSecs)
}

package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/nearwatch/internal/config"
	"git.home.luguber.info/inful/nearwatch/internal/history"
	"git.home.luguber.info/inful/nearwatch/internal/ledger"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Period string `short:"p" help:"Rollup period" enum:"day,week,month,year" default:"day"`
	N      int    `short:"n" help:"Number of buckets to show" default:"30"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if h.N < 1 {
		return fmt.Errorf("n must be at least 1")
	}

	days, err := ledger.NewSQLiteStore(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		return fmt.Errorf("open history ledger: %w", err)
	}
	defer days.Close()

	ctx := context.Background()
	agg := history.NewAggregator(days, cfg.History.WeekStart())

	if h.Period == "day" {
		records, err := agg.LastDays(ctx, h.N)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Printf("%-12s  %2dh %02dm  %3d violations\n",
				rec.Date, rec.ScreenTimeHours(), rec.ScreenTimeMinutes(), rec.DistanceViolations)
		}
		return nil
	}

	var (
		aggs []history.PeriodAggregate
	)
	switch h.Period {
	case "week":
		aggs, err = agg.LastWeeks(ctx, h.N)
	case "month":
		aggs, err = agg.LastMonths(ctx, h.N)
	case "year":
		aggs, err = agg.LastYears(ctx, h.N)
	}
	if err != nil {
		return err
	}
	for _, a := range aggs {
		fmt.Printf("%-16s  %4dh %02dm  %4d violations\n",
			a.Label, a.ScreenTimeSecs/3600, a.ScreenTimeSecs%3600/60, a.DistanceViolations)
	}
	return nil
}

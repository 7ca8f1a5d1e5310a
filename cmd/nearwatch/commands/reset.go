package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/nearwatch/internal/config"
	"git.home.luguber.info/inful/nearwatch/internal/metrics"
	"git.home.luguber.info/inful/nearwatch/internal/prefs"
	"git.home.luguber.info/inful/nearwatch/internal/sched"
	"git.home.luguber.info/inful/nearwatch/internal/state"
	"git.home.luguber.info/inful/nearwatch/internal/tracker"
)

// ResetCmd implements the 'reset' command: zero today's live counters
// without touching archived history. Intended for recovery; the daemon
// does this automatically at midnight.
type ResetCmd struct {
	Yes bool `help:"Confirm the reset" required:""`
}

func (r *ResetCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	backend, err := prefs.NewSQLiteBackend(filepath.Join(cfg.DataDir, "prefs.db"))
	if err != nil {
		return fmt.Errorf("open preferences store: %w", err)
	}
	defer backend.Close()

	scheduler, err := sched.NewScheduler()
	if err != nil {
		return err
	}
	defer scheduler.Stop(context.Background())

	ctx := context.Background()
	store := state.NewStore(state.Defaults())
	tr := tracker.New(store, prefs.NewNamespace(backend, "screen_time"),
		scheduler, metrics.NoopRecorder{}, time.Second, cfg.Tracker.PersistEveryTicks)
	tr.Reset(ctx)

	fmt.Println("Today's counters reset.")
	return nil
}

package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nearwatch/internal/config"
)

func TestStart_TrackerFailureReleasesResources(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	// An invalid tick interval makes the tracker refuse to start.
	cfg.Tracker.TickInterval = -time.Second

	d, err := New(cfg, Options{})
	require.NoError(t, err)

	err = d.Start(ctx)
	require.ErrorContains(t, err, "start tracker")

	// The failed start must have torn down what it opened: the storage
	// handles are closed, not leaked.
	_, err = d.days.GetRecord(ctx, "2024-01-01")
	require.Error(t, err, "history ledger must be closed after a failed start")
	_, _, err = d.prefsBackend.Get(ctx, "screen_time", "accumulated_seconds")
	require.Error(t, err, "preferences store must be closed after a failed start")
}

func TestStartStop_CleanLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	d, err := New(cfg, Options{})
	require.NoError(t, err)

	require.NoError(t, d.Start(ctx))
	require.True(t, d.tracker.Running())
	require.NoError(t, d.Stop(ctx))
	require.False(t, d.tracker.Running())
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/nearwatch/internal/config"
	"git.home.luguber.info/inful/nearwatch/internal/monitor"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	DataDir string `short:"d" help:"Override the configured data directory"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if d.DataDir != "" {
		cfg.DataDir = d.DataDir
	}
	setupLogging(cfg, root.Verbose)
	return runDaemon(cfg, root.Config)
}

func runDaemon(cfg *config.Config, configPath string) error {
	slog.Info("Starting monitor daemon", "data_dir", cfg.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The headless daemon carries no camera or overlay surface; those
	// arrive when a platform frontend embeds the monitor package.
	daemon, err := monitor.New(cfg, monitor.Options{ConfigPath: configPath})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	if err := daemon.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	slog.Info("Daemon started, waiting for shutdown signal...")
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := daemon.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}

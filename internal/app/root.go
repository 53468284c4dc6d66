package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/watchlogs/internal/config"
	"github.com/blackwell-systems/watchlogs/internal/output"
	"github.com/blackwell-systems/watchlogs/internal/tail"
)

var (
	configPath        string
	pollInterval      time.Duration
	backfillLines     int
	heartbeat         bool
	heartbeatInterval time.Duration
	forcePoll         bool
	verbose           bool

	// RootCmd is the root command for watchlogs
	RootCmd = &cobra.Command{
		Use:   "watchlogs [flags] FILE [FILE...]",
		Short: "Follow multiple log files through rotation and truncation",
		Long: `watchlogs follows one or more log files at once and prints every new
line with its source path, interleaving the files as they grow.

Rotated or truncated files are followed through the change: when the
file at a path is replaced or shrinks, watchlogs reattaches and keeps
printing from the replacement. Content that predates the watch is
replayed with a stale-log marker carrying the file's last write time,
so old output is not mistaken for new. Files that do not exist yet are
created empty, which lets a service be watched before its first line.

Features:
  • One interleaved stream from any number of files
  • Survives logrotate-style renames and copytruncate
  • Stale-log markers on replayed content
  • Heartbeat notices for files that go quiet (terminal only)
  • Filesystem notifications with automatic polling fallback`,
		Example: `  # Follow two logs side by side
  watchlogs /var/log/app.log /var/log/worker.log

  # Attach at the end, skipping existing content
  watchlogs --backfill-lines 0 /var/log/app.log

  # Replay only the last 50 lines, then follow
  watchlogs --backfill-lines 50 /var/log/app.log

  # Poll instead of filesystem notifications (network mounts)
  watchlogs --poll --poll-interval 2s /mnt/nfs/service.log`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}
)

func init() {
	RootCmd.Flags().StringVar(&configPath, "config", "", "config file path (default: ~/.config/watchlogs/config.toml)")
	RootCmd.Flags().DurationVar(&pollInterval, "poll-interval", tail.DefaultPollInterval, "polling cadence, and recheck cadence in notification mode")
	RootCmd.Flags().IntVar(&backfillLines, "backfill-lines", tail.DefaultBackfillLines, "existing lines to replay on attach (-1 for all, 0 for none)")
	RootCmd.Flags().BoolVar(&heartbeat, "heartbeat", true, "report files that produce no output")
	RootCmd.Flags().DurationVar(&heartbeatInterval, "heartbeat-interval", tail.DefaultHeartbeatInterval, "silence report cadence")
	RootCmd.Flags().BoolVar(&forcePoll, "poll", false, "always poll instead of using filesystem notifications")
	RootCmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging on stderr")
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// applyFlagOverrides layers flags that were set on the command line over
// the values from the config file. Flags left at their defaults do not
// override the file.
func applyFlagOverrides(cmd *cobra.Command, cfg config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("poll-interval") {
		cfg.PollInterval = pollInterval
	}
	if flags.Changed("backfill-lines") {
		cfg.BackfillLines = backfillLines
	}
	if flags.Changed("heartbeat") {
		cfg.Heartbeat = heartbeat
	}
	if flags.Changed("heartbeat-interval") {
		cfg.HeartbeatInterval = heartbeatInterval
	}
	if flags.Changed("poll") {
		cfg.ForcePoll = forcePoll
	}
	return cfg
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = applyFlagOverrides(cmd, cfg)

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	eng, err := tail.New(tail.Config{
		PollInterval:      cfg.PollInterval,
		BackfillLines:     cfg.BackfillLines,
		Heartbeat:         cfg.Heartbeat,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ForcePoll:         cfg.ForcePoll,
		Logger:            logger,
	}, args...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Render events until the engine closes the stream on its way out.
	console := output.NewConsole()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range eng.Events() {
			console.Render(ev)
		}
	}()

	err = eng.Run(ctx)
	<-done
	return err
}

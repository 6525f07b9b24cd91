package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncTypes    []string
	syncSources  []string
	syncTargets  []string
	syncCount    int
	syncInterval time.Duration
)

// syncCmd runs the synchronize algorithm from the command line.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the configured stores",
	Long: `Copies every record of the source stores into the target stores, page by page.

Examples:
  # Synchronize every store with every other store, once
  storesync sync

  # Copy users from primary into cache and archive
  storesync sync --type user --source primary --target cache,archive

  # Repeat every minute until interrupted
  storesync sync --interval 1m`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringSliceVarP(&syncTypes, "type", "t", nil, "Record types to synchronize (default: every type served by a source)")
	syncCmd.Flags().StringSliceVarP(&syncSources, "source", "s", nil, "Source store names (default: every store)")
	syncCmd.Flags().StringSliceVar(&syncTargets, "target", nil, "Target store names (default: every store)")
	syncCmd.Flags().IntVar(&syncCount, "count", 0, "Page size (default: sync.count)")
	syncCmd.Flags().DurationVar(&syncInterval, "interval", 0, "Repeat every interval until interrupted")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := loadRuntime(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	opts, err := rt.syncOptions(syncTypes, syncSources, syncTargets, syncCount)
	if err != nil {
		return err
	}

	if syncInterval > 0 {
		rt.logger.Info("Synchronizing periodically", zap.Duration("interval", syncInterval))
		return rt.registry.Run(ctx, syncInterval, opts)
	}

	start := time.Now()
	report, err := rt.registry.Synchronize(ctx, opts)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	rt.logger.Info("Synchronization complete",
		zap.Int("pages", report.Pages),
		zap.Int("records", report.Records),
		zap.Any("per_source", report.PerSource),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

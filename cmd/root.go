package cmd

import (
	"fmt"
	"os"

	"storesync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configPath is the directory holding .env and storesync.yaml.
var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "storesync",
	Short: "Record store synchronization service",
	Long: `storesync keeps heterogeneous record stores (memory, SQL, object storage)
in sync. It replicates typed records between stores in pages, propagates live
writes, and reconciles drifted stores.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with ISO8601 timestamps for CLI users
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "Directory holding .env and storesync.yaml")
}

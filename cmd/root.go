package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gfn-etl",
	Short: "Global Footprint Network data pipeline",
	Long:  "Extracts ecological footprint statistics from the Global Footprint Network API, lands raw snapshots, deduplicates and enriches them, and loads them into SQLite or Postgres with incremental merge semantics.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

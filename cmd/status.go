package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/store"
)

var (
	statusDestination string
	statusLimit       int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the watermark and recent sync history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sink, err := openSink(ctx, cfg, statusDestination)
		if err != nil {
			return err
		}
		defer sink.Close() //nolint:errcheck

		if err := sink.Migrate(ctx); err != nil {
			return err
		}

		watermark, err := sink.Watermark(ctx, store.Dataset)
		if err != nil {
			return err
		}
		syncs, err := sink.ListSyncs(ctx, store.Dataset, statusLimit)
		if err != nil {
			return err
		}

		out := struct {
			Dataset           string            `json:"dataset"`
			LastYearProcessed *int              `json:"last_year_processed"`
			Syncs             []store.SyncEntry `json:"syncs"`
		}{
			Dataset:           store.Dataset,
			LastYearProcessed: watermark,
			Syncs:             syncs,
		}

		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusDestination, "destination", "d", "", "destination sink: sqlite or postgres (default from config)")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of sync entries to show")
	rootCmd.AddCommand(statusCmd)
}

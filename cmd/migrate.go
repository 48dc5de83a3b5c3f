package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateDestination string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the destination schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sink, err := openSink(ctx, cfg, migrateDestination)
		if err != nil {
			return err
		}
		defer sink.Close() //nolint:errcheck

		if err := sink.Migrate(ctx); err != nil {
			return err
		}

		zap.L().Info("schema migration complete")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVarP(&migrateDestination, "destination", "d", "", "destination sink: sqlite or postgres (default from config)")
	rootCmd.AddCommand(migrateCmd)
}

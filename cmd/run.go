package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/gfnapi"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/lake"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/pipeline"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/quality"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/ratelimit"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/state"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/store"
)

var (
	runStartYear   int
	runEndYear     int
	runDestination string
	runFullRefresh bool
	runTypes       []string
	runWarnOnly    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full extract-transform-load pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		startYear := runStartYear
		endYear := runEndYear
		if !cmd.Flags().Changed("start-year") {
			startYear = cfg.Extract.StartYear
		}
		if !cmd.Flags().Changed("end-year") {
			endYear = cfg.Extract.EndYear
		}

		sink, err := openSink(ctx, cfg, runDestination)
		if err != nil {
			return err
		}
		defer sink.Close() //nolint:errcheck

		if err := sink.Migrate(ctx); err != nil {
			return err
		}

		var api gfnapi.API
		if cfg.API.Mock {
			api = &gfnapi.Mock{}
		} else {
			api = gfnapi.NewClient(gfnapi.Options{
				BaseURL:     cfg.API.BaseURL,
				Username:    cfg.API.Username,
				APIKey:      cfg.API.Key,
				MetaTimeout: time.Duration(cfg.API.MetaTimeoutSecs) * time.Second,
				BulkTimeout: time.Duration(cfg.API.BulkTimeoutSecs) * time.Second,
				Limiter:     ratelimit.NewBucket(cfg.Extract.RequestsPerSecond, cfg.Extract.Burst),
			})
		}

		checks, err := quality.LoadChecks(cfg.Quality.ChecksPath)
		if err != nil {
			return err
		}
		gate := quality.NewGate(checks, runWarnOnly || cfg.Quality.WarnOnly)

		runner := pipeline.NewRunner(
			api,
			sink,
			lake.New(cfg.Lake.Dir),
			gate,
			state.NewTracker(sink, store.Dataset),
			cfg.Extract.BatchSize,
		)

		result := runner.Run(ctx, pipeline.Options{
			StartYear:   startYear,
			EndYear:     endYear,
			FullRefresh: runFullRefresh,
			TypeFilter:  runTypes,
		})

		summary, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(summary))

		switch result.Status {
		case model.RunStatusSuccess, model.RunStatusNoData:
			return nil
		default:
			return fmt.Errorf("pipeline run %s: status %s", result.RunID, result.Status)
		}
	},
}

func init() {
	runCmd.Flags().IntVar(&runStartYear, "start-year", 2010, "first year to extract")
	runCmd.Flags().IntVar(&runEndYear, "end-year", 2024, "last year to extract")
	runCmd.Flags().StringVarP(&runDestination, "destination", "d", "", "destination sink: sqlite or postgres (default from config)")
	runCmd.Flags().BoolVar(&runFullRefresh, "full-refresh", false, "ignore the watermark and fetch the whole requested window")
	runCmd.Flags().StringSliceVar(&runTypes, "record-types", nil, "only keep these record types (e.g. EFCtot,BiocapTot)")
	runCmd.Flags().BoolVar(&runWarnOnly, "quality-warn-only", false, "log quality failures instead of aborting the run")
	rootCmd.AddCommand(runCmd)
}

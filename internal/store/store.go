// Package store holds the destination sinks: an embedded SQLite database
// for local analytical use and a Postgres warehouse. Both implement the
// same upsert contract (facts merge on (country_code, year, record_type)
// with the newest transformed_at winning, reference tables are fully
// replaced) plus the watermark and sync-log tables backing incremental
// runs.
package store

import (
	"context"
	"fmt"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
)

// Dataset is the logical dataset name used for watermark and sync-log rows.
const Dataset = "gfn_footprint"

// LoadError marks a sink failure. The watermark is never advanced past
// one, so a failed run retries the same window.
type LoadError struct {
	Destination string
	Err         error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load to %s failed: %v", e.Destination, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Sink is the destination contract consumed by the pipeline runner.
type Sink interface {
	// Migrate creates tables, indexes, and views.
	Migrate(ctx context.Context) error

	// ReplaceCountries and ReplaceRecordTypes fully replace the reference
	// tables: immutable reference data, no merge-by-key accumulation.
	ReplaceCountries(ctx context.Context, countries []model.Country) (int64, error)
	ReplaceRecordTypes(ctx context.Context, types []model.RecordType) (int64, error)

	// UpsertFacts merges facts on the composite natural key. Idempotent:
	// re-loading the same batch converges to the same rows.
	UpsertFacts(ctx context.Context, facts []model.FootprintRecord) (int64, error)

	// Watermark returns the last successfully processed year for a
	// dataset, or nil if the dataset has never completed a load.
	Watermark(ctx context.Context, dataset string) (*int, error)
	// SetWatermark durably records the watermark. Called only after a
	// confirmed successful load.
	SetWatermark(ctx context.Context, dataset string, year int) error

	// Sync log: one row per run for the status command and debugging.
	StartSync(ctx context.Context, dataset string) (string, error)
	CompleteSync(ctx context.Context, syncID string, rowsLoaded int64) error
	FailSync(ctx context.Context, syncID string, errMsg string) error
	ListSyncs(ctx context.Context, dataset string, limit int) ([]SyncEntry, error)

	Close() error
}

// SyncEntry is one row of the sync log.
type SyncEntry struct {
	ID          string  `json:"id"`
	Dataset     string  `json:"dataset"`
	Status      string  `json:"status"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
	RowsLoaded  int64   `json:"rows_loaded"`
	Error       string  `json:"error,omitempty"`
}

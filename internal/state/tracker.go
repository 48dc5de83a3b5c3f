// Package state computes the incremental fetch window from the
// persisted per-destination watermark.
package state

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/store"
)

// Tracker reads and advances the last-year-processed watermark for one
// dataset. The watermark is single-writer: only the orchestrating run
// updates it, and only after the load step reports success, so a crash
// or failed load leaves the previous watermark intact and the next run
// retries the same window.
type Tracker struct {
	sink    store.Sink
	dataset string
}

// NewTracker creates a Tracker bound to a sink and dataset.
func NewTracker(sink store.Sink, dataset string) *Tracker {
	return &Tracker{sink: sink, dataset: dataset}
}

// NextWindow computes the actual fetch window for a requested range.
//
// forceFull, no prior state, or a watermark below requestedStart all
// return the requested window unchanged. Otherwise the window starts at
// max(watermark-1, requestedStart): the final previously-processed year
// is re-fetched to absorb late corrections the upstream may have applied
// after first publication. Years older than watermark-1 are never
// revisited. The upper bound is never truncated.
func (t *Tracker) NextWindow(ctx context.Context, requestedStart, requestedEnd int, forceFull bool) (int, int, error) {
	if forceFull {
		return requestedStart, requestedEnd, nil
	}

	last, err := t.sink.Watermark(ctx, t.dataset)
	if err != nil {
		return 0, 0, eris.Wrap(err, "state: read watermark")
	}
	if last == nil || *last < requestedStart {
		// Initial or out-of-range load.
		return requestedStart, requestedEnd, nil
	}

	actualStart := *last - 1
	if actualStart < requestedStart {
		actualStart = requestedStart
	}

	zap.L().Info("incremental window computed",
		zap.Int("last_year_processed", *last),
		zap.Int("requested_start", requestedStart),
		zap.Int("actual_start", actualStart),
		zap.Int("end", requestedEnd),
	)
	return actualStart, requestedEnd, nil
}

// Advance records year as the new watermark. Call only after the load
// step has been confirmed successful.
func (t *Tracker) Advance(ctx context.Context, year int) error {
	if err := t.sink.SetWatermark(ctx, t.dataset, year); err != nil {
		return eris.Wrap(err, "state: advance watermark")
	}
	zap.L().Info("watermark advanced",
		zap.String("dataset", t.dataset),
		zap.Int("last_year_processed", year),
	)
	return nil
}

// Package pipeline orchestrates one ETL run: discover and extract, land
// raw data, transform, gate on quality, load, then advance the
// watermark. Recoverable conditions (a failed year, invalid records) are
// absorbed into run metrics; structural failures (discovery, quality,
// load) end the run with a failed status and the watermark untouched.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/extract"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/gfnapi"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/lake"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/quality"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/state"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/store"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/transform"
)

// Options selects the window and behavior of one run.
type Options struct {
	StartYear int
	EndYear   int
	// FullRefresh ignores the watermark and fetches the whole requested
	// window.
	FullRefresh bool
	// TypeFilter keeps only the named record types; empty keeps all.
	TypeFilter []string
}

// Runner wires the pipeline stages together.
type Runner struct {
	api       gfnapi.API
	sink      store.Sink
	lake      *lake.Lake
	gate      *quality.Gate
	tracker   *state.Tracker
	batchSize int
}

// NewRunner creates a Runner.
func NewRunner(api gfnapi.API, sink store.Sink, lk *lake.Lake, gate *quality.Gate, tracker *state.Tracker, batchSize int) *Runner {
	return &Runner{
		api:       api,
		sink:      sink,
		lake:      lk,
		gate:      gate,
		tracker:   tracker,
		batchSize: batchSize,
	}
}

// rawBatch is the shape landed on the raw layer.
type rawBatch struct {
	Countries   []model.Country         `json:"countries"`
	Facts       []model.FootprintRecord `json:"footprint_data"`
	RecordTypes []model.RecordType      `json:"record_types"`
}

// processedBatch is the shape landed on the processed layer.
type processedBatch struct {
	Countries []model.Country         `json:"countries"`
	Facts     []model.FootprintRecord `json:"footprint_data"`
}

// Run executes the full pipeline for the requested window. It always
// returns a structured result; any non-success status means the
// watermark was not advanced and the run is safely repeatable.
func (r *Runner) Run(ctx context.Context, opts Options) *model.RunResult {
	started := time.Now().UTC()
	result := &model.RunResult{
		RunID:     uuid.New().String(),
		StartYear: opts.StartYear,
		EndYear:   opts.EndYear,
		StartedAt: started,
	}
	log := zap.L().With(zap.String("run_id", result.RunID))

	fail := func(status model.RunStatus, err error) *model.RunResult {
		result.Errors = append(result.Errors, err.Error())
		log.Error("pipeline run ended", zap.String("status", string(status)), zap.Error(err))
		return finalize(result, status)
	}

	syncID, err := r.sink.StartSync(ctx, store.Dataset)
	if err != nil {
		// The sync log is bookkeeping; a failure there must not block the run.
		log.Warn("failed to record sync start", zap.Error(err))
	}

	actualStart, actualEnd, err := r.tracker.NextWindow(ctx, opts.StartYear, opts.EndYear, opts.FullRefresh)
	if err != nil {
		return r.failSync(ctx, syncID, fail(model.RunStatusFailed, err))
	}
	result.StartYear, result.EndYear = actualStart, actualEnd
	log.Info("starting pipeline run",
		zap.Int("start_year", actualStart),
		zap.Int("end_year", actualEnd),
		zap.Bool("full_refresh", opts.FullRefresh),
		zap.Strings("type_filter", opts.TypeFilter),
	)

	// Extract.
	extractor := extract.New(r.api, gfnapi.NewTypeCache(), r.batchSize)
	extracted, err := extractor.Extract(ctx, actualStart, actualEnd, opts.TypeFilter)
	if err != nil {
		return r.failSync(ctx, syncID, fail(model.RunStatusFailed, err))
	}
	result.CountriesExtracted = len(extracted.Countries)
	result.RecordsExtracted = len(extracted.Facts)
	for _, rt := range extracted.RecordTypes {
		result.RecordTypes = append(result.RecordTypes, rt.Code)
	}

	if len(extracted.Facts) == 0 {
		log.Warn("no data extracted, skipping transform and load")
		return r.failSync(ctx, syncID, finalize(result, model.RunStatusNoData))
	}

	// Land raw.
	rawPath, err := r.lake.WriteRaw(rawBatch{
		Countries:   extracted.Countries,
		Facts:       extracted.Facts,
		RecordTypes: extracted.RecordTypes,
	}, started)
	if err != nil {
		return r.failSync(ctx, syncID, fail(model.RunStatusFailed, err))
	}
	result.RawPath = rawPath

	// Transform.
	transformed := transform.Apply(extracted.Countries, extracted.Facts, time.Now().UTC())
	result.RecordsTransformed = len(transformed.Facts)
	result.RecordsDropped = transformed.DroppedFacts + transformed.DroppedCountries
	if dropped := transformed.DroppedFacts + transformed.DroppedCountries; dropped > 0 {
		log.Info("invalid records removed", zap.Int("count", dropped))
	}
	if transformed.DuplicateFacts > 0 {
		log.Info("duplicate facts removed", zap.Int("count", transformed.DuplicateFacts))
	}

	// Land processed.
	processedPath, err := r.lake.WriteProcessed(processedBatch{
		Countries: transformed.Countries,
		Facts:     transformed.Facts,
	}, started)
	if err != nil {
		return r.failSync(ctx, syncID, fail(model.RunStatusFailed, err))
	}
	result.ProcessedPath = processedPath

	// Quality gate.
	gateResult := r.gate.Evaluate(transformed.Countries, transformed.Facts)
	if err := r.gate.Err(gateResult); err != nil {
		return r.failSync(ctx, syncID, fail(model.RunStatusQualityFailed, err))
	}

	// Load.
	loaded, err := r.load(ctx, transformed.Countries, transformed.Facts, extracted.RecordTypes)
	if err != nil {
		return r.failSync(ctx, syncID, fail(model.RunStatusFailed, err))
	}
	result.RecordsLoaded = int(loaded)

	// Load confirmed: advance the watermark, then close out the sync log.
	if err := r.tracker.Advance(ctx, actualEnd); err != nil {
		return r.failSync(ctx, syncID, fail(model.RunStatusFailed, err))
	}
	if syncID != "" {
		if err := r.sink.CompleteSync(ctx, syncID, loaded); err != nil {
			log.Warn("failed to record sync completion", zap.Error(err))
		}
	}

	return finalize(result, model.RunStatusSuccess)
}

func (r *Runner) load(ctx context.Context, countries []model.Country, facts []model.FootprintRecord, types []model.RecordType) (int64, error) {
	var total int64

	n, err := r.sink.ReplaceCountries(ctx, countries)
	if err != nil {
		return 0, &store.LoadError{Destination: "countries", Err: err}
	}
	total += n

	n, err = r.sink.ReplaceRecordTypes(ctx, types)
	if err != nil {
		return 0, &store.LoadError{Destination: "record_types", Err: err}
	}
	total += n

	n, err = r.sink.UpsertFacts(ctx, facts)
	if err != nil {
		return 0, &store.LoadError{Destination: "footprint_data", Err: err}
	}
	total += n

	return total, nil
}

func finalize(result *model.RunResult, status model.RunStatus) *model.RunResult {
	result.Status = status
	result.CompletedAt = time.Now().UTC()
	result.DurationSeconds = result.CompletedAt.Sub(result.StartedAt).Seconds()
	zap.L().Info("pipeline run completed",
		zap.String("run_id", result.RunID),
		zap.String("status", string(status)),
		zap.Float64("duration_seconds", result.DurationSeconds),
		zap.Int("records_loaded", result.RecordsLoaded),
	)
	return result
}

// failSync marks the sync-log row terminal for non-success outcomes.
func (r *Runner) failSync(ctx context.Context, syncID string, result *model.RunResult) *model.RunResult {
	if syncID == "" {
		return result
	}
	switch result.Status {
	case model.RunStatusSuccess:
		// Already completed by the caller.
	case model.RunStatusNoData:
		if err := r.sink.CompleteSync(ctx, syncID, 0); err != nil {
			zap.L().Warn("failed to record sync completion", zap.Error(err))
		}
	default:
		msg := "run failed"
		if len(result.Errors) > 0 {
			msg = result.Errors[len(result.Errors)-1]
		}
		if err := r.sink.FailSync(ctx, syncID, msg); err != nil {
			zap.L().Warn("failed to record sync failure", zap.Error(err))
		}
	}
	return result
}

// Package extract orchestrates concurrent, rate-limited bulk fetches
// from the upstream API: one payload per year, batched to bound the
// number of in-flight requests.
package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/gfnapi"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
)

// DefaultBatchSize is the number of concurrent per-year fetches. Batches
// run strictly sequentially, so this is also the peak request concurrency
// against the upstream, complementing the token bucket as a backpressure
// knob.
const DefaultBatchSize = 3

// Result is the raw outcome of one extraction: the union of countries
// and facts across all fetched years, plus the record types actually
// observed in the returned facts.
type Result struct {
	Countries   []model.Country
	Facts       []model.FootprintRecord
	RecordTypes []model.RecordType

	// FailedYears lists years whose fetch exhausted its retry budget and
	// contributed nothing. Partial failures degrade completeness, they do
	// not abort the run.
	FailedYears []int
}

// Extractor fetches bulk data for a year range.
type Extractor struct {
	api       gfnapi.API
	cache     *gfnapi.TypeCache
	batchSize int
}

// New creates an Extractor. batchSize <= 0 selects DefaultBatchSize.
func New(api gfnapi.API, cache *gfnapi.TypeCache, batchSize int) *Extractor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Extractor{api: api, cache: cache, batchSize: batchSize}
}

// Extract fetches countries and per-year bulk data for [startYear,
// endYear]. typeFilter, when non-empty, keeps only facts whose record
// type is in the set; the bulk endpoint is not filterable server-side,
// so the filter applies after fetch. Country-list or type discovery
// failure aborts the whole call; a single year failing does not.
func (e *Extractor) Extract(ctx context.Context, startYear, endYear int, typeFilter []string) (*Result, error) {
	if startYear > endYear {
		return nil, eris.Errorf("extract: invalid year range %d-%d", startYear, endYear)
	}

	types, err := gfnapi.DiscoverTypes(ctx, e.api, e.cache, endYear)
	if err != nil {
		return nil, eris.Wrap(err, "extract: type discovery")
	}

	rawCountries, err := e.api.Countries(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "extract: fetch countries")
	}

	extractedAt := time.Now().UTC()
	countries := convertCountries(rawCountries, extractedAt)

	filter := make(map[string]bool, len(typeFilter))
	for _, t := range typeFilter {
		filter[t] = true
	}

	years := endYear - startYear + 1
	// Completion order within a batch is unspecified; results are keyed
	// by year slot so downstream order never depends on network timing.
	byYear := make([][]model.FootprintRecord, years)
	failed := make([]bool, years)

	for batchStart := startYear; batchStart <= endYear; batchStart += e.batchSize {
		batchEnd := batchStart + e.batchSize - 1
		if batchEnd > endYear {
			batchEnd = endYear
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.batchSize)
		for year := batchStart; year <= batchEnd; year++ {
			slot := year - startYear
			g.Go(func() error {
				raw, fetchErr := e.api.YearData(gctx, year)
				if fetchErr != nil {
					zap.L().Warn("year fetch failed after retries, continuing without it",
						zap.Int("year", year),
						zap.Error(fetchErr),
					)
					failed[slot] = true
					return nil
				}
				byYear[slot] = convertFacts(raw, filter, extractedAt)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, eris.Wrap(err, "extract: batch")
		}

		zap.L().Info("batch complete",
			zap.Int("from", batchStart),
			zap.Int("to", batchEnd),
		)
	}

	result := &Result{Countries: countries}
	for slot, facts := range byYear {
		if failed[slot] {
			result.FailedYears = append(result.FailedYears, startYear+slot)
			continue
		}
		result.Facts = append(result.Facts, facts...)
	}

	// Report the types actually observed, not merely the discovered set:
	// some discovered types may be absent from the fetched years.
	for _, code := range model.SortedTypeCodes(result.Facts) {
		desc := types[code]
		if desc == "" {
			desc = code
		}
		result.RecordTypes = append(result.RecordTypes, model.RecordType{Code: code, Description: desc})
	}

	zap.L().Info("extraction complete",
		zap.Int("countries", len(result.Countries)),
		zap.Int("facts", len(result.Facts)),
		zap.Int("record_types", len(result.RecordTypes)),
		zap.Ints("failed_years", result.FailedYears),
	)
	return result, nil
}

// convertCountries maps raw country rows to the canonical shape, dropping
// rows without a numeric country code.
func convertCountries(raw []gfnapi.RawCountry, extractedAt time.Time) []model.Country {
	out := make([]model.Country, 0, len(raw))
	for _, c := range raw {
		if !c.CountryCode.Valid {
			continue
		}
		out = append(out, model.Country{
			CountryCode: c.CountryCode.Int,
			CountryName: c.CountryName,
			ShortName:   c.ShortName,
			IsoAlpha2:   c.IsoAlpha2,
			Score:       c.Score,
			ExtractedAt: extractedAt,
		})
	}
	return out
}

// convertFacts maps raw bulk rows to canonical facts. Rows missing a
// parseable year or numeric country code are aggregate pseudo-rows
// ("world", "all") and are dropped here, before any further processing.
func convertFacts(raw []gfnapi.RawFact, filter map[string]bool, extractedAt time.Time) []model.FootprintRecord {
	out := make([]model.FootprintRecord, 0, len(raw))
	for _, r := range raw {
		if !r.CountryCode.Valid || !r.Year.Valid {
			continue
		}
		if len(filter) > 0 && !filter[r.Record] {
			continue
		}
		out = append(out, model.FootprintRecord{
			CountryCode:   r.CountryCode.Int,
			CountryName:   r.CountryName,
			IsoAlpha2:     r.IsoAlpha2,
			Year:          r.Year.Int,
			RecordType:    r.Record,
			CropLand:      r.CropLand,
			GrazingLand:   r.GrazingLand,
			ForestLand:    r.ForestLand,
			FishingGround: r.FishingGround,
			BuiltupLand:   r.BuiltupLand,
			Carbon:        r.Carbon,
			Value:         r.Value,
			Score:         r.Score,
			ExtractedAt:   extractedAt,
		})
	}
	return out
}

// Package model defines the canonical entities flowing through the
// extraction pipeline: countries, record types, and footprint facts.
package model

import (
	"fmt"
	"sort"
	"time"
)

// Country is reference data from the /countries endpoint. The country
// table is fully replaced on each load rather than merged.
type Country struct {
	CountryCode   int       `json:"country_code"`
	CountryName   string    `json:"country_name"`
	ShortName     string    `json:"short_name,omitempty"`
	IsoAlpha2     string    `json:"iso_alpha2,omitempty"`
	Score         string    `json:"score,omitempty"`
	ExtractedAt   time.Time `json:"extracted_at"`
	TransformedAt time.Time `json:"transformed_at,omitempty"`
}

// RecordType is a metric category published by the upstream API. The set
// is not fixed and is discovered per run.
type RecordType struct {
	Code        string `json:"record_type"`
	Description string `json:"description"`
}

// FootprintRecord is the fact entity. Natural key is
// (CountryCode, Year, RecordType); the transformer guarantees uniqueness
// within a batch and the sink upserts on the same key across runs.
type FootprintRecord struct {
	CountryCode   int      `json:"country_code"`
	CountryName   string   `json:"country_name"`
	IsoAlpha2     string   `json:"iso_alpha2,omitempty"`
	Year          int      `json:"year"`
	RecordType    string   `json:"record_type"`
	CropLand      *float64 `json:"crop_land,omitempty"`
	GrazingLand   *float64 `json:"grazing_land,omitempty"`
	ForestLand    *float64 `json:"forest_land,omitempty"`
	FishingGround *float64 `json:"fishing_ground,omitempty"`
	BuiltupLand   *float64 `json:"builtup_land,omitempty"`
	Carbon        *float64 `json:"carbon,omitempty"`
	Value         *float64 `json:"value,omitempty"`

	// CarbonPctOfTotal is derived during transformation:
	// round(carbon/value*100, 2) when both are present and value > 0.
	CarbonPctOfTotal *float64 `json:"carbon_pct_of_total,omitempty"`

	Score         string    `json:"score,omitempty"`
	ExtractedAt   time.Time `json:"extracted_at"`
	TransformedAt time.Time `json:"transformed_at,omitempty"`
}

// FactKey is the composite natural key of a FootprintRecord.
type FactKey struct {
	CountryCode int
	Year        int
	RecordType  string
}

// Key returns the composite natural key of the record.
func (r FootprintRecord) Key() FactKey {
	return FactKey{CountryCode: r.CountryCode, Year: r.Year, RecordType: r.RecordType}
}

func (k FactKey) String() string {
	return fmt.Sprintf("%d/%d/%s", k.CountryCode, k.Year, k.RecordType)
}

// RunStatus is the terminal status of a pipeline run.
type RunStatus string

const (
	RunStatusSuccess       RunStatus = "success"
	RunStatusNoData        RunStatus = "no_data"
	RunStatusFailed        RunStatus = "failed"
	RunStatusQualityFailed RunStatus = "quality_failed"
)

// RunResult is the structured outcome of one pipeline run. Callers can
// rely on the watermark-on-success-only rule: any non-success status
// means nothing was advanced.
type RunResult struct {
	RunID              string    `json:"run_id"`
	Status             RunStatus `json:"status"`
	StartYear          int       `json:"start_year"`
	EndYear            int       `json:"end_year"`
	CountriesExtracted int       `json:"countries_extracted"`
	RecordsExtracted   int       `json:"records_extracted"`
	RecordsTransformed int       `json:"records_transformed"`
	RecordsDropped     int       `json:"records_dropped"`
	RecordsLoaded      int       `json:"records_loaded"`
	RecordTypes        []string  `json:"record_types,omitempty"`
	RawPath            string    `json:"raw_path,omitempty"`
	ProcessedPath      string    `json:"processed_path,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	CompletedAt        time.Time `json:"completed_at"`
	DurationSeconds    float64   `json:"duration_seconds"`
	Errors             []string  `json:"errors,omitempty"`
}

// SortedTypeCodes returns the distinct record type codes present in facts,
// sorted ascending.
func SortedTypeCodes(facts []FootprintRecord) []string {
	seen := make(map[string]bool)
	for _, f := range facts {
		seen[f.RecordType] = true
	}
	codes := make([]string, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

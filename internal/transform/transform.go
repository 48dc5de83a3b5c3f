// Package transform validates, deduplicates, and enriches extracted
// records into their canonical shape. Pure functions, no I/O: given the
// same input order the output is byte-for-byte reproducible, which makes
// the first-occurrence-wins tie-break a testable contract instead of an
// accident.
package transform

import (
	"math"
	"time"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
)

// Result holds the transformed batch plus aggregate drop counts. Invalid
// records are counted and logged in aggregate by the caller, never
// per-record.
type Result struct {
	Countries        []model.Country
	Facts            []model.FootprintRecord
	DroppedCountries int
	DroppedFacts     int
	DuplicateFacts   int
}

// Apply transforms countries and facts, stamping transformedAt on every
// surviving record.
//
// Countries: rows lacking a country code are dropped; duplicates by code
// keep the first occurrence.
//
// Facts: rows lacking country code, year, or record type are dropped;
// duplicates by (country_code, year, record_type) keep the first
// occurrence in input order; carbon_pct_of_total is computed per
// CarbonPct.
func Apply(countries []model.Country, facts []model.FootprintRecord, transformedAt time.Time) Result {
	var res Result

	seenCountries := make(map[int]bool, len(countries))
	res.Countries = make([]model.Country, 0, len(countries))
	for _, c := range countries {
		if c.CountryCode == 0 {
			res.DroppedCountries++
			continue
		}
		if seenCountries[c.CountryCode] {
			continue
		}
		seenCountries[c.CountryCode] = true
		c.TransformedAt = transformedAt
		res.Countries = append(res.Countries, c)
	}

	seenFacts := make(map[model.FactKey]bool, len(facts))
	res.Facts = make([]model.FootprintRecord, 0, len(facts))
	for _, f := range facts {
		if f.CountryCode == 0 || f.Year == 0 || f.RecordType == "" {
			res.DroppedFacts++
			continue
		}
		key := f.Key()
		if seenFacts[key] {
			res.DuplicateFacts++
			continue
		}
		seenFacts[key] = true
		f.TransformedAt = transformedAt
		f.CarbonPctOfTotal = CarbonPct(f.Carbon, f.Value)
		res.Facts = append(res.Facts, f)
	}

	return res
}

// CarbonPct returns round(carbon/value*100, 2) when both carbon and
// value are present and value > 0, else nil.
func CarbonPct(carbon, value *float64) *float64 {
	if carbon == nil || value == nil || *value <= 0 {
		return nil
	}
	pct := math.Round(*carbon / *value * 100 * 100) / 100
	return &pct
}

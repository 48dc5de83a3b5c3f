package quality

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
)

func fptr(v float64) *float64 { return &v }

func goodBatch() ([]model.Country, []model.FootprintRecord) {
	countries := []model.Country{
		{CountryCode: 1, CountryName: "France"},
		{CountryCode: 2, CountryName: "Germany"},
	}
	facts := []model.FootprintRecord{
		{CountryCode: 1, Year: 2020, RecordType: "EFCtot", Value: fptr(456)},
		{CountryCode: 2, Year: 2020, RecordType: "EFCtot", Value: fptr(789)},
	}
	return countries, facts
}

func TestGatePasses(t *testing.T) {
	gate := NewGate(DefaultChecks(), false)
	countries, facts := goodBatch()

	res := gate.Evaluate(countries, facts)

	assert.True(t, res.Passed)
	assert.Equal(t, res.ChecksRun, res.ChecksPassed)
	assert.Empty(t, res.FailedChecks)
	assert.NoError(t, gate.Err(res))
}

func TestGateFailsOnEmptyFacts(t *testing.T) {
	gate := NewGate(DefaultChecks(), false)
	countries, _ := goodBatch()

	res := gate.Evaluate(countries, nil)

	assert.False(t, res.Passed)
	assert.Contains(t, res.FailedChecks, "facts.min_rows")

	err := gate.Err(res)
	require.Error(t, err)
	var qerr *QualityError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, res.FailedChecks, qerr.Failed)
}

func TestGateFailsOnYearOutOfRange(t *testing.T) {
	gate := NewGate(DefaultChecks(), false)
	countries, facts := goodBatch()
	facts = append(facts, model.FootprintRecord{CountryCode: 1, Year: 1850, RecordType: "EFCtot"})

	res := gate.Evaluate(countries, facts)

	assert.False(t, res.Passed)
	assert.Contains(t, res.FailedChecks, "facts.year_range")
}

func TestGateFailsOnNegativeValue(t *testing.T) {
	gate := NewGate(DefaultChecks(), false)
	countries, facts := goodBatch()
	facts[0].Value = fptr(-1)

	res := gate.Evaluate(countries, facts)

	assert.False(t, res.Passed)
	assert.Contains(t, res.FailedChecks, "facts.non_negative_value")
}

func TestGateFailsOnDuplicateKeys(t *testing.T) {
	gate := NewGate(DefaultChecks(), false)
	countries, facts := goodBatch()
	facts = append(facts, facts[0])

	res := gate.Evaluate(countries, facts)

	assert.False(t, res.Passed)
	assert.Contains(t, res.FailedChecks, "facts.unique_key")
}

func TestGateFailsOnDuplicateCountryCodes(t *testing.T) {
	gate := NewGate(DefaultChecks(), false)
	countries, facts := goodBatch()
	countries = append(countries, countries[0])

	res := gate.Evaluate(countries, facts)

	assert.False(t, res.Passed)
	assert.Contains(t, res.FailedChecks, "countries.unique_code")
}

func TestGateWarnOnlyNeverErrors(t *testing.T) {
	gate := NewGate(DefaultChecks(), true)

	res := gate.Evaluate(nil, nil)

	assert.False(t, res.Passed)
	assert.NoError(t, gate.Err(res))
}

func TestLoadChecksMissingFileFallsBack(t *testing.T) {
	checks, err := LoadChecks(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultChecks(), checks)
}

func TestLoadChecksOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quality.yaml")
	require.NoError(t, os.WriteFile(path, []byte("facts:\n  min_rows: 100\n  max_year: 2050\n"), 0o644))

	checks, err := LoadChecks(path)
	require.NoError(t, err)
	assert.Equal(t, 100, checks.Facts.MinRows)
	assert.Equal(t, 2050, checks.Facts.MaxYear)
	// Untouched fields keep their defaults.
	assert.Equal(t, 1960, checks.Facts.MinYear)
	assert.True(t, checks.Countries.UniqueCode)
}

func TestLoadChecksBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quality.yaml")
	require.NoError(t, os.WriteFile(path, []byte("facts: [not a mapping"), 0o644))

	_, err := LoadChecks(path)
	assert.Error(t, err)
}

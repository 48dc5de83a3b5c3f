package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
)

func fptr(v float64) *float64 { return &v }

func fact(code, year int, record string) model.FootprintRecord {
	return model.FootprintRecord{
		CountryCode: code,
		CountryName: "Testland",
		Year:        year,
		RecordType:  record,
	}
}

func TestApplyStampsAndEnriches(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	f := fact(1, 2020, "EFCtot")
	f.Carbon = fptr(123.0)
	f.Value = fptr(456.0)

	res := Apply([]model.Country{{CountryCode: 1, CountryName: "Testland"}}, []model.FootprintRecord{f}, now)

	require.Len(t, res.Facts, 1)
	require.Len(t, res.Countries, 1)
	assert.Equal(t, now, res.Facts[0].TransformedAt)
	assert.Equal(t, now, res.Countries[0].TransformedAt)
	require.NotNil(t, res.Facts[0].CarbonPctOfTotal)
	assert.InDelta(t, 26.97, *res.Facts[0].CarbonPctOfTotal, 0.0001)
}

func TestApplyDropsInvalidRecords(t *testing.T) {
	now := time.Now().UTC()

	countries := []model.Country{
		{CountryCode: 0, CountryName: "no code"},
		{CountryCode: 5, CountryName: "valid"},
	}
	facts := []model.FootprintRecord{
		fact(0, 2020, "EFCtot"),
		fact(1, 0, "EFCtot"),
		fact(1, 2020, ""),
		fact(1, 2020, "EFCtot"),
	}

	res := Apply(countries, facts, now)

	assert.Equal(t, 1, res.DroppedCountries)
	assert.Equal(t, 3, res.DroppedFacts)
	require.Len(t, res.Facts, 1)
	assert.Equal(t, model.FactKey{CountryCode: 1, Year: 2020, RecordType: "EFCtot"}, res.Facts[0].Key())
}

func TestApplyDeduplicatesFirstWins(t *testing.T) {
	now := time.Now().UTC()

	first := fact(1, 2020, "EFCtot")
	first.Value = fptr(100)
	second := fact(1, 2020, "EFCtot")
	second.Value = fptr(999)
	other := fact(1, 2021, "EFCtot")

	res := Apply(nil, []model.FootprintRecord{first, second, other}, now)

	assert.Equal(t, 1, res.DuplicateFacts)
	require.Len(t, res.Facts, 2)
	// First occurrence in input order is kept.
	require.NotNil(t, res.Facts[0].Value)
	assert.Equal(t, 100.0, *res.Facts[0].Value)
}

func TestApplyDeduplicatesCountriesByCode(t *testing.T) {
	now := time.Now().UTC()

	res := Apply([]model.Country{
		{CountryCode: 1, CountryName: "first"},
		{CountryCode: 1, CountryName: "second"},
		{CountryCode: 2, CountryName: "other"},
	}, nil, now)

	require.Len(t, res.Countries, 2)
	assert.Equal(t, "first", res.Countries[0].CountryName)
}

func TestApplyIsIdempotent(t *testing.T) {
	now := time.Now().UTC()

	f := fact(1, 2020, "EFCtot")
	f.Carbon = fptr(50)
	f.Value = fptr(200)

	once := Apply(nil, []model.FootprintRecord{f}, now)
	twice := Apply(nil, once.Facts, now)

	assert.Equal(t, once.Facts, twice.Facts)
	assert.Zero(t, twice.DroppedFacts)
	assert.Zero(t, twice.DuplicateFacts)
}

func TestCarbonPct(t *testing.T) {
	tests := []struct {
		name   string
		carbon *float64
		value  *float64
		want   *float64
	}{
		{"both present", fptr(123), fptr(456), fptr(26.97)},
		{"rounds half up", fptr(1), fptr(3), fptr(33.33)},
		{"exact", fptr(50), fptr(200), fptr(25)},
		{"nil carbon", nil, fptr(456), nil},
		{"nil value", fptr(123), nil, nil},
		{"zero value", fptr(123), fptr(0), nil},
		{"negative value", fptr(123), fptr(-10), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CarbonPct(tt.carbon, tt.value)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.0001)
		})
	}
}

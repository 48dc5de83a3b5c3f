package gfnapi

import "context"

// Mock is an in-process API serving deterministic fixture data, used for
// smoke runs without credentials and in tests.
type Mock struct {
	// Fail, when set, makes every call return this error.
	Fail error
}

func fptr(v float64) *float64 { return &v }

var mockCountries = []RawCountry{
	{CountryCode: FlexInt{Int: 1, Valid: true}, CountryName: "France", ShortName: "France", IsoAlpha2: "FR", Score: "3A"},
	{CountryCode: FlexInt{Int: 2, Valid: true}, CountryName: "Germany", ShortName: "Germany", IsoAlpha2: "DE", Score: "3A"},
}

var mockTypes = []RawType{
	{Code: "1", Name: "Ecological Footprint (Consumption)", Record: "EFCtot"},
	{Code: "2", Name: "Biocapacity", Record: "BiocapTot"},
}

// Countries implements API.
func (m *Mock) Countries(ctx context.Context) ([]RawCountry, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([]RawCountry, len(mockCountries))
	copy(out, mockCountries)
	return out, nil
}

// Types implements API.
func (m *Mock) Types(ctx context.Context) ([]RawType, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([]RawType, len(mockTypes))
	copy(out, mockTypes)
	return out, nil
}

// YearData implements API.
func (m *Mock) YearData(ctx context.Context, year int) ([]RawFact, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	facts := make([]RawFact, 0, len(mockCountries)*len(mockTypes))
	for _, c := range mockCountries {
		for _, t := range mockTypes {
			f := RawFact{
				CountryCode: c.CountryCode,
				CountryName: c.CountryName,
				IsoAlpha2:   c.IsoAlpha2,
				Year:        FlexInt{Int: year, Valid: true},
				Record:      t.Record,
				CropLand:    fptr(0.11 * float64(c.CountryCode.Int)),
				GrazingLand: fptr(0.07 * float64(c.CountryCode.Int)),
				ForestLand:  fptr(0.23 * float64(c.CountryCode.Int)),
				Value:       fptr(456.0 * float64(c.CountryCode.Int)),
				Score:       "3A",
			}
			if t.Record == "EFCtot" {
				f.Carbon = fptr(123.0 * float64(c.CountryCode.Int))
			}
			facts = append(facts, f)
		}
	}
	return facts, nil
}

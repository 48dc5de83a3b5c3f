package gfnapi

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexInt decodes a JSON number or numeric string. Anything else (null,
// "world", "all", objects) leaves Valid false instead of failing the
// whole payload. The bulk endpoint mixes aggregate rows tagged with
// pseudo-codes into per-country data, so decoding must tolerate them.
type FlexInt struct {
	Int   int
	Valid bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	f.Int, f.Valid = 0, false
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		var err error
		s, err = strconv.Unquote(s)
		if err != nil {
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Tolerate floats like 2020.0 that some endpoints emit.
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || fl != float64(int(fl)) {
			return nil
		}
		n = int(fl)
	}
	f.Int, f.Valid = n, true
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Int)
}

// RawCountry is a row from GET /countries.
type RawCountry struct {
	CountryCode FlexInt `json:"countryCode"`
	CountryName string  `json:"countryName"`
	ShortName   string  `json:"shortName"`
	IsoAlpha2   string  `json:"isoa2"`
	Score       string  `json:"score"`
}

// RawType is a row from GET /types: a record type code with metadata.
type RawType struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Record string `json:"record"`
}

// RawFact is a row from the bulk per-year endpoint GET /data/all/{year}.
// Every metric is optional; the record type lives in the "record" field.
type RawFact struct {
	CountryCode   FlexInt  `json:"countryCode"`
	CountryName   string   `json:"countryName"`
	IsoAlpha2     string   `json:"isoa2"`
	Year          FlexInt  `json:"year"`
	Record        string   `json:"record"`
	CropLand      *float64 `json:"cropLand"`
	GrazingLand   *float64 `json:"grazingLand"`
	ForestLand    *float64 `json:"forestLand"`
	FishingGround *float64 `json:"fishingGround"`
	BuiltupLand   *float64 `json:"builtupLand"`
	Carbon        *float64 `json:"carbon"`
	Value         *float64 `json:"value"`
	Score         string   `json:"score"`
}

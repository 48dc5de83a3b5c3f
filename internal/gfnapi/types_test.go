package gfnapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexIntToleratesPseudoCodes(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		want  int
		valid bool
	}{
		{"number", `2020`, 2020, true},
		{"numeric string", `"2020"`, 2020, true},
		{"integral float", `2020.0`, 2020, true},
		{"null", `null`, 0, false},
		{"world pseudo-code", `"world"`, 0, false},
		{"all pseudo-code", `"all"`, 0, false},
		{"fractional float", `2020.5`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexInt
			require.NoError(t, json.Unmarshal([]byte(tt.json), &f))
			assert.Equal(t, tt.want, f.Int)
			assert.Equal(t, tt.valid, f.Valid)
		})
	}
}

func TestRawFactDecodesAggregateRowWithoutFailing(t *testing.T) {
	payload := `[
		{"countryCode": 5001, "countryName": "World", "year": 2020, "record": "EFCtot", "value": 20000.5},
		{"countryCode": "world", "countryName": "World", "year": "all", "record": "EFCtot"}
	]`

	var facts []RawFact
	require.NoError(t, json.Unmarshal([]byte(payload), &facts))
	require.Len(t, facts, 2)

	assert.True(t, facts[0].CountryCode.Valid)
	assert.Equal(t, 5001, facts[0].CountryCode.Int)
	require.NotNil(t, facts[0].Value)
	assert.Equal(t, 20000.5, *facts[0].Value)

	// The pseudo-row survives decoding but is flagged invalid for dropping.
	assert.False(t, facts[1].CountryCode.Valid)
	assert.False(t, facts[1].Year.Valid)
}

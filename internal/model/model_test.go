package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactKey(t *testing.T) {
	r := FootprintRecord{CountryCode: 1, Year: 2020, RecordType: "EFCtot"}
	k := r.Key()
	assert.Equal(t, FactKey{CountryCode: 1, Year: 2020, RecordType: "EFCtot"}, k)
	assert.Equal(t, "1/2020/EFCtot", k.String())
}

func TestSortedTypeCodes(t *testing.T) {
	facts := []FootprintRecord{
		{RecordType: "EFCtot"},
		{RecordType: "BiocapTot"},
		{RecordType: "EFCtot"},
		{RecordType: "AreaTot"},
	}
	assert.Equal(t, []string{"AreaTot", "BiocapTot", "EFCtot"}, SortedTypeCodes(facts))
	assert.Empty(t, SortedTypeCodes(nil))
}

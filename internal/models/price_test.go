package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1234.50", FormatPrice("1234.5"))
	assert.Equal(t, "7.00", FormatPrice(float64(7)))
	assert.Equal(t, "0.00", FormatPrice("garbage"))
}

func TestPriceBook_SortByPhd(t *testing.T) {
	book := PriceBook{
		"EK": {"2024": {"3": {
			{"phd": "30"},
			{"phd": float64(11)},
			{"phd": "20.5"},
		}}},
	}
	book.Sort()
	entries := book["EK"]["2024"]["3"]
	assert.Equal(t, "11", Str(entries[0]["phd"]))
	assert.Equal(t, "20.5", Str(entries[1]["phd"]))
	assert.Equal(t, "30", Str(entries[2]["phd"]))
}

func TestPriceBook_MarshalModeOrder(t *testing.T) {
	book := PriceBook{
		"SM": {},
		"EK": {},
		"NT": {},
		"ZZ": {},
	}
	data, err := json.Marshal(book)
	require.NoError(t, err)

	s := string(data)
	ek := strings.Index(s, `"EK"`)
	nt := strings.Index(s, `"NT"`)
	sm := strings.Index(s, `"SM"`)
	zz := strings.Index(s, `"ZZ"`)
	assert.True(t, ek < nt && nt < sm && sm < zz, "mode order should be EK, NT, SM, then the rest: %s", s)
}

func TestPriceBook_MarshalYearsAndMonthsDescending(t *testing.T) {
	book := PriceBook{
		"EK": {
			"2023": {"1": {}},
			"2024": {"2": {}, "10": {}},
		},
	}
	data, err := json.Marshal(book)
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.Index(s, `"2024"`) < strings.Index(s, `"2023"`))
	assert.True(t, strings.Index(s, `"10"`) < strings.Index(s, `"2"`))
}

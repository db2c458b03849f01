package models

import (
	"sort"
	"strconv"
)

// PriceBook holds price entries keyed mode → year → month.
type PriceBook map[string]YearPrices

type YearPrices map[string]MonthPrices

type MonthPrices map[string][]PriceEntry

// PriceEntry is an open record; phd identifies the entry within a month
// and price is stored as a 2-decimal string.
type PriceEntry map[string]any

var priceModeOrder = map[string]int{"EK": 1, "NT": 2, "SM": 3}

// FormatPrice normalizes a price value to a 2-decimal string.
func FormatPrice(v any) string {
	return strconv.FormatFloat(Num(v), 'f', 2, 64)
}

// Sort orders every month's entries by phd ascending. Key order is
// handled at marshal time.
func (p PriceBook) Sort() {
	for _, years := range p {
		for _, months := range years {
			for _, entries := range months {
				sort.SliceStable(entries, func(i, j int) bool {
					return Num(entries[i]["phd"]) < Num(entries[j]["phd"])
				})
			}
		}
	}
}

// MarshalJSON writes modes in EK/NT/SM priority order and years descending.
func (p PriceBook) MarshalJSON() ([]byte, error) {
	keys := mapKeys(p)
	sort.SliceStable(keys, func(i, j int) bool {
		pi, ok := priceModeOrder[keys[i]]
		if !ok {
			pi = 999
		}
		pj, ok := priceModeOrder[keys[j]]
		if !ok {
			pj = 999
		}
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	return marshalOrderedObject(keys, func(k string) any { return p[k] })
}

// MarshalJSON writes years newest-first.
func (y YearPrices) MarshalJSON() ([]byte, error) {
	keys := mapKeys(y)
	numericKeysDesc(keys)
	return marshalOrderedObject(keys, func(k string) any { return y[k] })
}

// MarshalJSON writes months newest-first.
func (m MonthPrices) MarshalJSON() ([]byte, error) {
	keys := mapKeys(m)
	numericKeysDesc(keys)
	return marshalOrderedObject(keys, func(k string) any { return m[k] })
}

package models

import "sort"

// CreditNote is an open payment record identified by exactly one of the
// identifier fields below.
type CreditNote map[string]any

// CreditNoteIDFields in lookup priority order: credit note number, order
// payment number, late payment number.
var CreditNoteIDFields = []string{"c/nno", "o/pno", "l/pno"}

// Identifier returns the record's identifier field and value, or "" when
// none is present.
func (n CreditNote) Identifier() (field, value string) {
	for _, f := range CreditNoteIDFields {
		if v := Str(n[f]); v != "" {
			return f, v
		}
	}
	return "", ""
}

// MatchesIdentifier reports whether any identifier field carries the value.
func (n CreditNote) MatchesIdentifier(value string) bool {
	for _, f := range CreditNoteIDFields {
		if Str(n[f]) == value {
			return true
		}
	}
	return false
}

// NormalizeCreditNote rewrites legacy field names and fills identifier
// defaults: lesspayment becomes l/pdollar, and credit-note records get
// empty dollar/euro amounts when absent.
func NormalizeCreditNote(n CreditNote) CreditNote {
	if v, ok := n["lesspayment"]; ok {
		n["l/pdollar"] = v
		delete(n, "lesspayment")
	}
	if Str(n["c/nno"]) != "" {
		if Str(n["c/ndollar"]) == "" {
			n["c/ndollar"] = ""
		}
		if Str(n["c/neuro"]) == "" {
			n["c/neuro"] = ""
		}
	}
	return n
}

func (n CreditNote) hasDated(noField, dateField string) bool {
	return Str(n[noField]) != "" && Str(n[dateField]) != ""
}

// SortCreditNotes orders records into three bands: late-payment records
// first (l/pdate ascending, always parsed year-first), then order-payment
// records (o/pdate ascending), then credit-note records (c/ndate
// ascending). o/p and c/n dates accept year-first and day-first forms.
func SortCreditNotes(notes []CreditNote) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]

		aLP := a.hasDated("l/pno", "l/pdate")
		bLP := b.hasDated("l/pno", "l/pdate")
		if aLP != bLP {
			return aLP
		}
		if aLP && bLP {
			return FlexibleDateKey(Str(a["l/pdate"]), true) < FlexibleDateKey(Str(b["l/pdate"]), true)
		}

		aOP := a.hasDated("o/pno", "o/pdate")
		bOP := b.hasDated("o/pno", "o/pdate")
		if aOP != bOP {
			return aOP
		}
		if aOP && bOP {
			return FlexibleDateKey(Str(a["o/pdate"]), false) < FlexibleDateKey(Str(b["o/pdate"]), false)
		}

		aCN := a.hasDated("c/nno", "c/ndate")
		bCN := b.hasDated("c/nno", "c/ndate")
		if aCN && bCN {
			return FlexibleDateKey(Str(a["c/ndate"]), false) < FlexibleDateKey(Str(b["c/ndate"]), false)
		}
		return false
	})
}

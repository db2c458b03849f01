package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditNote_Identifier(t *testing.T) {
	n := CreditNote{"o/pno": "OP-1"}
	field, value := n.Identifier()
	assert.Equal(t, "o/pno", field)
	assert.Equal(t, "OP-1", value)

	n = CreditNote{"c/nno": "CN-1", "o/pno": "OP-1"}
	field, _ = n.Identifier()
	assert.Equal(t, "c/nno", field, "c/nno wins over o/pno")

	_, value = CreditNote{}.Identifier()
	assert.Equal(t, "", value)
}

func TestCreditNote_MatchesIdentifier(t *testing.T) {
	n := CreditNote{"l/pno": float64(77)}
	assert.True(t, n.MatchesIdentifier("77"))
	assert.False(t, n.MatchesIdentifier("78"))
}

func TestNormalizeCreditNote_LegacyField(t *testing.T) {
	n := NormalizeCreditNote(CreditNote{"lesspayment": "100"})
	assert.Equal(t, "100", n["l/pdollar"])
	_, ok := n["lesspayment"]
	assert.False(t, ok)
}

func TestNormalizeCreditNote_CreditNoteDefaults(t *testing.T) {
	n := NormalizeCreditNote(CreditNote{"c/nno": "CN-1"})
	assert.Equal(t, "", n["c/ndollar"])
	assert.Equal(t, "", n["c/neuro"])

	// Existing amounts survive.
	n = NormalizeCreditNote(CreditNote{"c/nno": "CN-1", "c/ndollar": "50"})
	assert.Equal(t, "50", n["c/ndollar"])

	// Non credit-note records are left alone.
	n = NormalizeCreditNote(CreditNote{"o/pno": "OP-1"})
	_, ok := n["c/ndollar"]
	assert.False(t, ok)
}

func TestSortCreditNotes_Banding(t *testing.T) {
	notes := []CreditNote{
		{"c/nno": "cn2", "c/ndate": "2024.2.1"},
		{"o/pno": "op1", "o/pdate": "15.1.2024"},
		{"l/pno": "lp2", "l/pdate": "2024.3.1"},
		{"c/nno": "cn1", "c/ndate": "2024.1.1"},
		{"l/pno": "lp1", "l/pdate": "2024.1.1"},
	}
	SortCreditNotes(notes)

	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		_, v := n.Identifier()
		ids = append(ids, v)
	}
	require.Equal(t, []string{"lp1", "lp2", "op1", "cn1", "cn2"}, ids)
}

func TestSortCreditNotes_RequiresNumberAndDate(t *testing.T) {
	// An l/pno without an l/pdate does not join the late-payment band.
	notes := []CreditNote{
		{"l/pno": "lp-undated", "o/pno": "op2", "o/pdate": "2024.5.1"},
		{"l/pno": "lp1", "l/pdate": "2024.1.1"},
	}
	SortCreditNotes(notes)
	_, first := notes[0].Identifier()
	assert.Equal(t, "lp1", first)
}

func TestSortCreditNotes_FlexibleDates(t *testing.T) {
	// o/p dates accept day-first and year-first forms in one list.
	notes := []CreditNote{
		{"o/pno": "b", "o/pdate": "2024.3.1"},
		{"o/pno": "a", "o/pdate": "15.1.2024"},
	}
	SortCreditNotes(notes)
	_, first := notes[0].Identifier()
	assert.Equal(t, "a", first)
}

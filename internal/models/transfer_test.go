package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferBook_Section(t *testing.T) {
	book := &TransferBook{Payrolls: []Entry{{"name": "kim"}}}

	entries, ok := book.Section("payrolls")
	assert.True(t, ok)
	assert.Len(t, entries, 1)

	_, ok = book.Section("salaries")
	assert.False(t, ok)
}

func TestTransferBook_SetSection(t *testing.T) {
	book := &TransferBook{}
	book.SetSection("deposits", []Entry{{"sender": "a"}})
	assert.Len(t, book.Deposits, 1)
}

func TestRenumber(t *testing.T) {
	entries := []Entry{
		{"id": 7, "description": "a"},
		{"id": 3, "description": "b"},
		{"description": "c"},
	}
	Renumber(entries)
	assert.Equal(t, 1, entries[0]["id"])
	assert.Equal(t, 2, entries[1]["id"])
	assert.Equal(t, 3, entries[2]["id"])
}

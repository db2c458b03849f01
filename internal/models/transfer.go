package models

// TransferBook groups the three money-movement ledgers. Entries are open
// records carrying a synthetic sequential id.
type TransferBook struct {
	Transfers []Entry `json:"transfers"`
	Payrolls  []Entry `json:"payrolls"`
	Deposits  []Entry `json:"deposits"`
}

type Entry map[string]any

// TransferSections in canonical order.
var TransferSections = []string{"transfers", "payrolls", "deposits"}

// Section returns the named list; ok is false for an unknown section.
func (b *TransferBook) Section(name string) ([]Entry, bool) {
	switch name {
	case "transfers":
		return b.Transfers, true
	case "payrolls":
		return b.Payrolls, true
	case "deposits":
		return b.Deposits, true
	default:
		return nil, false
	}
}

// SetSection replaces the named list.
func (b *TransferBook) SetSection(name string, entries []Entry) {
	switch name {
	case "transfers":
		b.Transfers = entries
	case "payrolls":
		b.Payrolls = entries
	case "deposits":
		b.Deposits = entries
	}
}

// Renumber rewrites ids sequentially from 1 after a delete.
func Renumber(entries []Entry) {
	for i, e := range entries {
		e["id"] = i + 1
	}
}

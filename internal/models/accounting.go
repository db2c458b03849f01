package models

import "sort"

// AccountingBook is the accounting document. Categories other than
// balance are created on first use and omitted from the file until then.
type AccountingBook struct {
	Balance     []BalanceAccount   `json:"balance"`
	Transaction *TransactionLedger `json:"transaction,omitempty"`
	Notes       CompanyNotes       `json:"notes,omitempty"`
	LoanTo      DateEntries        `json:"loanto,omitempty"`
	Debt        DateEntries        `json:"debt,omitempty"`
}

// BalanceAccount tracks one bank account's balance per date.
type BalanceAccount struct {
	Name     string     `json:"name"`
	Bank     string     `json:"bank"`
	Balances DateValues `json:"balances"`
}

type TransactionLedger struct {
	Deposit    DateEntries `json:"deposit"`
	Withdrawal DateEntries `json:"withdrawal"`
}

// DateValues maps a date key to a scalar value, marshalled in ascending
// date order.
type DateValues map[string]any

// DateEntries maps a date key to its records, marshalled in ascending
// date order.
type DateEntries map[string][]Entry

// CompanyNotes maps a company key to its dated records.
type CompanyNotes map[string]DateEntries

// EnsureTransaction lazily creates the transaction ledger.
func (b *AccountingBook) EnsureTransaction() *TransactionLedger {
	if b.Transaction == nil {
		b.Transaction = &TransactionLedger{
			Deposit:    DateEntries{},
			Withdrawal: DateEntries{},
		}
	}
	if b.Transaction.Deposit == nil {
		b.Transaction.Deposit = DateEntries{}
	}
	if b.Transaction.Withdrawal == nil {
		b.Transaction.Withdrawal = DateEntries{}
	}
	return b.Transaction
}

// FindBalance returns the account matching name and bank, or nil.
func (b *AccountingBook) FindBalance(name, bank string) *BalanceAccount {
	for i := range b.Balance {
		if b.Balance[i].Name == name && b.Balance[i].Bank == bank {
			return &b.Balance[i]
		}
	}
	return nil
}

func dateSortedKeys[V any](m map[string]V) []string {
	keys := mapKeys(m)
	sort.SliceStable(keys, func(i, j int) bool { return DateLess(keys[i], keys[j]) })
	return keys
}

func (v DateValues) MarshalJSON() ([]byte, error) {
	keys := dateSortedKeys(v)
	return marshalOrderedObject(keys, func(k string) any { return v[k] })
}

func (e DateEntries) MarshalJSON() ([]byte, error) {
	keys := dateSortedKeys(e)
	return marshalOrderedObject(keys, func(k string) any { return e[k] })
}

func (n CompanyNotes) MarshalJSON() ([]byte, error) {
	keys := dateSortedKeys(n)
	return marshalOrderedObject(keys, func(k string) any { return n[k] })
}

package store

import (
	"path/filepath"

	"eltro-backend/internal/models"
)

// Document file names inside the data directory.
const (
	PriceFile      = "priceData.json"
	OrderFile      = "orderData.json"
	CreditNoteFile = "creditnote.json"
	TransferFile   = "transfer.json"
	CalendarFile   = "calendar.json"
	AccountingFile = "accounting.json"
)

// Stores bundles the six document stores.
type Stores struct {
	Prices      *Store[models.PriceBook]
	Orders      *Store[[]models.Order]
	CreditNotes *Store[[]models.CreditNote]
	Transfers   *Store[models.TransferBook]
	Calendar    *Store[models.Calendar]
	Accounting  *Store[models.AccountingBook]
}

// Open builds the stores against dataDir and loads each one.
func Open(dataDir string) *Stores {
	s := &Stores{
		Prices: New(filepath.Join(dataDir, PriceFile), func() models.PriceBook {
			return models.PriceBook{}
		}),
		Orders: New(filepath.Join(dataDir, OrderFile), func() []models.Order {
			return []models.Order{}
		}),
		CreditNotes: New(filepath.Join(dataDir, CreditNoteFile), func() []models.CreditNote {
			return []models.CreditNote{}
		}),
		Transfers: New(filepath.Join(dataDir, TransferFile), func() models.TransferBook {
			return models.TransferBook{
				Transfers: []models.Entry{},
				Payrolls:  []models.Entry{},
				Deposits:  []models.Entry{},
			}
		}),
		Calendar: New(filepath.Join(dataDir, CalendarFile), func() models.Calendar {
			return models.Calendar{}
		}),
		Accounting: New(filepath.Join(dataDir, AccountingFile), func() models.AccountingBook {
			return models.AccountingBook{Balance: []models.BalanceAccount{}}
		}),
	}

	s.Prices.Load()
	s.Orders.Load()
	s.CreditNotes.Load()
	s.Transfers.Load()
	s.Calendar.Load()
	s.Accounting.Load()

	// Orders carry a canonical ordering, apply it to whatever was on disk.
	// In memory only, the file is rewritten on the next mutation.
	s.Orders.Mutate(func(orders *[]models.Order) {
		models.SortOrders(*orders)
	})

	return s
}

// Reloadables lists the stores for the data-dir watcher.
func (s *Stores) Reloadables() []Reloadable {
	return []Reloadable{
		s.Prices, s.Orders, s.CreditNotes, s.Transfers, s.Calendar, s.Accounting,
	}
}

package accounting

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

// GET /api/accounting
// ?date= returns each account's balance on that date, ?previousDay=true
// with a date returns each account's latest balance strictly before the
// date. Without parameters the whole document is returned.
func GetHandler(st *store.Store[models.AccountingBook]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := c.Query("date")
		previousDay := c.Query("previousDay") == "true"

		var body []byte
		var err error
		st.View(func(book models.AccountingBook) {
			switch {
			case previousDay && date != "":
				body, err = json.Marshal(balancesBefore(book, date))
			case date != "":
				body, err = json.Marshal(balancesOn(book, date))
			default:
				body, err = json.Marshal(book)
			}
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "데이터 로드 중 오류가 발생했습니다.")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}

type balanceView struct {
	Name    string `json:"name"`
	Bank    string `json:"bank"`
	Balance any    `json:"balance"`
}

func balancesOn(book models.AccountingBook, date string) []balanceView {
	result := []balanceView{}
	for _, acct := range book.Balance {
		if v, ok := acct.Balances[date]; ok {
			result = append(result, balanceView{Name: acct.Name, Bank: acct.Bank, Balance: v})
		}
	}
	return result
}

func balancesBefore(book models.AccountingBook, date string) []balanceView {
	result := []balanceView{}
	for _, acct := range book.Balance {
		latest := ""
		for d := range acct.Balances {
			if d >= date {
				continue
			}
			if latest == "" || models.DateLess(latest, d) {
				latest = d
			}
		}
		if latest != "" {
			result = append(result, balanceView{Name: acct.Name, Bank: acct.Bank, Balance: acct.Balances[latest]})
		}
	}
	return result
}

type saveRequest struct {
	Category string       `json:"category"`
	Data     models.Entry `json:"data"`
}

// POST /api/accounting
// Dispatches on category: balance (keyed name+bank, sets the date's
// value), transaction (deposit rows dedup by name+description and only
// take the new amount; withdrawal rows dedup by description), notes
// (keyed by deliveryNo per company and date), loanto and debt (keyed by
// company per date).
func SaveHandler(st *store.Store[models.AccountingBook], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req saveRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		if req.Category == "" || req.Data == nil {
			return fiber.NewError(fiber.StatusBadRequest, "카테고리와 데이터가 필요합니다.")
		}

		added := 0
		updated := 0
		message := ""

		err := st.Update(func(book *models.AccountingBook) error {
			switch req.Category {
			case "balance":
				return saveBalance(book, req.Data, &added, &message)
			case "transaction":
				return saveTransaction(book, req.Data, &added, &updated, &message)
			case "notes":
				return saveNotes(book, req.Data, &added, &updated, &message)
			case "loanto":
				book.LoanTo = saveDatedByCompany(book.LoanTo, req.Data, &added, &updated, &message, "LoanTo")
				if message == "" {
					return fiber.NewError(fiber.StatusBadRequest, "date, data가 필요합니다.")
				}
				return nil
			case "debt":
				book.Debt = saveDatedByCompany(book.Debt, req.Data, &added, &updated, &message, "Debt")
				if message == "" {
					return fiber.NewError(fiber.StatusBadRequest, "date, data가 필요합니다.")
				}
				return nil
			default:
				return fiber.NewError(fiber.StatusBadRequest, "지원하지 않는 카테고리입니다.")
			}
		})
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				return e
			}
			return fiber.NewError(fiber.StatusInternalServerError, "서버 오류가 발생했습니다.")
		}

		rec.Write(auth.SectionFromCtx(c), "accounting", audit.ActionUpdate,
			fmt.Sprintf("save %s (%d added, %d updated)", req.Category, added, updated), req)

		return c.JSON(fiber.Map{
			"success":      true,
			"message":      message,
			"addedItems":   added,
			"updatedItems": updated,
		})
	}
}

func saveBalance(book *models.AccountingBook, data models.Entry, added *int, message *string) error {
	name := models.Str(data["name"])
	bank := models.Str(data["bank"])
	date := models.Str(data["date"])
	balance, hasBalance := data["balance"]
	if name == "" || bank == "" || date == "" || !hasBalance {
		return fiber.NewError(fiber.StatusBadRequest, "name, bank, date, balance가 필요합니다.")
	}

	acct := book.FindBalance(name, bank)
	if acct == nil {
		book.Balance = append(book.Balance, models.BalanceAccount{
			Name:     name,
			Bank:     bank,
			Balances: models.DateValues{},
		})
		acct = &book.Balance[len(book.Balance)-1]
		*added = 1
	}
	if acct.Balances == nil {
		acct.Balances = models.DateValues{}
	}
	acct.Balances[date] = balance
	*message = fmt.Sprintf("%s 날짜의 Balance 데이터가 저장되었습니다.", date)
	return nil
}

func saveTransaction(book *models.AccountingBook, data models.Entry, added, updated *int, message *string) error {
	txType := models.Str(data["type"])
	date := models.Str(data["date"])
	items, ok := data["items"].([]any)
	if txType == "" || date == "" || !ok {
		return fiber.NewError(fiber.StatusBadRequest, "type, date, items가 필요합니다.")
	}

	ledger := book.EnsureTransaction()
	var bucket models.DateEntries
	switch txType {
	case "deposit":
		bucket = ledger.Deposit
	case "withdrawal":
		bucket = ledger.Withdrawal
	default:
		return fiber.NewError(fiber.StatusBadRequest, "지원하지 않는 거래 유형입니다.")
	}

	existing := bucket[date]
	for _, raw := range items {
		newItem, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		description := strings.TrimSpace(models.Str(newItem["description"]))
		if description == "" {
			continue
		}
		newItem["description"] = description

		idx := -1
		if txType == "deposit" {
			name := strings.TrimSpace(models.Str(newItem["name"]))
			for i, item := range existing {
				if strings.TrimSpace(models.Str(item["name"])) == name &&
					strings.TrimSpace(models.Str(item["description"])) == description {
					idx = i
					break
				}
			}
		} else {
			for i, item := range existing {
				if strings.TrimSpace(models.Str(item["description"])) == description {
					idx = i
					break
				}
			}
		}

		if idx != -1 {
			if txType == "deposit" {
				existing[idx]["amount"] = newItem["amount"]
			} else {
				existing[idx]["name"] = models.Str(newItem["name"])
				existing[idx]["amount"] = newItem["amount"]
				existing[idx]["description"] = description
				if v, ok := newItem["disabled"]; ok {
					existing[idx]["disabled"] = v
				}
			}
			*updated++
		} else {
			existing = append(existing, models.Entry(newItem))
			*added++
		}
	}

	bucket[date] = existing
	*message = fmt.Sprintf("%s 날짜의 %s: %d개 항목 추가, %d개 항목 수정", date, txType, *added, *updated)
	return nil
}

func saveNotes(book *models.AccountingBook, data models.Entry, added, updated *int, message *string) error {
	company := models.Str(data["company"])
	date := models.Str(data["date"])
	rows, ok := data["data"].([]any)
	if company == "" || date == "" || !ok {
		return fiber.NewError(fiber.StatusBadRequest, "company, date, data가 필요합니다.")
	}

	if book.Notes == nil {
		book.Notes = models.CompanyNotes{}
	}
	if book.Notes[company] == nil {
		book.Notes[company] = models.DateEntries{}
	}

	existing := book.Notes[company][date]
	for _, raw := range rows {
		newItem, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		idx := -1
		for i, item := range existing {
			if models.Str(item["deliveryNo"]) == models.Str(newItem["deliveryNo"]) {
				idx = i
				break
			}
		}
		if idx != -1 {
			existing[idx] = models.Entry(newItem)
			*updated++
		} else {
			existing = append(existing, models.Entry(newItem))
			*added++
		}
	}
	book.Notes[company][date] = existing
	*message = fmt.Sprintf("%s 날짜의 %s 데이터가 저장되었습니다. (추가: %d, 업데이트: %d)", date, company, *added, *updated)
	return nil
}

// saveDatedByCompany covers loanto and debt: rows keyed by company
// within one date bucket, whole-row replacement on match.
func saveDatedByCompany(bucket models.DateEntries, data models.Entry, added, updated *int, message *string, label string) models.DateEntries {
	date := models.Str(data["date"])
	rows, ok := data["data"].([]any)
	if date == "" || !ok {
		return bucket
	}

	if bucket == nil {
		bucket = models.DateEntries{}
	}
	existing := bucket[date]
	for _, raw := range rows {
		newItem, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		idx := -1
		for i, item := range existing {
			if models.Str(item["company"]) == models.Str(newItem["company"]) {
				idx = i
				break
			}
		}
		if idx != -1 {
			existing[idx] = models.Entry(newItem)
			*updated++
		} else {
			existing = append(existing, models.Entry(newItem))
			*added++
		}
	}
	bucket[date] = existing
	*message = fmt.Sprintf("%s 날짜의 %s 데이터가 저장되었습니다. (추가: %d, 업데이트: %d)", date, label, *added, *updated)
	return bucket
}

type deleteRequest struct {
	Mode        string `json:"mode"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Bank        string `json:"bank"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Company     string `json:"company"`
	DeliveryNo  string `json:"deliveryNo"`
	DueDate     string `json:"dueDate"`
}

// DELETE /api/accounting
// mode=by-name sweeps balance accounts plus loanto/debt rows across all
// dates. Otherwise the category names the delete: balance by name+bank,
// transaction by type+date+description, notes by company+date+deliveryNo
// (and dueDate when given). Category deletes report "not found" in the
// body rather than a 404, old pages rely on that.
func DeleteHandler(st *store.Store[models.AccountingBook], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}

		if req.Mode == "by-name" {
			return deleteByName(c, st, rec, req.Name)
		}
		if req.Category == "" {
			return fiber.NewError(fiber.StatusBadRequest, "카테고리가 필요합니다.")
		}

		success := false
		message := ""
		err := st.Update(func(book *models.AccountingBook) error {
			switch req.Category {
			case "balance":
				if req.Name == "" || req.Bank == "" {
					return fiber.NewError(fiber.StatusBadRequest, "name과 bank가 필요합니다.")
				}
				kept := book.Balance[:0]
				for _, acct := range book.Balance {
					if acct.Name == req.Name && acct.Bank == req.Bank {
						continue
					}
					kept = append(kept, acct)
				}
				if len(kept) < len(book.Balance) {
					book.Balance = kept
					success = true
					message = fmt.Sprintf("%s (%s) 계좌가 삭제되었습니다.", req.Name, req.Bank)
				} else {
					message = "삭제할 계좌를 찾을 수 없습니다."
				}

			case "transaction":
				if req.Type == "" || req.Date == "" || req.Description == "" {
					return fiber.NewError(fiber.StatusBadRequest, "type, date, description이 필요합니다.")
				}
				if book.Transaction == nil {
					return fiber.NewError(fiber.StatusNotFound, "transaction 데이터가 없습니다.")
				}
				var bucket models.DateEntries
				var label string
				switch req.Type {
				case "deposit":
					bucket, label = book.Transaction.Deposit, "입금"
				case "withdrawal":
					bucket, label = book.Transaction.Withdrawal, "출금"
				default:
					return fiber.NewError(fiber.StatusBadRequest, "지원하지 않는 거래 유형입니다.")
				}
				entries, ok := bucket[req.Date]
				if !ok {
					message = fmt.Sprintf("해당 날짜의 %s 데이터가 없습니다.", label)
					break
				}
				kept := entries[:0]
				for _, e := range entries {
					if models.Str(e["description"]) == req.Description {
						continue
					}
					kept = append(kept, e)
				}
				if len(kept) < len(entries) {
					bucket[req.Date] = kept
					success = true
					message = fmt.Sprintf("%s 거래 \"%s\"이 삭제되었습니다.", label, req.Description)
				} else {
					message = fmt.Sprintf("삭제할 %s 거래를 찾을 수 없습니다.", label)
				}

			case "notes":
				if req.Company == "" || req.Date == "" || req.DeliveryNo == "" {
					return fiber.NewError(fiber.StatusBadRequest, "company, date, deliveryNo가 필요합니다.")
				}
				if book.Notes == nil {
					return fiber.NewError(fiber.StatusNotFound, "notes 데이터가 없습니다.")
				}
				dates, ok := book.Notes[req.Company]
				if !ok {
					return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%s 데이터가 없습니다.", req.Company))
				}
				entries, ok := dates[req.Date]
				if !ok {
					return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%s 날짜의 데이터가 없습니다.", req.Date))
				}
				kept := entries[:0]
				for _, e := range entries {
					match := models.Str(e["deliveryNo"]) == req.DeliveryNo
					if match && req.DueDate != "" {
						match = models.Str(e["dueDate"]) == req.DueDate
					}
					if match {
						continue
					}
					kept = append(kept, e)
				}
				if len(kept) < len(entries) {
					if len(kept) == 0 {
						delete(dates, req.Date)
					} else {
						dates[req.Date] = kept
					}
					success = true
					message = fmt.Sprintf("%s의 %s 날짜 %s 항목이 삭제되었습니다.", req.Company, req.Date, req.DeliveryNo)
				} else {
					message = "삭제할 항목을 찾을 수 없습니다."
				}

			default:
				return fiber.NewError(fiber.StatusBadRequest, "지원하지 않는 카테고리입니다.")
			}

			if !success {
				// Nothing changed, skip the disk write.
				return errNoChange
			}
			return nil
		})
		if err != nil && err != errNoChange {
			if e, ok := err.(*fiber.Error); ok {
				return e
			}
			return fiber.NewError(fiber.StatusInternalServerError, "서버 오류가 발생했습니다.")
		}

		if success {
			rec.Write(auth.SectionFromCtx(c), "accounting", audit.ActionDelete,
				fmt.Sprintf("delete %s", req.Category), req)
		}
		return c.JSON(fiber.Map{"success": success, "message": message})
	}
}

var errNoChange = fmt.Errorf("no change")

func deleteByName(c *fiber.Ctx, st *store.Store[models.AccountingBook], rec *audit.Recorder, name string) error {
	if name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "명칭이 필요합니다.")
	}

	err := st.Update(func(book *models.AccountingBook) error {
		deleted := false

		kept := book.Balance[:0]
		for _, acct := range book.Balance {
			if acct.Name == name {
				deleted = true
				continue
			}
			kept = append(kept, acct)
		}
		book.Balance = kept

		for _, bucket := range []models.DateEntries{book.LoanTo, book.Debt} {
			for date, entries := range bucket {
				filtered := entries[:0]
				for _, e := range entries {
					if models.Str(e["company"]) == name {
						deleted = true
						continue
					}
					filtered = append(filtered, e)
				}
				if len(filtered) == 0 {
					delete(bucket, date)
				} else {
					bucket[date] = filtered
				}
			}
		}

		if !deleted {
			return fiber.NewError(fiber.StatusNotFound, "해당 명칭의 항목을 찾을 수 없습니다.")
		}
		return nil
	})
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			return e
		}
		return fiber.NewError(fiber.StatusInternalServerError, "서버 오류가 발생했습니다.")
	}

	rec.Write(auth.SectionFromCtx(c), "accounting", audit.ActionDelete, "deleteByName "+name, nil)
	return c.JSON(fiber.Map{"success": true, "message": "항목이 삭제되었습니다."})
}

type deleteByDateRequest struct {
	Date string `json:"date"`
}

// DELETE /api/accounting/delete-by-date
// Removes the date from every category and reports what was touched.
func DeleteByDateHandler(st *store.Store[models.AccountingBook], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteByDateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		if req.Date == "" {
			return fiber.NewError(fiber.StatusBadRequest, "날짜가 필요합니다.")
		}

		deletedCount := 0
		deletedCategories := []string{}

		err := st.Update(func(book *models.AccountingBook) error {
			for i := range book.Balance {
				if _, ok := book.Balance[i].Balances[req.Date]; ok {
					delete(book.Balance[i].Balances, req.Date)
					deletedCount++
				}
			}
			if book.Transaction != nil {
				if _, ok := book.Transaction.Deposit[req.Date]; ok {
					delete(book.Transaction.Deposit, req.Date)
					deletedCount++
					deletedCategories = append(deletedCategories, "deposit")
				}
				if _, ok := book.Transaction.Withdrawal[req.Date]; ok {
					delete(book.Transaction.Withdrawal, req.Date)
					deletedCount++
					deletedCategories = append(deletedCategories, "withdrawal")
				}
			}
			for company, dates := range book.Notes {
				if _, ok := dates[req.Date]; ok {
					delete(dates, req.Date)
					deletedCount++
					deletedCategories = append(deletedCategories, company)
				}
			}
			if _, ok := book.LoanTo[req.Date]; ok {
				delete(book.LoanTo, req.Date)
				deletedCount++
				deletedCategories = append(deletedCategories, "loanto")
			}
			if _, ok := book.Debt[req.Date]; ok {
				delete(book.Debt, req.Date)
				deletedCount++
				deletedCategories = append(deletedCategories, "debt")
			}

			if deletedCount == 0 {
				return fiber.NewError(fiber.StatusNotFound, "해당 날짜의 데이터가 없습니다.")
			}
			return nil
		})
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				return e
			}
			return fiber.NewError(fiber.StatusInternalServerError, "데이터 삭제 중 오류가 발생했습니다.")
		}

		rec.Write(auth.SectionFromCtx(c), "accounting", audit.ActionDelete,
			fmt.Sprintf("deleteByDate %s (%d buckets)", req.Date, deletedCount), req)

		return c.JSON(fiber.Map{
			"success":           true,
			"message":           fmt.Sprintf("%s 날짜의 데이터가 삭제되었습니다.", req.Date),
			"deletedCount":      deletedCount,
			"deletedCategories": deletedCategories,
		})
	}
}

package price

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"

	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

// GET /api/price
func GetPriceBookHandler(st *store.Store[models.PriceBook]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := st.JSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to read price data")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}

func ensureMonth(book models.PriceBook, mode, year, month string) {
	if book[mode] == nil {
		book[mode] = models.YearPrices{}
	}
	if book[mode][year] == nil {
		book[mode][year] = models.MonthPrices{}
	}
	if month != "" && book[mode][year][month] == nil {
		book[mode][year][month] = []models.PriceEntry{}
	}
}

// upsertEntry replaces the month's entry for phd or inserts it keeping
// phd order.
func upsertEntry(book models.PriceBook, mode, year, month string, phd, price any) {
	ensureMonth(book, mode, year, month)
	entries := book[mode][year][month]

	newEntry := models.PriceEntry{
		"phd":   phd,
		"price": models.FormatPrice(price),
	}

	for i, e := range entries {
		if models.Str(e["phd"]) == models.Str(phd) {
			entries[i] = newEntry
			return
		}
	}

	insertAt := len(entries)
	for i, e := range entries {
		if models.Num(e["phd"]) > models.Num(phd) {
			insertAt = i
			break
		}
	}
	entries = append(entries, nil)
	copy(entries[insertAt+1:], entries[insertAt:])
	entries[insertAt] = newEntry
	book[mode][year][month] = entries
}

// POST /api/price
// Three payload shapes share this endpoint: a full month replacement
// (mode, year, month, data[]), a single phd upsert (mode, year, month,
// phd, price) and a per-year history batch (mode, year, data[] with a
// month on each row). Anything else is a 400.
func SavePriceHandler(st *store.Store[models.PriceBook], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body map[string]any
		if err := c.BodyParser(&body); err != nil || body == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		mode := models.Str(body["mode"])
		year := models.Str(body["year"])
		month := models.Str(body["month"])
		data, dataIsArray := body["data"].([]any)
		phd, hasPhd := body["phd"]
		priceVal, hasPrice := body["price"]

		section := auth.SectionFromCtx(c)

		// Full month replacement.
		if mode != "" && year != "" && month != "" && dataIsArray {
			entries := toEntries(data)
			err := st.Update(func(book *models.PriceBook) error {
				ensureMonth(*book, mode, year, "")
				(*book)[mode][year][month] = entries
				book.Sort()
				return nil
			})
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Failed to save price data")
			}
			rec.Write(section, "price", audit.ActionUpdate,
				fmt.Sprintf("replace month %s/%s/%s (%d entries)", mode, year, month, len(entries)), body)
			return c.JSON(fiber.Map{
				"success": true,
				"message": "Price data saved successfully",
				"mode":    mode,
				"year":    body["year"],
				"month":   body["month"],
			})
		}

		// Single phd upsert.
		if mode != "" && year != "" && month != "" && hasPhd && hasPrice {
			err := st.Update(func(book *models.PriceBook) error {
				upsertEntry(*book, mode, year, month, phd, priceVal)
				return nil
			})
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Failed to save price data")
			}
			rec.Write(section, "price", audit.ActionUpdate,
				fmt.Sprintf("upsert %s/%s/%s phd=%s", mode, year, month, models.Str(phd)), body)
			return c.JSON(fiber.Map{
				"success": true,
				"message": "Individual price updated successfully",
				"mode":    mode,
				"year":    body["year"],
				"month":   body["month"],
				"phd":     phd,
				"price":   priceVal,
			})
		}

		// Year history batch, each row names its own month.
		if mode != "" && year != "" && month == "" && dataIsArray {
			err := st.Update(func(book *models.PriceBook) error {
				for _, raw := range data {
					row, ok := raw.(map[string]any)
					if !ok {
						continue
					}
					upsertEntry(*book, mode, year, models.Str(row["month"]), row["phd"], row["price"])
				}
				book.Sort()
				return nil
			})
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Failed to save price data")
			}
			rec.Write(section, "price", audit.ActionUpdate,
				fmt.Sprintf("history batch %s/%s (%d rows)", mode, year, len(data)), body)
			return c.JSON(fiber.Map{
				"success": true,
				"message": fmt.Sprintf("%s 모드 %s년 가격 데이터가 성공적으로 업데이트되었습니다.", mode, year),
				"mode":    mode,
				"year":    body["year"],
			})
		}

		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
}

func toEntries(data []any) []models.PriceEntry {
	entries := make([]models.PriceEntry, 0, len(data))
	for _, raw := range data {
		if m, ok := raw.(map[string]any); ok {
			entry := models.PriceEntry(m)
			entry["price"] = models.FormatPrice(entry["price"])
			entries = append(entries, entry)
		}
	}
	return entries
}

// POST /api/admin/import-prices
// Bulk loads one month of prices from an xlsx sheet. Rows are phd|price
// pairs; a header row is detected and skipped.
func ImportPricesHandler(st *store.Store[models.PriceBook], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode := c.FormValue("mode")
		year := c.FormValue("year")
		month := c.FormValue("month")
		if mode == "" || year == "" || month == "" {
			return fiber.NewError(fiber.StatusBadRequest, "mode, year, month 필드가 필요합니다.")
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "파일이 선택되지 않았습니다.")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "xlsx 파일만 업로드할 수 있습니다.")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "파일을 열 수 없습니다.")
		}
		defer file.Close()

		excelFile, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Excel 파일을 읽을 수 없습니다.")
		}
		defer excelFile.Close()

		sheets := excelFile.GetSheetList()
		if len(sheets) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Excel 파일에 시트가 없습니다.")
		}
		rows, err := excelFile.GetRows(sheets[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "시트를 읽을 수 없습니다.")
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Excel 파일이 비어 있습니다.")
		}

		start := 0
		if len(rows[0]) > 0 {
			first := strings.ToUpper(strings.TrimSpace(rows[0][0]))
			if strings.Contains(first, "PHD") || strings.Contains(first, "규격") {
				start = 1
			}
		}

		imported := 0
		skipped := 0
		err = st.Update(func(book *models.PriceBook) error {
			for i := start; i < len(rows); i++ {
				row := rows[i]
				if len(row) < 2 {
					skipped++
					continue
				}
				phd := strings.TrimSpace(row[0])
				price := strings.TrimSpace(row[1])
				if phd == "" || price == "" {
					skipped++
					continue
				}
				if _, err := strconv.ParseFloat(price, 64); err != nil {
					skipped++
					continue
				}
				upsertEntry(*book, mode, year, month, phd, price)
				imported++
			}
			book.Sort()
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to save price data")
		}

		rec.Write(auth.SectionFromCtx(c), "price", audit.ActionUpdate,
			fmt.Sprintf("xlsx import %s/%s/%s (%d imported)", mode, year, month, imported), nil)

		return c.JSON(fiber.Map{
			"success":  true,
			"imported": imported,
			"skipped":  skipped,
			"message":  fmt.Sprintf("%d개 가격이 등록되었습니다. %d개 행을 건너뛰었습니다.", imported, skipped),
		})
	}
}

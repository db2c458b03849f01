package price

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

func newPriceStore(t *testing.T) *store.Store[models.PriceBook] {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "priceData.json"), func() models.PriceBook {
		return models.PriceBook{}
	})
	st.Load()
	return st
}

func newPriceApp(st *store.Store[models.PriceBook]) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Get("/api/price", GetPriceBookHandler(st))
	app.Post("/api/price", SavePriceHandler(st, nil))
	return app
}

func postPrice(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/price", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded
}

func TestUpsertEntry_ReplaceAndInsertSorted(t *testing.T) {
	book := models.PriceBook{}
	upsertEntry(book, "EK", "2024", "3", "20", "100")
	upsertEntry(book, "EK", "2024", "3", "10", "50")
	upsertEntry(book, "EK", "2024", "3", "30", "150")

	entries := book["EK"]["2024"]["3"]
	require.Len(t, entries, 3)
	assert.Equal(t, "10", models.Str(entries[0]["phd"]))
	assert.Equal(t, "30", models.Str(entries[2]["phd"]))

	// Same phd replaces in place.
	upsertEntry(book, "EK", "2024", "3", "20", "120")
	entries = book["EK"]["2024"]["3"]
	require.Len(t, entries, 3)
	assert.Equal(t, "120.00", entries[1]["price"])
}

func TestSavePriceHandler_FullMonthReplace(t *testing.T) {
	st := newPriceStore(t)
	app := newPriceApp(st)

	status, body := postPrice(t, app,
		`{"mode":"EK","year":"2024","month":"3","data":[{"phd":"11","price":"100.00"},{"phd":"9","price":"90.00"}]}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Price data saved successfully", body["message"])
	assert.Equal(t, "2024", body["year"])

	st.View(func(book models.PriceBook) {
		entries := book["EK"]["2024"]["3"]
		require.Len(t, entries, 2)
		assert.Equal(t, "9", models.Str(entries[0]["phd"]), "entries are re-sorted by phd")
	})
}

func TestSavePriceHandler_FullMonthReplaceNormalizesPrices(t *testing.T) {
	st := newPriceStore(t)
	app := newPriceApp(st)

	status, _ := postPrice(t, app,
		`{"mode":"EK","year":"2024","month":"3","data":[{"phd":"001","price":"10.5"},{"phd":"002","price":7}]}`)
	require.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest("GET", "/api/price", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var book models.PriceBook
	require.NoError(t, json.Unmarshal(raw, &book))

	entries := book["EK"]["2024"]["3"]
	require.Len(t, entries, 2)
	assert.Equal(t, "10.50", entries[0]["price"])
	assert.Equal(t, "7.00", entries[1]["price"])
}

func TestSavePriceHandler_SingleUpsert(t *testing.T) {
	st := newPriceStore(t)
	app := newPriceApp(st)

	status, body := postPrice(t, app,
		`{"mode":"NT","year":"2024","month":"5","phd":"11","price":"123.4"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Individual price updated successfully", body["message"])
	assert.Equal(t, "11", body["phd"])

	st.View(func(book models.PriceBook) {
		entries := book["NT"]["2024"]["5"]
		require.Len(t, entries, 1)
		assert.Equal(t, "123.40", entries[0]["price"])
	})
}

func TestSavePriceHandler_HistoryBatch(t *testing.T) {
	st := newPriceStore(t)
	app := newPriceApp(st)

	status, body := postPrice(t, app,
		`{"mode":"SM","year":"2023","data":[{"month":"1","phd":"11","price":"10"},{"month":"2","phd":"11","price":"20"}]}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body["message"], "2023년")

	st.View(func(book models.PriceBook) {
		assert.Len(t, book["SM"]["2023"]["1"], 1)
		assert.Len(t, book["SM"]["2023"]["2"], 1)
	})
}

func TestSavePriceHandler_InvalidBody(t *testing.T) {
	app := newPriceApp(newPriceStore(t))

	status, body := postPrice(t, app, `{"mode":"EK"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["error"])
}

package transfer

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

func TestInferSection(t *testing.T) {
	assert.Equal(t, "payrolls", inferSection(models.Entry{"name": "kim", "position": "manager"}))
	assert.Equal(t, "deposits", inferSection(models.Entry{"sender": "acme", "date": "2024.1.1"}))
	assert.Equal(t, "transfers", inferSection(models.Entry{"description": "wire"}))
	// name without position is not a payroll row.
	assert.Equal(t, "transfers", inferSection(models.Entry{"name": "kim"}))
}

func TestAllEmpty(t *testing.T) {
	assert.True(t, allEmpty(models.Entry{}))
	assert.True(t, allEmpty(models.Entry{"a": "", "b": nil, "c": float64(0)}))
	assert.False(t, allEmpty(models.Entry{"a": "x"}))
	assert.False(t, allEmpty(models.Entry{"a": float64(1)}))
	assert.False(t, allEmpty(models.Entry{"a": true}))
}

func TestSectionSingular(t *testing.T) {
	assert.Equal(t, "transfer", sectionSingular("transfers"))
	assert.Equal(t, "payroll", sectionSingular("payrolls"))
	assert.Equal(t, "deposit", sectionSingular("deposits"))
}

func newTransferStore(t *testing.T) *store.Store[models.TransferBook] {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "transfer.json"), func() models.TransferBook {
		return models.TransferBook{
			Transfers: []models.Entry{},
			Payrolls:  []models.Entry{},
			Deposits:  []models.Entry{},
		}
	})
	st.Load()
	return st
}

func newTransferApp(st *store.Store[models.TransferBook]) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Get("/api/transfers", ListHandler(st))
	app.Post("/api/transfers", SaveHandler(st, nil))
	app.Delete("/api/transfers", DeleteHandler(st, nil))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, url, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded
}

func TestSaveHandler_CreateAndUpdate(t *testing.T) {
	st := newTransferStore(t)
	app := newTransferApp(st)

	status, body := doJSON(t, app, "POST", "/api/transfers",
		`{"description":"rent","amount":"500"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "created", body["action"])
	saved := body["transfer"].(map[string]any)
	assert.Equal(t, float64(1), saved["id"])

	// Same description updates in place and keeps the id.
	status, body = doJSON(t, app, "POST", "/api/transfers",
		`{"description":"rent","amount":"600"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "updated", body["action"])
	saved = body["transfer"].(map[string]any)
	assert.Equal(t, float64(1), saved["id"])
	assert.Equal(t, "600", saved["amount"])

	st.View(func(book models.TransferBook) {
		require.Len(t, book.Transfers, 1)
	})
}

func TestSaveHandler_SectionDiscriminantNotStored(t *testing.T) {
	st := newTransferStore(t)
	app := newTransferApp(st)

	status, _ := doJSON(t, app, "POST", "/api/transfers",
		`{"section":"deposits","description":"from acme","amount":"10"}`)
	require.Equal(t, fiber.StatusOK, status)

	st.View(func(book models.TransferBook) {
		require.Len(t, book.Deposits, 1)
		_, hasSection := book.Deposits[0]["section"]
		assert.False(t, hasSection)
	})
}

func TestSaveHandler_RefusesEmptyPayload(t *testing.T) {
	st := newTransferStore(t)
	app := newTransferApp(st)

	status, body := doJSON(t, app, "POST", "/api/transfers", `{"description":"","amount":""}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "빈 데이터는 저장하지 않습니다.", body["message"])
}

func TestSaveHandler_Reorder(t *testing.T) {
	st := newTransferStore(t)
	app := newTransferApp(st)

	status, body := doJSON(t, app, "POST", "/api/transfers",
		`{"action":"reorder","transfers":[{"id":1,"description":"b"},{"id":2,"description":"a"}]}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "reordered", body["action"])

	st.View(func(book models.TransferBook) {
		require.Len(t, book.Transfers, 2)
		assert.Equal(t, "b", book.Transfers[0]["description"])
	})
}

func TestDeleteHandler_RenumbersIDs(t *testing.T) {
	st := newTransferStore(t)
	require.NoError(t, st.Update(func(book *models.TransferBook) error {
		book.Transfers = []models.Entry{
			{"id": 1, "description": "a"},
			{"id": 2, "description": "b"},
			{"id": 3, "description": "c"},
		}
		return nil
	}))
	app := newTransferApp(st)

	status, body := doJSON(t, app, "DELETE", "/api/transfers", `{"description":"b"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	st.View(func(book models.TransferBook) {
		require.Len(t, book.Transfers, 2)
		assert.Equal(t, "a", book.Transfers[0]["description"])
		assert.Equal(t, 2, book.Transfers[1]["id"])
	})
}

func TestDeleteHandler_NotFound(t *testing.T) {
	st := newTransferStore(t)
	app := newTransferApp(st)

	status, _ := doJSON(t, app, "DELETE", "/api/transfers", `{"description":"missing"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestListHandler_SectionFilter(t *testing.T) {
	st := newTransferStore(t)
	require.NoError(t, st.Update(func(book *models.TransferBook) error {
		book.Payrolls = []models.Entry{{"id": 1, "name": "kim"}}
		return nil
	}))
	app := newTransferApp(st)

	req := httptest.NewRequest("GET", "/api/transfers?section=payrolls", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "kim", list[0]["name"])
}

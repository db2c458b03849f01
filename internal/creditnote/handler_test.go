package creditnote

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

func newNoteStore(t *testing.T) *store.Store[[]models.CreditNote] {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "creditnote.json"), func() []models.CreditNote {
		return []models.CreditNote{}
	})
	st.Load()
	return st
}

func newNoteApp(st *store.Store[[]models.CreditNote]) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Get("/api/creditnote", ListHandler(st))
	app.Post("/api/creditnote", SaveHandler(st, nil))
	return app
}

func postNote(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/creditnote", strings.NewReader(body))
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

func TestSaveHandler_UpsertByIdentifier(t *testing.T) {
	st := newNoteStore(t)
	app := newNoteApp(st)

	status, body := postNote(t, app, `{"c/nno":"CN-1","date":"2024.1.1","c/ndollar":"100"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Credit Note가 성공적으로 저장되었습니다.", body["message"])
	assert.Equal(t, float64(1), body["totalItems"])

	// Same c/nno replaces the record.
	status, body = postNote(t, app, `{"c/nno":"CN-1","date":"2024.1.2","c/ndollar":"200"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Credit Note가 성공적으로 업데이트되었습니다.", body["message"])
	assert.Equal(t, float64(1), body["totalItems"])

	st.View(func(notes []models.CreditNote) {
		require.Len(t, notes, 1)
		assert.Equal(t, "2024.1.2", notes[0]["date"])
	})
}

func TestSaveHandler_UpdateField(t *testing.T) {
	st := newNoteStore(t)
	app := newNoteApp(st)
	_, _ = postNote(t, app, `{"c/nno":"CN-1","date":"2024.1.1"}`)

	status, body := postNote(t, app,
		`{"action":"updateField","identifier":"CN-1","field":"note","value":"paid"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "note", body["updatedField"])

	st.View(func(notes []models.CreditNote) {
		assert.Equal(t, "paid", notes[0]["note"])
	})

	status, _ = postNote(t, app,
		`{"action":"updateField","identifier":"CN-missing","field":"note","value":"x"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSaveHandler_DeleteRecord(t *testing.T) {
	st := newNoteStore(t)
	app := newNoteApp(st)
	_, _ = postNote(t, app, `{"c/nno":"CN-1","date":"2024.1.1"}`)
	_, _ = postNote(t, app, `{"o/pno":"OP-1","date":"2024.1.2"}`)

	status, body := postNote(t, app, `{"action":"delete","type":"c/nno","identifier":"CN-1"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["totalItems"])

	status, _ = postNote(t, app, `{"action":"delete","type":"c/nno","identifier":"CN-1"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSaveHandler_BatchUpsert(t *testing.T) {
	st := newNoteStore(t)
	app := newNoteApp(st)
	_, _ = postNote(t, app, `{"c/nno":"CN-1","date":"2024.1.1","c/ndollar":"100"}`)

	status, body := postNote(t, app,
		`[{"c/nno":"CN-1","date":"2024.1.1","c/ndollar":"150"},{"c/nno":"CN-2","date":"2024.1.3"}]`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "데이터가 저장되었습니다.", body["message"])
	assert.Equal(t, float64(2), body["count"])

	st.View(func(notes []models.CreditNote) {
		require.Len(t, notes, 2)
	})
}

func TestSaveHandler_BatchShorterReplacesWholesale(t *testing.T) {
	st := newNoteStore(t)
	app := newNoteApp(st)
	_, _ = postNote(t, app, `{"c/nno":"CN-1","date":"2024.1.1"}`)
	_, _ = postNote(t, app, `{"c/nno":"CN-2","date":"2024.1.2"}`)

	status, body := postNote(t, app, `[{"c/nno":"CN-2","date":"2024.1.2"}]`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "데이터가 삭제되었습니다.", body["message"])
	assert.Equal(t, float64(1), body["count"])

	st.View(func(notes []models.CreditNote) {
		require.Len(t, notes, 1)
		assert.Equal(t, "CN-2", models.Str(notes[0]["c/nno"]))
	})
}

func TestSaveHandler_InvalidPayload(t *testing.T) {
	app := newNoteApp(newNoteStore(t))

	status, body := postNote(t, app, `{"note":"no identifier"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "유효하지 않은 데이터 형식입니다.", body["error"])
}

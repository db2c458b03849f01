package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eltro-backend/internal/models"
)

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) (*Store[testDoc], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	return New(path, func() testDoc { return testDoc{Name: "default"} }), path
}

func TestStore_LoadMissingFileUsesDefault(t *testing.T) {
	st, _ := newTestStore(t)
	st.Load()

	st.View(func(doc testDoc) {
		assert.Equal(t, "default", doc.Name)
	})
}

func TestStore_LoadCorruptFileUsesDefault(t *testing.T) {
	st, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	st.Load()

	st.View(func(doc testDoc) {
		assert.Equal(t, "default", doc.Name)
	})
}

func TestStore_UpdatePersists(t *testing.T) {
	st, path := newTestStore(t)
	st.Load()

	err := st.Update(func(doc *testDoc) error {
		doc.Name = "saved"
		doc.Count = 3
		return nil
	})
	require.NoError(t, err)

	// A fresh store sees the written state.
	st2 := New(path, func() testDoc { return testDoc{} })
	st2.Load()
	st2.View(func(doc testDoc) {
		assert.Equal(t, "saved", doc.Name)
		assert.Equal(t, 3, doc.Count)
	})

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_UpdateErrorSkipsWrite(t *testing.T) {
	st, path := newTestStore(t)
	st.Load()
	require.NoError(t, st.Update(func(doc *testDoc) error {
		doc.Name = "first"
		return nil
	}))

	wantErr := fmt.Errorf("refused")
	err := st.Update(func(doc *testDoc) error { return wantErr })
	assert.Equal(t, wantErr, err)

	st2 := New(path, func() testDoc { return testDoc{} })
	st2.Load()
	st2.View(func(doc testDoc) {
		assert.Equal(t, "first", doc.Name)
	})
}

func TestStore_MutateDoesNotPersist(t *testing.T) {
	st, path := newTestStore(t)
	st.Load()

	st.Mutate(func(doc *testDoc) { doc.Name = "memory-only" })

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "mutate must not create the file")
	st.View(func(doc testDoc) {
		assert.Equal(t, "memory-only", doc.Name)
	})
}

func TestStore_ReloadIfChanged(t *testing.T) {
	st, path := newTestStore(t)
	st.Load()
	require.NoError(t, st.Update(func(doc *testDoc) error {
		doc.Name = "ours"
		return nil
	}))

	// An out-of-band edit is picked up.
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"external","count":9}`), 0o644))
	st.ReloadIfChanged()
	st.View(func(doc testDoc) {
		assert.Equal(t, "external", doc.Name)
	})

	// A second reload of identical content is a no-op, and corrupt
	// external content keeps the current value.
	require.NoError(t, os.WriteFile(path, []byte("oops"), 0o644))
	st.ReloadIfChanged()
	st.View(func(doc testDoc) {
		assert.Equal(t, "external", doc.Name)
	})
}

func TestOpen_SortsOrdersInMemoryOnly(t *testing.T) {
	dir := t.TempDir()
	orders := `[{"mode":"NT","orderNo":"later","orderDate":"2024.1.1"},{"mode":"EK","orderNo":"first","orderDate":"2024.1.1"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, OrderFile), []byte(orders), 0o644))

	stores := Open(dir)
	stores.Orders.View(func(list []models.Order) {
		require.Len(t, list, 2)
		assert.Equal(t, "first", list[0].OrderNo())
	})

	// The file itself is untouched until the next mutation.
	data, err := os.ReadFile(filepath.Join(dir, OrderFile))
	require.NoError(t, err)
	assert.Equal(t, orders, string(data))
}

func TestOpen_DefaultsForMissingFiles(t *testing.T) {
	stores := Open(t.TempDir())

	stores.Transfers.View(func(book models.TransferBook) {
		assert.NotNil(t, book.Transfers)
		assert.NotNil(t, book.Payrolls)
		assert.NotNil(t, book.Deposits)
	})
	stores.CreditNotes.View(func(notes []models.CreditNote) {
		assert.NotNil(t, notes)
		assert.Empty(t, notes)
	})
}

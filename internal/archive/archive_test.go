package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedFile(t *testing.T) {
	assert.True(t, AllowedFile("scan.PDF"))
	assert.True(t, AllowedFile("photo.jpg"))
	assert.True(t, AllowedFile("명세서.docx"))
	assert.False(t, AllowedFile("run.exe"))
	assert.False(t, AllowedFile("noext"))
}

func TestPreviewContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", PreviewContentType("a.pdf"))
	assert.Equal(t, "image/jpeg", PreviewContentType("a.JPG"))
	assert.Equal(t, "", PreviewContentType("a.docx"))
}

func TestBrowseContentType(t *testing.T) {
	assert.Equal(t, "text/plain", BrowseContentType("a.txt"))
	assert.Equal(t, "application/octet-stream", BrowseContentType("a.bin"))
}

func TestJoin_RefusesTraversal(t *testing.T) {
	ar := New(t.TempDir())

	_, err := ar.Join("..", "etc", "passwd")
	assert.Error(t, err)

	_, err = ar.Join("NT", "..", "..", "outside")
	assert.Error(t, err)

	p, err := ar.Join("NT", "OrderID", "x")
	require.NoError(t, err)
	assert.Contains(t, p, filepath.Join("NT", "OrderID", "x"))
}

func TestEnsureLayout(t *testing.T) {
	root := t.TempDir()
	ar := New(root)
	require.NoError(t, ar.EnsureLayout())

	for _, dir := range []string{
		filepath.Join("NT", "OrderID"),
		filepath.Join("NT", "OrderNO"),
		filepath.Join("SM", "DeliveryNO"),
		TaxDir,
	} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestListDir_MissingIsEmpty(t *testing.T) {
	ar := New(t.TempDir())
	files, err := ar.ListDir("NT", "OrderID", "none", "invoice")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSaveAndListDir(t *testing.T) {
	ar := New(t.TempDir())

	_, err := ar.Save([]byte("pdf bytes"), "NT", "OrderID", "ord-1", "invoice", "scan.pdf")
	require.NoError(t, err)

	files, err := ar.ListDir("NT", "OrderID", "ord-1", "invoice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "scan.pdf", files[0].Filename)
	assert.Equal(t, int64(9), files[0].Size)
	assert.NotEmpty(t, files[0].UploadDate)
}

func TestPruneEmptyDirs(t *testing.T) {
	root := t.TempDir()
	ar := New(root)

	saved, err := ar.Save([]byte("x"), "NT", "DeliveryNO", "d-1", "분석표", "a.pdf")
	require.NoError(t, err)
	require.NoError(t, os.Remove(saved))

	ar.PruneEmptyDirs(filepath.Dir(saved))

	// The whole empty chain is gone, the root survives.
	_, err = os.Stat(filepath.Join(root, "NT"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(root)
	assert.NoError(t, err)
}

func TestPruneEmptyDirs_StopsAtNonEmpty(t *testing.T) {
	root := t.TempDir()
	ar := New(root)

	saved, err := ar.Save([]byte("x"), "NT", "DeliveryNO", "d-1", "분석표", "a.pdf")
	require.NoError(t, err)
	_, err = ar.Save([]byte("y"), "NT", "DeliveryNO", "d-2", "기타", "b.pdf")
	require.NoError(t, err)
	require.NoError(t, os.Remove(saved))

	ar.PruneEmptyDirs(filepath.Dir(saved))

	// d-1 chain pruned, the sibling delivery keeps NT/DeliveryNO alive.
	_, err = os.Stat(filepath.Join(root, "NT", "DeliveryNO", "d-1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "NT", "DeliveryNO", "d-2", "기타", "b.pdf"))
	assert.NoError(t, err)
}

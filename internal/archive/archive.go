package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archive manages the upload tree under one root directory:
//
//	<root>/<mode>/OrderID/<orderId>/<fileType>/
//	<root>/<mode>/OrderNO/<orderNo>/<itemNo>/
//	<root>/<mode>/DeliveryNO/<deliveryNo>/<fileType>/
//	<root>/세무자료/<year>/<headerName>/<rowName>/
//	<root>/엘트로코리아/
type Archive struct {
	Root string
}

func New(root string) *Archive {
	return &Archive{Root: root}
}

const (
	TaxDir      = "세무자료"
	AdminDir    = "엘트로코리아"
	AnalysisDir = "분석표"
)

// EnsureLayout creates the base folder structure. Year and record
// folders are created on demand at upload time.
func (a *Archive) EnsureLayout() error {
	for _, mode := range []string{"NT", "SM"} {
		for _, category := range []string{"OrderID", "OrderNO", "DeliveryNO"} {
			if err := os.MkdirAll(filepath.Join(a.Root, mode, category), 0o755); err != nil {
				return err
			}
		}
	}
	return os.MkdirAll(filepath.Join(a.Root, TaxDir), 0o755)
}

// Join resolves path parts under the root and refuses anything that
// escapes it.
func (a *Archive) Join(parts ...string) (string, error) {
	p := filepath.Join(append([]string{a.Root}, parts...)...)
	resolved, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rootAbs, err := filepath.Abs(a.Root)
	if err != nil {
		return "", err
	}
	if resolved != rootAbs && !strings.HasPrefix(resolved, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes upload root: %s", p)
	}
	return resolved, nil
}

var allowedExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
}

// AllowedFile reports whether the filename's extension may be uploaded.
func AllowedFile(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

var previewContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// PreviewContentType returns the inline content type for previewable
// files, or "" when the extension cannot be previewed.
func PreviewContentType(name string) string {
	return previewContentTypes[strings.ToLower(filepath.Ext(name))]
}

var browseContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".txt":  "text/plain",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// BrowseContentType covers the admin explorer, falling back to a binary
// type for anything unknown.
func BrowseContentType(name string) string {
	if ct, ok := browseContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

type FileInfo struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	UploadDate string `json:"uploadDate"`
}

// ListDir returns the files in a directory; a missing directory is an
// empty list, not an error.
func (a *Archive) ListDir(parts ...string) ([]FileInfo, error) {
	dir, err := a.Join(parts...)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Filename:   entry.Name(),
			Size:       info.Size(),
			UploadDate: info.ModTime().UTC().Format(time.RFC3339Nano),
		})
	}
	return files, nil
}

// Save writes an uploaded file, creating the directory on demand.
func (a *Archive) Save(data []byte, parts ...string) (string, error) {
	target, err := a.Join(parts...)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", err
	}
	return target, nil
}

// Remove deletes a single file. Returns os.ErrNotExist when absent.
func (a *Archive) Remove(parts ...string) error {
	target, err := a.Join(parts...)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err != nil {
		return err
	}
	return os.Remove(target)
}

// PruneEmptyDirs removes the file's parent directory and its empty
// ancestors, stopping at the root. Failures are ignored, the file
// removal already succeeded.
func (a *Archive) PruneEmptyDirs(dir string) {
	rootAbs, err := filepath.Abs(a.Root)
	if err != nil {
		return
	}
	for {
		resolved, err := filepath.Abs(dir)
		if err != nil || resolved == rootAbs || !strings.HasPrefix(resolved, rootAbs+string(filepath.Separator)) {
			return
		}
		entries, err := os.ReadDir(resolved)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(resolved) != nil {
			return
		}
		dir = filepath.Dir(resolved)
	}
}

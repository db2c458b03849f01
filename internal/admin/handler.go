package admin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofiber/fiber/v2"

	"eltro-backend/internal/archive"
	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

type saveJSONRequest struct {
	FileName string          `json:"fileName"`
	Data     json.RawMessage `json:"data"`
}

// applyJSON replaces a store's document with the uploaded payload,
// re-applying the store's canonical ordering.
func applyJSON(stores *store.Stores, fileName string, raw []byte) error {
	switch fileName {
	case store.PriceFile:
		var book models.PriceBook
		if err := json.Unmarshal(raw, &book); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "JSON 파일 형식이 올바르지 않습니다.")
		}
		book.Sort()
		return stores.Prices.Update(func(b *models.PriceBook) error {
			*b = book
			return nil
		})
	case store.OrderFile:
		var orders []models.Order
		if err := json.Unmarshal(raw, &orders); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "JSON 파일 형식이 올바르지 않습니다.")
		}
		models.SortOrders(orders)
		return stores.Orders.Update(func(o *[]models.Order) error {
			*o = orders
			return nil
		})
	case store.CreditNoteFile:
		var notes []models.CreditNote
		if err := json.Unmarshal(raw, &notes); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "JSON 파일 형식이 올바르지 않습니다.")
		}
		return stores.CreditNotes.Update(func(n *[]models.CreditNote) error {
			*n = notes
			return nil
		})
	case store.TransferFile:
		var book models.TransferBook
		if err := json.Unmarshal(raw, &book); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "JSON 파일 형식이 올바르지 않습니다.")
		}
		return stores.Transfers.Update(func(b *models.TransferBook) error {
			*b = book
			return nil
		})
	case store.CalendarFile:
		var cal models.Calendar
		if err := json.Unmarshal(raw, &cal); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "JSON 파일 형식이 올바르지 않습니다.")
		}
		return stores.Calendar.Update(func(c *models.Calendar) error {
			*c = cal
			return nil
		})
	case store.AccountingFile:
		var book models.AccountingBook
		if err := json.Unmarshal(raw, &book); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "JSON 파일 형식이 올바르지 않습니다.")
		}
		return stores.Accounting.Update(func(b *models.AccountingBook) error {
			*b = book
			return nil
		})
	default:
		return fiber.NewError(fiber.StatusBadRequest, "지원하지 않는 파일입니다.")
	}
}

// POST /api/admin/save-json
func SaveJSONHandler(stores *store.Stores, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req saveJSONRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		if req.FileName == "" || len(req.Data) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "fileName과 data가 필요합니다.")
		}

		if err := applyJSON(stores, req.FileName, req.Data); err != nil {
			if e, ok := err.(*fiber.Error); ok {
				return e
			}
			return fiber.NewError(fiber.StatusInternalServerError, "JSON 저장 중 오류가 발생했습니다.")
		}

		rec.Write(auth.SectionFromCtx(c), "admin", audit.ActionUpdate, "save-json "+req.FileName, nil)
		return c.JSON(fiber.Map{"success": true, "message": fmt.Sprintf("%s이(가) 저장되었습니다.", req.FileName)})
	}
}

// POST /api/admin/upload-json
// Same as save-json but the payload arrives as a multipart file.
func UploadJSONHandler(stores *store.Stores, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "파일이 선택되지 않았습니다.")
		}
		fileName := c.FormValue("fileName")
		if fileName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "fileName이 필요합니다.")
		}

		src, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "JSON 업로드 중 오류가 발생했습니다.")
		}
		raw, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "JSON 업로드 중 오류가 발생했습니다.")
		}

		if err := applyJSON(stores, fileName, raw); err != nil {
			if e, ok := err.(*fiber.Error); ok {
				return e
			}
			return fiber.NewError(fiber.StatusInternalServerError, "JSON 업로드 중 오류가 발생했습니다.")
		}

		rec.Write(auth.SectionFromCtx(c), "admin", audit.ActionUpdate, "upload-json "+fileName, nil)
		return c.JSON(fiber.Map{"success": true, "message": fmt.Sprintf("%s이(가) 업로드되었습니다.", fileName)})
	}
}

// POST /api/admin/restart
// Deploys restart on push, the endpoint only informs the page.
func RestartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "배포 환경에서는 push 후 자동 재시동이 진행됩니다.",
			"note":    "로컬 서버의 경우 수동으로 재시동해주세요.",
		})
	}
}

type folderEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type fileEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// GET /api/admin/explore-uploads?path=
func ExploreUploadsHandler(ar *archive.Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		relative := c.Query("path")

		target, err := ar.Join(relative)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "접근이 거부되었습니다.")
		}

		info, err := os.Stat(target)
		if os.IsNotExist(err) {
			return c.JSON(fiber.Map{"folders": []folderEntry{}, "files": []fileEntry{}})
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "폴더 탐색 중 오류가 발생했습니다.")
		}
		if !info.IsDir() {
			return fiber.NewError(fiber.StatusBadRequest, "폴더가 아닙니다.")
		}

		entries, err := os.ReadDir(target)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "폴더 탐색 중 오류가 발생했습니다.")
		}

		folders := []folderEntry{}
		files := []fileEntry{}
		for _, entry := range entries {
			name := entry.Name()
			if name[0] == '.' {
				continue
			}
			childPath := name
			if relative != "" {
				childPath = relative + "/" + name
			}
			if entry.IsDir() {
				folders = append(folders, folderEntry{Name: name, Path: childPath})
				continue
			}
			fi, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, fileEntry{
				Name:     name,
				Path:     childPath,
				Size:     fi.Size(),
				Modified: fi.ModTime().UTC().Format("2006-01-02T15:04:05.000Z"),
			})
		}
		sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

		return c.JSON(fiber.Map{"folders": folders, "files": files, "currentPath": relative})
	}
}

// DELETE /api/admin/delete-upload-file?filePath=
// Removes the file, then prunes now-empty parent folders up to the
// upload root.
func DeleteUploadFileHandler(ar *archive.Archive, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filePath := c.Query("filePath")
		if filePath == "" {
			return fiber.NewError(fiber.StatusBadRequest, "filePath가 필요합니다.")
		}

		target, err := ar.Join(filePath)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "접근이 거부되었습니다.")
		}
		info, err := os.Stat(target)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "파일을 찾을 수 없습니다.")
		}
		if info.IsDir() {
			return fiber.NewError(fiber.StatusBadRequest, "파일이 아닙니다.")
		}

		if err := os.Remove(target); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "파일 삭제 중 오류가 발생했습니다.")
		}
		ar.PruneEmptyDirs(filepath.Dir(target))

		rec.Write(auth.SectionFromCtx(c), "file", audit.ActionDelete, "delete-upload-file "+filePath, nil)
		return c.JSON(fiber.Map{"success": true, "message": "파일이 성공적으로 삭제되었습니다."})
	}
}

// GET /api/admin/preview-upload-file?filePath=
func PreviewUploadFileHandler(ar *archive.Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filePath := c.Query("filePath")
		if filePath == "" {
			return fiber.NewError(fiber.StatusBadRequest, "filePath가 필요합니다.")
		}

		target, err := ar.Join(filePath)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "접근이 거부되었습니다.")
		}
		info, err := os.Stat(target)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "파일을 찾을 수 없습니다.")
		}
		if info.IsDir() {
			return fiber.NewError(fiber.StatusBadRequest, "파일이 아닙니다.")
		}

		c.Set(fiber.HeaderContentType, archive.BrowseContentType(target))
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf("inline; filename=%q", url.QueryEscape(filepath.Base(target))))
		return c.SendFile(target)
	}
}

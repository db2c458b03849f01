package archive

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

// param decodes a percent-encoded route parameter. Filenames and tax
// folder names arrive URL-encoded from the pages.
func param(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// POST /api/uploadFile
// The body fields pick the destination tree: mode=admin goes to the
// company folder, tax uploads carry year/headerName/rowName, delivery
// uploads carry deliveryNo+fileType, order archives carry orderId or
// orderNo+itemNo.
func UploadHandler(ar *Archive, rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "파일이 선택되지 않았습니다.")
		}
		if !AllowedFile(fh.Filename) {
			return fiber.NewError(fiber.StatusBadRequest, "허용되지 않는 파일 형식입니다.")
		}

		src, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "파일 업로드 중 오류가 발생했습니다.")
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "파일 업로드 중 오류가 발생했습니다.")
		}

		mode := c.FormValue("mode")
		filename := c.FormValue("originalFileName")
		if filename == "" {
			filename = fh.Filename
		}

		fileInfo := fiber.Map{
			"originalName": fh.Filename,
			"filename":     filename,
			"size":         len(data),
			"uploadDate":   time.Now().UTC().Format(time.RFC3339Nano),
		}

		var dirParts []string
		switch {
		case mode == "admin":
			dirParts = []string{AdminDir}
			fileInfo["mode"] = "admin"
		case mode == TaxDir && c.FormValue("year") != "" && c.FormValue("headerName") != "" && c.FormValue("rowName") != "":
			year, header, row := c.FormValue("year"), c.FormValue("headerName"), c.FormValue("rowName")
			dirParts = []string{TaxDir, year, header, row}
			fileInfo["mode"] = TaxDir
			fileInfo["year"] = year
			fileInfo["headerName"] = header
			fileInfo["rowName"] = row
		case c.FormValue("deliveryNo") != "" && c.FormValue("fileType") != "":
			uploadMode := mode
			if uploadMode == "" {
				uploadMode = "NT"
			}
			deliveryNo, fileType := c.FormValue("deliveryNo"), c.FormValue("fileType")
			dirParts = []string{uploadMode, "DeliveryNO", deliveryNo, fileType}
			fileInfo["mode"] = uploadMode
			fileInfo["deliveryNo"] = deliveryNo
			fileInfo["fileType"] = fileType
		case mode != "" && c.FormValue("orderId") != "" && c.FormValue("fileType") != "":
			orderID, fileType := c.FormValue("orderId"), c.FormValue("fileType")
			dirParts = []string{mode, "OrderID", orderID, fileType}
			fileInfo["mode"] = mode
			fileInfo["orderId"] = orderID
			fileInfo["fileType"] = fileType
		case mode != "" && c.FormValue("orderNo") != "" && c.FormValue("itemNo") != "":
			orderNo, itemNo := c.FormValue("orderNo"), c.FormValue("itemNo")
			dirParts = []string{mode, "OrderNO", orderNo, itemNo}
			fileInfo["mode"] = mode
			fileInfo["orderNo"] = orderNo
			fileInfo["itemNo"] = itemNo
		default:
			return fiber.NewError(fiber.StatusBadRequest, "필수 파라미터가 누락되었습니다.")
		}

		saved, err := ar.Save(data, append(dirParts, filename)...)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "파일 업로드 중 오류가 발생했습니다.")
		}
		fileInfo["path"] = saved

		rec.Write(auth.SectionFromCtx(c), "file", audit.ActionCreate,
			fmt.Sprintf("upload %s", saved), fiber.Map{"filename": filename, "path": saved})

		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "파일이 성공적으로 업로드되었습니다.",
			"fileInfo": fileInfo,
		})
	}
}

// pathFn maps route parameters to a directory under the upload root.
type pathFn func(c *fiber.Ctx) []string

func OrderIDPath(c *fiber.Ctx) []string {
	return []string{param(c, "mode"), "OrderID", param(c, "orderId"), param(c, "fileType")}
}

func OrderNoPath(c *fiber.Ctx) []string {
	return []string{param(c, "mode"), "OrderNO", param(c, "orderNo"), param(c, "itemNo")}
}

func DeliveryNoPath(c *fiber.Ctx) []string {
	return []string{param(c, "mode"), "DeliveryNO", param(c, "deliveryNo"), param(c, "fileType")}
}

func TaxPath(c *fiber.Ctx) []string {
	return []string{TaxDir, param(c, "year"), param(c, "headerName"), param(c, "rowName")}
}

// ListFilesHandler serves the listing endpoints; a missing folder is an
// empty list.
func ListFilesHandler(ar *Archive, dir pathFn) fiber.Handler {
	return func(c *fiber.Ctx) error {
		files, err := ar.ListDir(dir(c)...)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "파일 목록 조회 중 오류가 발생했습니다.")
		}
		return c.JSON(fiber.Map{"files": files})
	}
}

// ListDeliveryFilesHandler reports absolute paths instead of upload
// dates, the shipment page links them directly.
func ListDeliveryFilesHandler(ar *Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		parts := DeliveryNoPath(c)
		files, err := ar.ListDir(parts...)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "파일 목록 조회에 실패했습니다.")
		}
		dir, _ := ar.Join(parts...)
		out := make([]fiber.Map, 0, len(files))
		for _, f := range files {
			out = append(out, fiber.Map{
				"filename": f.Filename,
				"size":     f.Size,
				"path":     filepath.Join(dir, f.Filename),
			})
		}
		return c.JSON(fiber.Map{"files": out})
	}
}

func resolveFile(ar *Archive, dirParts []string, filename string) (string, error) {
	target, err := ar.Join(append(dirParts, filename)...)
	if err != nil {
		return "", fiber.NewError(fiber.StatusForbidden, "접근이 거부되었습니다.")
	}
	if _, err := os.Stat(target); err != nil {
		return "", fiber.NewError(fiber.StatusNotFound, "파일을 찾을 수 없습니다.")
	}
	return target, nil
}

func inlineDisposition(filename string) string {
	return "inline; filename*=UTF-8''" + url.QueryEscape(filename)
}

// PreviewFileHandler streams pdf and image files inline; other
// extensions are refused.
func PreviewFileHandler(ar *Archive, dir pathFn) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filename := param(c, "filename")
		target, err := resolveFile(ar, dir(c), filename)
		if err != nil {
			return err
		}
		ct := PreviewContentType(filename)
		if ct == "" {
			return fiber.NewError(fiber.StatusBadRequest, "미리보기 불가능한 파일 형식입니다.")
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, inlineDisposition(filename))
		return c.SendFile(target)
	}
}

// SendFileHandler streams the file as-is, used by the shipment preview.
func SendFileHandler(ar *Archive, dir pathFn) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := resolveFile(ar, dir(c), param(c, "filename"))
		if err != nil {
			return err
		}
		return c.SendFile(target)
	}
}

func DownloadFileHandler(ar *Archive, dir pathFn) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filename := param(c, "filename")
		target, err := resolveFile(ar, dir(c), filename)
		if err != nil {
			return err
		}
		return c.Download(target, filename)
	}
}

func DeleteFileHandler(ar *Archive, rec *audit.Recorder, dir pathFn) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filename := param(c, "filename")
		target, err := resolveFile(ar, dir(c), filename)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "파일 삭제 중 오류가 발생했습니다.")
		}
		rec.Write(auth.SectionFromCtx(c), "file", audit.ActionDelete, "delete "+target, nil)
		return c.JSON(fiber.Map{"success": true, "message": "파일이 성공적으로 삭제되었습니다."})
	}
}

type copyAnalysisRequest struct {
	Mode       string `json:"mode"`
	DeliveryNo string `json:"deliveryNo"`
}

type copyResult struct {
	OrderNo  string `json:"orderNo"`
	ItemNo   string `json:"itemNo"`
	FileName string `json:"fileName"`
	Copied   bool   `json:"copied"`
	Error    string `json:"error,omitempty"`
}

// POST /api/copyAnalysisFiles
// Collects every order item on the delivery and copies its production
// analysis files into the delivery's shared folder, prefixing each copy
// with orderNo_itemNo.
func CopyAnalysisHandler(ar *Archive, orders *store.Store[[]models.Order], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req copyAnalysisRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		if req.Mode == "" || req.DeliveryNo == "" {
			return fiber.NewError(fiber.StatusBadRequest, "mode와 deliveryNo가 필요합니다.")
		}

		type itemRef struct{ orderNo, itemNo string }
		var matched []itemRef
		orders.View(func(list []models.Order) {
			for _, order := range list {
				for _, item := range order.Items() {
					if models.Str(item["deliveryNo"]) == req.DeliveryNo {
						matched = append(matched, itemRef{
							orderNo: models.Str(order["orderNo"]),
							itemNo:  models.Str(item["itemNo"]),
						})
					}
				}
			}
		})
		if len(matched) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "해당 deliveryNo에 매칭되는 아이템이 없습니다.")
		}

		targetDir, err := ar.Join(req.Mode, "DeliveryNO", req.DeliveryNo, AnalysisDir)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "접근이 거부되었습니다.")
		}
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "분석표 복사 중 오류가 발생했습니다.")
		}

		results := []copyResult{}
		for _, ref := range matched {
			sourceDir, err := ar.Join(req.Mode, "OrderNO", ref.orderNo, ref.itemNo)
			if err != nil {
				continue
			}
			entries, err := os.ReadDir(sourceDir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				name := entry.Name()
				dst := filepath.Join(targetDir, fmt.Sprintf("%s_%s_%s", ref.orderNo, ref.itemNo, name))
				result := copyResult{OrderNo: ref.orderNo, ItemNo: ref.itemNo, FileName: name}
				if err := copyFile(filepath.Join(sourceDir, name), dst); err != nil {
					result.Error = err.Error()
				} else {
					result.Copied = true
				}
				results = append(results, result)
			}
		}

		copied := 0
		for _, r := range results {
			if r.Copied {
				copied++
			}
		}

		rec.Write(auth.SectionFromCtx(c), "file", audit.ActionCreate,
			fmt.Sprintf("copyAnalysisFiles %s (%d files)", req.DeliveryNo, copied), req)

		return c.JSON(fiber.Map{
			"success":     true,
			"deliveryNo":  req.DeliveryNo,
			"copiedFiles": results,
			"totalCopied": copied,
		})
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// GET /api/downloadAnalysisFolder/:mode/:deliveryNo
// Streams the delivery's analysis folder as a zip without buffering it.
func DownloadAnalysisHandler(ar *Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode := param(c, "mode")
		deliveryNo := param(c, "deliveryNo")

		dir, err := ar.Join(mode, "DeliveryNO", deliveryNo, AnalysisDir)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "접근이 거부되었습니다.")
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "분석표 폴더가 존재하지 않습니다.")
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if !entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
		if len(names) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "분석표 파일이 없습니다.")
		}

		zipName := deliveryNo + AnalysisDir + ".zip"
		c.Set(fiber.HeaderContentType, "application/zip")
		c.Set(fiber.HeaderContentDisposition, "attachment; filename*=UTF-8''"+url.QueryEscape(zipName))

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			zw := zip.NewWriter(w)
			defer zw.Close()
			for _, name := range names {
				f, err := os.Open(filepath.Join(dir, name))
				if err != nil {
					continue
				}
				entry, err := zw.Create(name)
				if err != nil {
					f.Close()
					return
				}
				if _, err := io.Copy(entry, f); err != nil {
					f.Close()
					return
				}
				f.Close()
			}
		})
		return nil
	}
}

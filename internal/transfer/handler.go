package transfer

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

// GET /api/transfers?section=
func ListHandler(st *store.Store[models.TransferBook]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		section := c.Query("section")

		var body []byte
		var err error
		st.View(func(book models.TransferBook) {
			if entries, ok := book.Section(section); ok {
				if entries == nil {
					entries = []models.Entry{}
				}
				body, err = json.Marshal(entries)
				return
			}
			body, err = json.Marshal(book)
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Transfer 데이터를 읽을 수 없습니다.")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}

// inferSection picks the ledger from the payload shape when the client
// sends no explicit section. Payroll rows carry name+position, deposit
// rows carry sender+date, everything else is a transfer.
func inferSection(data models.Entry) string {
	_, hasName := data["name"]
	_, hasPosition := data["position"]
	if hasName && hasPosition {
		return "payrolls"
	}
	_, hasSender := data["sender"]
	_, hasDate := data["date"]
	if hasSender && hasDate {
		return "deposits"
	}
	return "transfers"
}

func sectionSingular(section string) string {
	return section[:len(section)-1]
}

// POST /api/transfers
// action=reorder replaces the provided lists verbatim. Otherwise the
// payload upserts into its section: matched by name (payrolls) or
// description (the rest), keeping the existing id on update. All-empty
// payloads are refused.
func SaveHandler(st *store.Store[models.TransferBook], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var data models.Entry
		if err := c.BodyParser(&data); err != nil || data == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		sectionCode := auth.SectionFromCtx(c)

		if models.Str(data["action"]) == "reorder" {
			err := st.Update(func(book *models.TransferBook) error {
				for _, name := range models.TransferSections {
					if raw, ok := data[name].([]any); ok {
						book.SetSection(name, toEntries(raw))
					}
				}
				return nil
			})
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Transfer 데이터를 저장할 수 없습니다.")
			}
			rec.Write(sectionCode, "transfer", audit.ActionUpdate, "reorder", nil)
			return c.JSON(fiber.Map{"success": true, "action": "reordered"})
		}

		targetSection := models.Str(data["section"])
		if _, ok := (&models.TransferBook{}).Section(targetSection); !ok {
			targetSection = inferSection(data)
		}
		// The discriminant is not part of the stored record.
		delete(data, "section")
		delete(data, "action")

		searchKey := "description"
		if targetSection == "payrolls" {
			searchKey = "name"
		}

		var saved models.Entry
		var action string
		err := st.Update(func(book *models.TransferBook) error {
			entries, _ := book.Section(targetSection)

			for i, e := range entries {
				if models.Str(e[searchKey]) == models.Str(data[searchKey]) {
					updated := models.Entry{"id": e["id"]}
					for k, v := range data {
						updated[k] = v
					}
					entries[i] = updated
					saved = updated
					action = "updated"
					book.SetSection(targetSection, entries)
					return nil
				}
			}

			if allEmpty(data) {
				return errEmptyPayload
			}

			newEntry := models.Entry{"id": len(entries) + 1}
			for k, v := range data {
				newEntry[k] = v
			}
			entries = append(entries, newEntry)
			saved = newEntry
			action = "created"
			book.SetSection(targetSection, entries)
			return nil
		})
		if err == errEmptyPayload {
			return c.JSON(fiber.Map{"success": false, "message": "빈 데이터는 저장하지 않습니다."})
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Transfer 데이터를 저장할 수 없습니다.")
		}

		auditAction := audit.ActionUpdate
		if action == "created" {
			auditAction = audit.ActionCreate
		}
		rec.Write(sectionCode, "transfer", auditAction,
			fmt.Sprintf("%s %s %s", action, targetSection, models.Str(saved[searchKey])), saved)

		return c.JSON(fiber.Map{
			"success":                       true,
			sectionSingular(targetSection): saved,
			"action":                       action,
		})
	}
}

var errEmptyPayload = fmt.Errorf("empty payload")

func allEmpty(data models.Entry) bool {
	for _, v := range data {
		switch t := v.(type) {
		case nil:
		case string:
			if t != "" {
				return false
			}
		case float64:
			if t != 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func toEntries(raw []any) []models.Entry {
	entries := make([]models.Entry, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			entries = append(entries, models.Entry(m))
		}
	}
	return entries
}

type deleteRequest struct {
	Section     string `json:"section"`
	Description string `json:"description"`
	Name        string `json:"name"`
	Position    string `json:"position"`
}

// DELETE /api/transfers
// Locates the section explicitly, by shape, or by looking the
// description up across ledgers; deletes the entry and renumbers ids.
func DeleteHandler(st *store.Store[models.TransferBook], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}

		err := st.Update(func(book *models.TransferBook) error {
			targetSection := req.Section
			if targetSection == "" {
				switch {
				case req.Name != "":
					targetSection = "payrolls"
				case req.Description != "":
					if findByField(book.Transfers, "description", req.Description) != -1 {
						targetSection = "transfers"
					} else if findByField(book.Deposits, "description", req.Description) != -1 {
						targetSection = "deposits"
					} else {
						return fiber.NewError(fiber.StatusNotFound, "해당 데이터를 찾을 수 없습니다.")
					}
				default:
					return fiber.NewError(fiber.StatusBadRequest, "description 또는 (name, position)이 필요합니다.")
				}
			}

			entries, ok := book.Section(targetSection)
			if !ok || entries == nil {
				return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%s 데이터를 찾을 수 없습니다.", targetSection))
			}

			idx := -1
			if targetSection == "payrolls" {
				if req.Position != "" && req.Name != "" {
					for i, e := range entries {
						if models.Str(e["position"]) == req.Position && models.Str(e["name"]) == req.Name {
							idx = i
							break
						}
					}
				} else if req.Name != "" {
					idx = findByField(entries, "name", req.Name)
				}
			} else {
				if req.Description == "" {
					return fiber.NewError(fiber.StatusBadRequest, "description이 필요합니다.")
				}
				idx = findByField(entries, "description", req.Description)
			}
			if idx == -1 {
				return fiber.NewError(fiber.StatusNotFound, "해당 데이터를 찾을 수 없습니다.")
			}

			entries = append(entries[:idx], entries[idx+1:]...)
			models.Renumber(entries)
			book.SetSection(targetSection, entries)
			return nil
		})
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				return e
			}
			return fiber.NewError(fiber.StatusInternalServerError, "데이터 삭제 중 오류가 발생했습니다.")
		}

		rec.Write(auth.SectionFromCtx(c), "transfer", audit.ActionDelete,
			fmt.Sprintf("delete %s/%s", req.Description, req.Name), req)
		return c.JSON(fiber.Map{"success": true})
	}
}

func findByField(entries []models.Entry, field, value string) int {
	for i, e := range entries {
		if models.Str(e[field]) == value {
			return i
		}
	}
	return -1
}

package creditnote

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

// GET /api/creditnote
func ListHandler(st *store.Store[[]models.CreditNote]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := st.JSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to read credit note data")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}

// POST /api/creditnote
// One endpoint, four payload shapes: a field update command, a delete
// command, a bulk array and a single record upsert. A bulk array shorter
// than the current collection is a deletion snapshot and replaces it
// wholesale.
func SaveHandler(st *store.Store[[]models.CreditNote], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := bytes.TrimSpace(c.Body())
		section := auth.SectionFromCtx(c)

		if len(body) > 0 && body[0] == '[' {
			var batch []models.CreditNote
			if err := json.Unmarshal(body, &batch); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "유효하지 않은 데이터 형식입니다.")
			}
			return saveBatch(c, st, rec, section, batch)
		}

		var data models.CreditNote
		if err := json.Unmarshal(body, &data); err != nil || data == nil {
			return fiber.NewError(fiber.StatusBadRequest, "유효하지 않은 데이터 형식입니다.")
		}

		action := models.Str(data["action"])
		identifier := models.Str(data["identifier"])

		if action == "updateField" && identifier != "" && models.Str(data["field"]) != "" {
			if _, ok := data["value"]; ok {
				return updateField(c, st, rec, section, identifier, models.Str(data["field"]), data["value"])
			}
		}
		if action == "delete" && identifier != "" && models.Str(data["type"]) != "" {
			return deleteRecord(c, st, rec, section, models.Str(data["type"]), identifier)
		}
		if field, _ := data.Identifier(); field != "" {
			return upsertRecord(c, st, rec, section, data)
		}

		return fiber.NewError(fiber.StatusBadRequest, "유효하지 않은 데이터 형식입니다.")
	}
}

func updateField(c *fiber.Ctx, st *store.Store[[]models.CreditNote], rec *audit.Recorder, section, identifier, field string, value any) error {
	err := st.Update(func(notes *[]models.CreditNote) error {
		for _, n := range *notes {
			if n.MatchesIdentifier(identifier) {
				n[field] = value
				return nil
			}
		}
		return fiber.NewError(fiber.StatusNotFound, "해당 identifier를 가진 항목을 찾을 수 없습니다.")
	})
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			return e
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Credit Note 처리 중 오류가 발생했습니다.")
	}

	rec.Write(section, "creditnote", audit.ActionUpdate,
		fmt.Sprintf("updateField %s.%s", identifier, field), fiber.Map{"identifier": identifier, "field": field, "value": value})

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      fmt.Sprintf("%s 필드가 성공적으로 업데이트되었습니다.", field),
		"updatedField": field,
		"newValue":     value,
	})
}

func deleteRecord(c *fiber.Ctx, st *store.Store[[]models.CreditNote], rec *audit.Recorder, section, idType, identifier string) error {
	total := 0
	err := st.Update(func(notes *[]models.CreditNote) error {
		kept := (*notes)[:0]
		for _, n := range *notes {
			if models.Str(n[idType]) == identifier {
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) == len(*notes) {
			return fiber.NewError(fiber.StatusNotFound, "삭제할 항목을 찾을 수 없습니다.")
		}
		models.SortCreditNotes(kept)
		*notes = kept
		total = len(kept)
		return nil
	})
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			return e
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Credit Note 처리 중 오류가 발생했습니다.")
	}

	rec.Write(section, "creditnote", audit.ActionDelete,
		fmt.Sprintf("delete %s=%s", idType, identifier), fiber.Map{"type": idType, "identifier": identifier})

	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "항목이 성공적으로 삭제되었습니다.",
		"totalItems": total,
	})
}

func upsertRecord(c *fiber.Ctx, st *store.Store[[]models.CreditNote], rec *audit.Recorder, section string, data models.CreditNote) error {
	data = models.NormalizeCreditNote(data)

	updated := false
	total := 0
	err := st.Update(func(notes *[]models.CreditNote) error {
		for i, n := range *notes {
			if sameIdentifier(n, data) {
				(*notes)[i] = data
				updated = true
				break
			}
		}
		if !updated {
			*notes = append(*notes, data)
		}
		models.SortCreditNotes(*notes)
		total = len(*notes)
		return nil
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Credit Note 처리 중 오류가 발생했습니다.")
	}

	action := audit.ActionCreate
	message := "Credit Note가 성공적으로 저장되었습니다."
	if updated {
		action = audit.ActionUpdate
		message = "Credit Note가 성공적으로 업데이트되었습니다."
	}
	_, idValue := data.Identifier()
	rec.Write(section, "creditnote", action, "upsert "+idValue, data)

	return c.JSON(fiber.Map{
		"success":    true,
		"message":    message,
		"totalItems": total,
	})
}

// sameIdentifier matches per identifier field: the incoming record's
// non-empty identifiers each match the same field on the candidate.
func sameIdentifier(existing, incoming models.CreditNote) bool {
	for _, f := range models.CreditNoteIDFields {
		if v := models.Str(incoming[f]); v != "" && models.Str(existing[f]) == v {
			return true
		}
	}
	return false
}

func saveBatch(c *fiber.Ctx, st *store.Store[[]models.CreditNote], rec *audit.Recorder, section string, batch []models.CreditNote) error {
	snapshot := false
	total := 0
	err := st.Update(func(notes *[]models.CreditNote) error {
		if len(batch) < len(*notes) {
			// Shorter than the collection means rows were deleted on
			// screen, replace wholesale.
			snapshot = true
			replacement := make([]models.CreditNote, 0, len(batch))
			for _, n := range batch {
				replacement = append(replacement, models.NormalizeCreditNote(n))
			}
			models.SortCreditNotes(replacement)
			*notes = replacement
			total = len(replacement)
			return nil
		}

		for _, incoming := range batch {
			incoming = models.NormalizeCreditNote(incoming)
			found := false
			for i, n := range *notes {
				if sameIdentifier(n, incoming) {
					(*notes)[i] = incoming
					found = true
					break
				}
			}
			if !found {
				*notes = append(*notes, incoming)
			}
		}
		models.SortCreditNotes(*notes)
		total = len(*notes)
		return nil
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Credit Note 처리 중 오류가 발생했습니다.")
	}

	if snapshot {
		rec.Write(section, "creditnote", audit.ActionDelete,
			fmt.Sprintf("snapshot replace (%d records)", total), nil)
		return c.JSON(fiber.Map{
			"success": true,
			"message": "데이터가 삭제되었습니다.",
			"count":   total,
		})
	}
	rec.Write(section, "creditnote", audit.ActionUpdate,
		fmt.Sprintf("batch upsert (%d incoming)", len(batch)), nil)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "데이터가 저장되었습니다.",
		"count":   total,
	})
}

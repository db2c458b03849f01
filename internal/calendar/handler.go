package calendar

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/models"
	"eltro-backend/internal/store"
)

// GET /api/loadCalendar
func LoadHandler(st *store.Store[models.Calendar]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body, err := st.JSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "캘린더 데이터 로드 실패")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}
}

// POST /api/saveCalendar
// Replaces the whole document; key order is normalized on write.
func SaveHandler(st *store.Store[models.Calendar], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var incoming models.Calendar
		if err := c.BodyParser(&incoming); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}

		err := st.Update(func(cal *models.Calendar) error {
			*cal = incoming
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "캘린더 데이터 저장 실패")
		}

		rec.Write(auth.SectionFromCtx(c), "calendar", audit.ActionUpdate, "saveCalendar", nil)
		return c.JSON(fiber.Map{"success": true, "message": "캘린더 데이터가 저장되었습니다."})
	}
}

// deleteEventRequest keys arrive as numbers or strings depending on the
// page, so they are normalized before lookup.
type deleteEventRequest struct {
	Year  any `json:"year"`
	Month any `json:"month"`
	Day   any `json:"day"`
	Index any `json:"index"`
}

// DELETE /api/deleteCalendarEvent
func DeleteEventHandler(st *store.Store[models.Calendar], rec *audit.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteEventRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}
		year := models.Str(req.Year)
		month := models.Str(req.Month)
		day := models.Str(req.Day)
		index := models.IntOr(req.Index, -1)

		err := st.Update(func(cal *models.Calendar) error {
			if !cal.DeleteEvent(year, month, day, index) {
				return fiber.NewError(fiber.StatusNotFound, "해당 일정을 찾을 수 없습니다.")
			}
			return nil
		})
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				return e
			}
			return fiber.NewError(fiber.StatusInternalServerError, "일정 삭제 실패")
		}

		rec.Write(auth.SectionFromCtx(c), "calendar", audit.ActionDelete,
			fmt.Sprintf("deleteEvent %s.%s.%s[%d]", year, month, day, index), req)
		return c.JSON(fiber.Map{"success": true, "message": "일정이 삭제되었습니다."})
	}
}

package audit

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type entryResponse struct {
	ID          uint   `json:"id"`
	CreatedAt   string `json:"created_at"`
	Section     string `json:"section"`
	EntityType  string `json:"entity_type"`
	Action      Action `json:"action"`
	Description string `json:"description"`
	Payload     string `json:"payload"`
}

// GET /api/audit-logs?entity=order&limit=50
func ListEntriesHandler(r *Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := 0
		if limitStr := c.Query("limit"); limitStr != "" {
			if _, err := fmt.Sscan(limitStr, &limit); err != nil || limit < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid limit")
			}
		}

		entries, err := r.Recent(c.Query("entity"), limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to list audit entries")
		}

		resp := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, entryResponse{
				ID:          e.ID,
				CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
				Section:     e.Section,
				EntityType:  e.EntityType,
				Action:      e.Action,
				Description: e.Description,
				Payload:     e.Payload,
			})
		}
		return c.JSON(resp)
	}
}

package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CtxSectionKey holds the logged-in section code for handlers that
// attribute changes (audit trail).
const CtxSectionKey = "section"

// Annotate copies the session's section into request locals. It never
// rejects, the page guard and handlers decide what needs auth.
func Annotate(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sess, err := s.Sessions.Get(c); err == nil {
			if section, ok := sess.Get(sessionSectionKey).(string); ok {
				c.Locals(CtxSectionKey, section)
			}
		}
		return c.Next()
	}
}

// SectionFromCtx returns the logged-in section, or "" when anonymous.
func SectionFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(CtxSectionKey).(string); ok {
		return v
	}
	return ""
}

// PageGuard protects HTML pages behind the session. The landing page,
// API routes and non-HTML assets always pass; other .html paths redirect
// to the index when the session is not authenticated.
func PageGuard(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		if path == "/" || path == "/index.html" {
			return c.Next()
		}
		if strings.HasPrefix(path, "/api/") {
			return c.Next()
		}
		if !strings.HasSuffix(path, ".html") {
			return c.Next()
		}

		if sess, err := s.Sessions.Get(c); err == nil {
			if v, ok := sess.Get(sessionAuthenticatedKey).(bool); ok && v {
				return c.Next()
			}
		}
		return c.Redirect("/")
	}
}

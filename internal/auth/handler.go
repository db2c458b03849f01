package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionAuthenticatedKey = "authenticated"
	sessionSectionKey       = "section"

	sessionTTL = 4 * time.Hour
)

// sectionPages maps a section code to its landing page after login.
var sectionPages = map[string]string{
	"EK": "eltrokorea9.html",
	"SM": "sungmoon.html",
	"NT": "nuintek.html",
	"TF": "treofan.html",
}

// Service owns the session store and the section password table.
type Service struct {
	Sessions  *session.Store
	passwords map[string]string
}

func NewService(sectionPasswords map[string]string) *Service {
	return &Service{
		Sessions: session.New(session.Config{
			Expiration:     sessionTTL,
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}),
		passwords: sectionPasswords,
	}
}

// checkPassword accepts bcrypt hashes and plaintext values in the
// password table.
func (s *Service) checkPassword(section, password string) bool {
	stored, ok := s.passwords[section]
	if !ok {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

type loginRequest struct {
	Section  string `json:"section"`
	Password string `json:"password"`
}

// POST /api/login
func LoginHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid body")
		}

		if !s.checkPassword(req.Section, req.Password) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "비밀번호가 틀렸습니다.",
			})
		}

		sess, err := s.Sessions.Get(c)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Session error")
		}
		sess.Set(sessionAuthenticatedKey, true)
		sess.Set(sessionSectionKey, req.Section)
		if err := sess.Save(); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Session save failed")
		}

		targetPage, ok := sectionPages[req.Section]
		if !ok {
			targetPage = req.Section + ".html"
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"section":  req.Section,
			"redirect": targetPage,
		})
	}
}

// POST /api/logout
func LogoutHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sess, err := s.Sessions.Get(c); err == nil {
			_ = sess.Destroy()
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// GET /api/auth/status
func StatusHandler(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authenticated := false
		var section any
		if sess, err := s.Sessions.Get(c); err == nil {
			if v, ok := sess.Get(sessionAuthenticatedKey).(bool); ok {
				authenticated = v
			}
			if v := sess.Get(sessionSectionKey); v != nil {
				section = v
			}
		}
		return c.JSON(fiber.Map{
			"authenticated": authenticated,
			"section":       section,
		})
	}
}

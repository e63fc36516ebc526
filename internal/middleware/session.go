package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nirv-ico/onboarding/internal/session"
)

// SessionIDKey is the fiber local holding the browser session id.
const SessionIDKey = "session_id"

// SessionCookie describes the cookie identifying a browser. A zero MaxAge
// makes it a browser-session cookie.
type SessionCookie struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// BrowserSession makes sure every request carries a browser session id. A
// missing or malformed cookie is replaced with a fresh id.
func BrowserSession(cfg SessionCookie) fiber.Handler {
	if cfg.Name == "" {
		cfg.Name = "onboarding_sid"
	}
	return func(c *fiber.Ctx) error {
		id := c.Cookies(cfg.Name)
		if !session.ValidID(id) {
			id = session.NewID()
		}
		cookie := &fiber.Cookie{
			Name:     cfg.Name,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			Secure:   cfg.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		}
		if cfg.MaxAge > 0 {
			cookie.MaxAge = int(cfg.MaxAge / time.Second)
		}
		c.Cookie(cookie)
		c.Locals(SessionIDKey, id)
		return c.Next()
	}
}

// GetSessionID returns the browser session id assigned by BrowserSession.
func GetSessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(SessionIDKey).(string)
	return id
}

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/web/session"
)

// EstablishSession stores a fresh session for the authenticated user
// and sets the session cookie. Every login flow ends here, so the
// cookie attributes stay identical no matter how the user came in.
func EstablishSession(c *fiber.Ctx, cfg *config.Config, user auth.SessionUser) error {
	sessionID, err := session.GenerateSessionID()
	if err != nil {
		return err
	}

	now := time.Now()
	userSession := &session.Data{
		User:         user,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err = userSession.Write(sessionID, cfg.Webserver.Session.ExpiryTime); err != nil {
		return err
	}

	cookieSettings := &fiber.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		MaxAge:   int(cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return nil
}

// ClearSession removes the stored session (if any) and expires the
// session cookie.
func ClearSession(c *fiber.Ctx) error {
	var err error

	if sessionID := c.Cookies(SessionCookie); sessionID != "" {
		err = session.Destroy(sessionID)
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		MaxAge:   -1,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return err
}

package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/web/handler"
	"github.com/evaka-go/apigw/internal/web/session"
)

// LocalsUser is the fiber locals key carrying the session user.
const LocalsUser = "SessionUser"

// Middleware loads the session for the request cookie, if any, and
// slides the session expiration forward. Requests without a valid
// session simply continue anonymous; route guards decide what that
// means per endpoint.
func Middleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(handler.SessionCookie)
		if sessionID == "" {
			return c.Next()
		}

		sessData := new(session.Data)
		if err := sessData.Read(sessionID); err != nil {
			// Expired or unknown session: treat as anonymous.
			return c.Next()
		}

		if sessData.User.ID != "" {
			c.Locals(LocalsUser, sessData.User)

			if err := sessData.Touch(sessionID, cfg.Webserver.Session.ExpiryTime); err != nil {
				log.Warn().Err(err).Msg("failed to refresh session expiry")
			}
		}

		return c.Next()
	}
}

// CurrentUser returns the session user of the request, if any.
func CurrentUser(c *fiber.Ctx) (auth.SessionUser, bool) {
	user, ok := c.Locals(LocalsUser).(auth.SessionUser)

	return user, ok
}

// RequireUserType guards a route for the given user types. Requests
// without a session get 401, sessions of the wrong type get 403.
func RequireUserType(types ...auth.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		for _, t := range types {
			if user.UserType == t {
				return c.Next()
			}
		}

		return c.SendStatus(fiber.StatusForbidden)
	}
}

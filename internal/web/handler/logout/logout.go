// Package logout implements session termination.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/web/handler"
)

// Path is the path of the logout endpoint.
const Path = handler.RootPath + "auth/logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		log.Fatal().Msg(handler.ErrNilACFatalLogMsg)
		return nil
	}

	s.cfg = cfg

	app.Get(Path, s.Logout)
	app.Post(Path, s.Logout)

	return nil
}

// Logout destroys the session and clears the cookie. Logging out an
// already anonymous browser is fine.
func (s *Service) Logout(c *fiber.Ctx) error {
	if err := handler.ClearSession(c); err != nil {
		log.Error().Err(err).Msg("failed to delete session")
	}

	return c.Redirect(s.cfg.Webserver.URL)
}

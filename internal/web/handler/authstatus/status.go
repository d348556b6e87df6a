// Package authstatus implements the session status endpoint the
// frontends poll on page load and after idle periods.
package authstatus

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/version"
	"github.com/evaka-go/apigw/internal/web/handler"
	authmw "github.com/evaka-go/apigw/internal/web/middleware/auth"
)

// Path is the path of the status endpoint.
const Path = handler.RootPath + "auth/status"

// StatusResponse is the status endpoint payload. A response is always
// 200 with apiVersion set, so the frontend can detect a stale bundle
// even while logged out.
type StatusResponse struct {
	LoggedIn   bool              `json:"loggedIn"`
	User       *auth.SessionUser `json:"user,omitempty"`
	APIVersion string            `json:"apiVersion"`
}

// Service is the status handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Handler is the status handler.
var Handler = Service{}

// Init initializes the status handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		log.Fatal().Msg(handler.ErrNilACFatalLogMsg)
		return nil
	}

	s.cfg = cfg

	app.Get(Path, s.Get)

	return nil
}

// Get reports the session state. Anonymous requests are a normal
// answer here, never an error.
func (s *Service) Get(c *fiber.Ctx) error {
	response := StatusResponse{
		APIVersion: version.Version,
	}

	if user, ok := authmw.CurrentUser(c); ok {
		response.LoggedIn = true
		response.User = &user
	}

	return c.JSON(response)
}

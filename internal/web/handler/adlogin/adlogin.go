// Package adlogin implements the Active Directory employee login used
// by municipalities without the Keycloak employee integration.
package adlogin

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/db/models"
	"github.com/evaka-go/apigw/internal/web/handler"
)

const (
	// Path is the path of the AD login endpoint.
	Path = handler.RootPath + "auth/ad/login"

	// method is the audit and metrics label of this flow.
	method = "ad-employee"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Service is the AD login handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	provider *auth.ADProvider
	verifier auth.Verifier
}

// Handler is the AD login handler.
var Handler = Service{}

// Init initializes the AD login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, verifier auth.Verifier) error {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACFatalLogMsg)
		return nil
	}

	s.cfg = cfg
	s.db = db
	s.verifier = verifier

	if !cfg.Auth.LDAP.Enabled {
		log.Info().Msg("AD authentication is disabled by configuration")
		return nil
	}

	provider, err := auth.NewADProvider(&cfg.Auth.LDAP)
	if err != nil {
		return fmt.Errorf("initializing AD provider: %w", err)
	}

	s.provider = provider

	app.Post(Path, s.Post)

	return nil
}

// Post handles the credential login.
func (s *Service) Post(c *fiber.Ctx) error {
	credentials := new(Credentials)
	if err := c.BodyParser(credentials); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if credentials.Username == "" || credentials.Password == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	user, err := s.login(c, credentials)

	auth.CountLogin(method, err)
	s.audit(err, user)

	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserNotFound) {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		log.Error().Err(err).Msg("AD login failed")

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if err := handler.EstablishSession(c, s.cfg, *user); err != nil {
		log.Error().Err(err).Msg("failed to establish session")

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	log.Info().Str("method", method).Str("userID", user.ID).Msg("user logged in")

	return c.JSON(user)
}

func (s *Service) login(c *fiber.Ctx, credentials *Credentials) (*auth.SessionUser, error) {
	attrs, err := s.provider.Authenticate(credentials.Username, credentials.Password)
	if err != nil {
		return nil, err
	}

	return s.verifier.Verify(c.UserContext(), attrs)
}

func (s *Service) audit(loginErr error, user *auth.SessionUser) {
	userID := ""
	if user != nil {
		userID = user.ID
	}

	if err := s.db.Create(models.NewLoginAudit(method, loginErr, userID)).Error; err != nil {
		log.Error().Err(err).Msg("failed to write login audit entry")
	}
}

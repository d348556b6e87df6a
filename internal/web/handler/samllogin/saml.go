// Package samllogin implements the browser-facing SAML login and
// callback routes. The gateway mounts two instances: the employee
// integration and the weak citizen integration, each with its own
// service provider, verifier and replay namespace.
package samllogin

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/db/models"
	"github.com/evaka-go/apigw/internal/web/handler"
)

// Provider is the SAML termination this handler fronts.
type Provider interface {
	LoginURL(relayState string) (string, error)
	ConsumeResponse(encodedResponse string) (auth.Attributes, error)
	Metadata() ([]byte, error)
}

// Service is one mounted SAML login integration.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	provider Provider
	verifier auth.Verifier
	samlCfg  *config.SAMLAuth
	method   string // audit and metrics label, e.g. "saml-employee"
	mount    string // route prefix, e.g. "/auth/saml/employee"
}

// New creates a SAML login handler for one integration.
func New(mount, method string) *Service {
	return &Service{mount: mount, method: method}
}

// Init initializes the handler and registers its routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, samlCfg *config.SAMLAuth, provider Provider, verifier auth.Verifier) error {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACFatalLogMsg)
		return nil
	}

	s.cfg = cfg
	s.db = db
	s.samlCfg = samlCfg
	s.provider = provider
	s.verifier = verifier

	app.Route(s.mount, func(router fiber.Router) {
		router.Get("/login", s.Login)
		router.Post("/callback", s.Callback)
		router.Get("/metadata", s.Metadata)
	})

	return nil
}

// Login redirects the browser to the identity provider.
func (s *Service) Login(c *fiber.Ctx) error {
	loginURL, err := s.provider.LoginURL(c.Query("RelayState"))
	if err != nil {
		log.Error().Err(err).Str("method", s.method).Msg("failed to build IdP redirect")

		return c.Redirect(s.cfg.Auth.LoginFailedURL)
	}

	return c.Redirect(loginURL)
}

// Callback terminates the IdP response. Any failure in validation,
// replay protection or backend resolution lands the browser on the
// login failed page; details stay in the log.
func (s *Service) Callback(c *fiber.Ctx) error {
	user, err := s.consume(c)

	auth.CountLogin(s.method, err)
	s.audit(err, user)

	if err != nil {
		log.Warn().Err(err).Str("method", s.method).Msg("SAML login failed")

		return c.Redirect(s.cfg.Auth.LoginFailedURL)
	}

	if err := handler.EstablishSession(c, s.cfg, *user); err != nil {
		log.Error().Err(err).Str("method", s.method).Msg("failed to establish session")

		return c.Redirect(s.cfg.Auth.LoginFailedURL)
	}

	log.Info().Str("method", s.method).Str("userID", user.ID).Msg("user logged in")

	return c.Redirect(s.samlCfg.SuccessURL)
}

// Metadata serves the SP metadata document.
func (s *Service) Metadata(c *fiber.Ctx) error {
	out, err := s.provider.Metadata()
	if err != nil {
		log.Error().Err(err).Str("method", s.method).Msg("failed to render SP metadata")

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Set(fiber.HeaderContentType, "application/samlmetadata+xml")

	return c.Send(out)
}

func (s *Service) consume(c *fiber.Ctx) (*auth.SessionUser, error) {
	samlResponse := c.FormValue("SAMLResponse")
	if samlResponse == "" {
		return nil, errors.New("callback without SAMLResponse")
	}

	attrs, err := s.provider.ConsumeResponse(samlResponse)
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

	if err := s.db.Create(models.NewLoginAudit(s.method, loginErr, userID)).Error; err != nil {
		log.Error().Err(err).Msg("failed to write login audit entry")
	}
}

// Package oidclogin implements the strong citizen authentication flow
// against the national OIDC identity broker.
package oidclogin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/db/models"
	"github.com/evaka-go/apigw/internal/web/handler"
)

const (
	// LoginPath is the path to initiate the OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for the OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"

	// method is the audit and metrics label of this flow.
	method = "oidc-citizen"

	// stateTTL bounds how long an authorization redirect may stay pending.
	stateTTL = 5 * time.Minute
)

// Service is the OIDC handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	provider *auth.OIDCProvider
	verifier auth.Verifier

	mu         sync.Mutex
	stateStore map[string]time.Time
}

// Handler is the OIDC handler.
var Handler = Service{
	stateStore: make(map[string]time.Time),
}

// Init initializes the OIDC handler. An enabled integration that fails
// provider discovery refuses to start the gateway; strong citizen
// authentication must never be silently absent.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACFatalLogMsg)
		return nil
	}

	s.cfg = cfg
	s.db = db

	if !cfg.Auth.OIDC.Enabled {
		log.Info().Msg("OIDC authentication is disabled by configuration")
		return nil
	}

	provider, err := auth.NewOIDCProvider(context.Background(), &cfg.Auth.OIDC)
	if err != nil {
		return fmt.Errorf("initializing OIDC provider: %w", err)
	}

	s.provider = provider

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	go s.cleanupStates()

	return nil
}

// SetVerifier wires the backend verifier pipeline for this flow.
func (s *Service) SetVerifier(verifier auth.Verifier) {
	s.verifier = verifier
}

// Login initiates the OIDC authorization code flow.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.provider == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("OIDC authentication is not available")
	}

	state, err := s.provider.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	s.mu.Lock()
	s.stateStore[state] = time.Now().Add(stateTTL)
	s.mu.Unlock()

	return c.Redirect(s.provider.AuthURL(state))
}

// Callback handles the OIDC callback.
func (s *Service) Callback(c *fiber.Ctx) error {
	if s.provider == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("OIDC authentication is not available")
	}

	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Warn().Msg("missing code or state in OIDC callback")
		return c.Redirect(s.cfg.Auth.LoginFailedURL)
	}

	if !s.consumeState(state) {
		log.Warn().Msg("invalid or expired state token in OIDC callback")
		return c.Redirect(s.cfg.Auth.LoginFailedURL)
	}

	user, err := s.authenticate(c.UserContext(), code)

	auth.CountLogin(method, err)
	s.audit(err, user)

	if err != nil {
		log.Warn().Err(err).Msg("OIDC login failed")
		return c.Redirect(s.cfg.Auth.LoginFailedURL)
	}

	if err := handler.EstablishSession(c, s.cfg, *user); err != nil {
		log.Error().Err(err).Msg("failed to establish session")
		return c.Redirect(s.cfg.Auth.LoginFailedURL)
	}

	log.Info().Str("method", method).Str("userID", user.ID).Msg("user logged in")

	return c.Redirect(s.cfg.Auth.OIDC.SuccessURL)
}

func (s *Service) authenticate(ctx context.Context, code string) (*auth.SessionUser, error) {
	attrs, err := s.provider.HandleCallback(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.verifier.Normalize == nil {
		return nil, errors.New("verifier not configured")
	}

	return s.verifier.Verify(ctx, attrs)
}

// consumeState checks and removes a pending state token.
func (s *Service) consumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiration, exists := s.stateStore[state]
	if !exists {
		return false
	}

	delete(s.stateStore, state)

	return time.Now().Before(expiration)
}

// cleanupStates periodically removes expired state tokens.
func (s *Service) cleanupStates() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		s.mu.Lock()
		for state, expiration := range s.stateStore {
			if now.After(expiration) {
				delete(s.stateStore, state)
			}
		}
		s.mu.Unlock()
	}
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

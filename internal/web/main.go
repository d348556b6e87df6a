// Package web assembles the fiber application: middleware, login
// handlers and the operational endpoints.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/evaka-go/apigw/internal/auth"
	"github.com/evaka-go/apigw/internal/config"
	fiberlogger "github.com/evaka-go/apigw/internal/logger/adapter/fiber"
	"github.com/evaka-go/apigw/internal/replay"
	"github.com/evaka-go/apigw/internal/web/handler/adlogin"
	"github.com/evaka-go/apigw/internal/web/handler/authstatus"
	"github.com/evaka-go/apigw/internal/web/handler/logout"
	"github.com/evaka-go/apigw/internal/web/handler/mobilelogin"
	"github.com/evaka-go/apigw/internal/web/handler/oidclogin"
	"github.com/evaka-go/apigw/internal/web/handler/samllogin"
	authmw "github.com/evaka-go/apigw/internal/web/middleware/auth"
)

// CheckAlivePath is the liveness endpoint polled by the load balancer.
const CheckAlivePath = "/healthz"

// Replay key namespaces, one per SAML integration.
const (
	employeeReplayPrefix = "keycloak-saml-resp"
	citizenReplayPrefix  = "keycloak-citizen-saml-resp"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the gateway.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so the
	// liveness check returns fail and the LB drains this pod.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 for %d seconds to let LB remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration. The
// SAML providers are constructed here; broken certificate material
// fails the gateway before it ever accepts a request.
func New(cfg *config.Config, db *gorm.DB, resolver auth.PersonResolver, replayStore replay.Store) (*Service, error) {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	// Session loading before any handler; routes decide what an
	// anonymous request means.
	app.Use(authmw.Middleware(cfg))

	service := &Service{
		cfg: cfg,
		App: app,
		db:  db,
	}

	service.alive.Store(true)

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if err := initLoginHandlers(app, cfg, db, resolver, replayStore); err != nil {
		return nil, err
	}

	_ = authstatus.Handler.Init(app, cfg)
	_ = logout.Handler.Init(app, cfg)
	_ = mobilelogin.Handler.Init(app, cfg, db)

	return service, nil
}

func initLoginHandlers(app *fiber.App, cfg *config.Config, db *gorm.DB, resolver auth.PersonResolver, replayStore replay.Store) error {
	if cfg.Auth.EmployeeSAML.Enabled {
		provider, err := auth.NewSAMLProvider(&cfg.Auth.EmployeeSAML, employeeReplayPrefix, replayStore, cfg.Auth.ReplayTTL)
		if err != nil {
			return err
		}

		employeeHandler := samllogin.New("/auth/saml/employee", "saml-employee")
		if err := employeeHandler.Init(app, cfg, db, &cfg.Auth.EmployeeSAML, provider, auth.KeycloakEmployeeVerifier(resolver)); err != nil {
			return err
		}
	} else {
		log.Info().Msg("employee SAML authentication is disabled by configuration")
	}

	if cfg.Auth.CitizenSAML.Enabled {
		provider, err := auth.NewSAMLProvider(&cfg.Auth.CitizenSAML, citizenReplayPrefix, replayStore, cfg.Auth.ReplayTTL)
		if err != nil {
			return err
		}

		citizenHandler := samllogin.New("/auth/saml/citizen", "saml-citizen")
		if err := citizenHandler.Init(app, cfg, db, &cfg.Auth.CitizenSAML, provider, auth.KeycloakCitizenVerifier(resolver)); err != nil {
			return err
		}
	} else {
		log.Info().Msg("citizen SAML authentication is disabled by configuration")
	}

	oidclogin.Handler.SetVerifier(auth.OIDCCitizenVerifier(resolver))
	if err := oidclogin.Handler.Init(app, cfg, db); err != nil {
		return err
	}

	return adlogin.Handler.Init(app, cfg, db, auth.ADEmployeeVerifier(resolver))
}

// checkAlive reports liveness; during graceful shutdown it flips to
// 503 so the load balancer drains the pod.
func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

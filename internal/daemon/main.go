// Package daemon assembles the gateway from its configuration:
// database, session storage, replay cache, backend client and the
// web service.
package daemon

import (
	"fmt"

	"github.com/gofiber/storage"
	sessionmemory "github.com/gofiber/storage/memory"
	sessionmysql "github.com/gofiber/storage/mysql"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/evaka-go/apigw/internal/config"
	"github.com/evaka-go/apigw/internal/db/dsn"
	"github.com/evaka-go/apigw/internal/db/models"
	"github.com/evaka-go/apigw/internal/logger"
	"github.com/evaka-go/apigw/internal/replay"
	"github.com/evaka-go/apigw/internal/resolver"
	"github.com/evaka-go/apigw/internal/web"
	"github.com/evaka-go/apigw/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	cfg        *config.Config
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if err := logger.Init(cfg.Log); err != nil {
		return nil, errors.Wrap(err, "initializing logger")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if err = db.AutoMigrate(
		&models.MobileDevice{},
		&models.LoginAudit{},
		&replay.ConsumedID{},
	); err != nil {
		return nil, errors.Wrap(err, "migrating database")
	}

	seed(cfg, db)

	sessionStorage := newStorage(cfg, "sessions")
	session.Init(sessionStorage)

	// Consumed response ids live in the gateway database; the primary
	// key of the replay table makes consumption first-writer-wins
	// across all gateway pods of one deployment.
	var replayStore replay.Store
	if cfg.DevMode {
		replayStore = replay.NewMemory()
	} else {
		replayStore = replay.NewShared(db)
	}

	backendClient := resolver.New(&cfg.Backend)

	webService, err := web.New(cfg, db, backendClient, replayStore)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		webService: webService,
		cfg:        cfg,
	}, nil
}

// openDatabase opens the configured gorm engine. Dev mode defaults to
// an on-disk sqlite database so the gateway runs without a server.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case "sqlite":
		dialector = gormsqlite.Open(cfg.DB.SQLitePath)
	case "mysql", "":
		dialector = gormmysql.Open(dsn.Create(cfg))
	default:
		return nil, errors.Errorf("unknown gorm engine %q", cfg.DB.GormEngine)
	}

	// TranslateError turns dialect duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the replay store depends on.
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, errors.Wrap(err, "connecting database")
	}

	return db, nil
}

// newStorage creates a fiber storage backend for the given table. In
// dev mode the storage is process local.
func newStorage(cfg *config.Config, table string) storage.Storage {
	if cfg.DevMode {
		log.Warn().Str("table", table).Msg("dev mode: using in-memory storage")

		return sessionmemory.New()
	}

	return sessionmysql.New(sessionmysql.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         table,
	})
}

package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	auth "github.com/goliatone/go-pharmacy-auth"
	"github.com/goliatone/go-pharmacy-auth/session"
)

// App holds the wired services shared by every command
type App struct {
	config   *AppConfig
	logger   *glog.BaseLogger
	db       *bun.DB
	repo     auth.RepositoryManager
	tokens   *auth.TokenServiceImpl
	hasher   *auth.Hasher
	registry *prometheus.Registry
	metrics  *auth.Collector
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func newLogger(cfg *AppConfig) *glog.BaseLogger {
	if cfg.Log.Debug {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("pharmacy-auth"),
			glog.WithAddSource(true),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("pharmacy-auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

// newApp validates cfg and wires storage, tokens and metrics. A missing
// secret stops here, before anything listens.
func newApp(ctx context.Context, cfg *AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{config: cfg, logger: newLogger(cfg)}

	db, err := openDB(cfg.Persistence)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CategoryInternal, "database is not reachable")
	}
	app.db = db

	app.tokens, err = auth.NewTokenServiceFromConfig(cfg.Auth, app.GetLogger("tokens"))
	if err != nil {
		db.Close()
		return nil, err
	}

	app.hasher = auth.NewHasher(cfg.Auth.GetPasswordCost())
	app.repo = auth.NewRepositoryManager(db)
	if err := app.repo.Validate(); err != nil {
		db.Close()
		return nil, err
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = auth.NewCollector(app.registry)

	return app, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) auther() *auth.Auther {
	provider := auth.NewUserProvider(a.repo.Users()).WithHasher(a.hasher)
	return auth.NewAuthenticator(provider, a.tokens).
		WithLogger(a.GetLogger("auth")).
		WithMetrics(a.metrics).
		WithActivitySink(a.activitySink())
}

func (a *App) registrar() *auth.RegisterUserHandler {
	return auth.NewRegisterUserHandler(a.repo, a.tokens,
		auth.WithRegisterHasher(a.hasher),
		auth.WithRegisterLogger(a.GetLogger("register")),
		auth.WithRegisterMetrics(a.metrics),
		auth.WithRegisterActivitySink(a.activitySink()),
	)
}

// activitySink writes audit events to the "audit" logger
func (a *App) activitySink() auth.ActivitySink {
	logger := a.GetLogger("audit")
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		logger.Info(string(event.EventType),
			"user_id", event.UserID,
			"organization_id", event.OrganizationID,
			"email", event.Email,
			"metadata", event.Metadata,
		)
		return nil
	})
}

// sessionManager returns the client side session kept under the session
// directory, $HOME/.pharmacy-auth by default
func (a *App) sessionManager() (*session.Manager, error) {
	dir := a.config.Session.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "no session directory configured")
		}
		dir = filepath.Join(home, ".pharmacy-auth")
	}

	storage, err := session.NewFileStorage(dir)
	if err != nil {
		return nil, err
	}

	return session.NewManager(storage, a.tokens,
		session.WithNamespace(a.config.Session.Namespace),
		session.WithLogger(a.GetLogger("session")),
	), nil
}

func openDB(cfg PersistenceConf) (*bun.DB, error) {
	var db *bun.DB

	switch cfg.Driver {
	case "postgres":
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open postgres")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite")
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
		if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to enable foreign keys")
		}
	}

	if cfg.DebugSQL {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// Package app wires configuration, storage, services, and the HTTP server
// into a runnable auth service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/trackforge/trackforge/internal/auth/blacklist"
	httpapi "github.com/trackforge/trackforge/internal/auth/http"
	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/internal/auth/store"
	"github.com/trackforge/trackforge/internal/auth/store/drivers/sqlite"
	"github.com/trackforge/trackforge/internal/auth/tokencache"
	"github.com/trackforge/trackforge/pkg/cryptox"
	"github.com/trackforge/trackforge/pkg/slogx"
	"github.com/trackforge/trackforge/pkg/tokenx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	codec     *tokenx.Codec
	blacklist blacklist.Blacklist
	cache     *tokencache.Cache

	authService         *service.AuthService
	userService         *service.UserService
	guard               *service.Guard
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET are required")
	}

	codec, err := tokenx.NewCodec([]byte(cfg.AccessSecret), []byte(cfg.RefreshSecret))
	if err != nil {
		return nil, err
	}
	app.codec = codec

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initBlacklist(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.cache = tokencache.New(cfg.CacheTTL)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping, and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initBlacklist picks Redis when an address is configured, so multiple
// instances share one revocation set; otherwise the in-process set serves
// a single instance fine.
func (app *Application) initBlacklist() error {
	if app.cfg.RedisAddr == "" {
		app.blacklist = blacklist.NewMemory()
		app.logger.Info("token blacklist: in-process")
		return nil
	}

	bl, err := blacklist.NewRedis(redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr}))
	if err != nil {
		return fmt.Errorf("failed to connect to redis blacklist: %w", err)
	}
	app.blacklist = bl
	app.logger.Info("token blacklist: redis", "addr", app.cfg.RedisAddr)
	return nil
}

func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:      app.db,
		Codec:      app.codec,
		Blacklist:  app.blacklist,
		Cache:      app.cache,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}
	app.userService = &service.UserService{Store: app.db}
	app.guard = service.NewGuard(app.codec, app.blacklist, app.cache)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.blacklist,
		app.cache,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(BuildVersion, app.db, app.logger, app.cfg.SecureCookies())
	app.router.Guard = app.guard
	app.router.AuthService = app.authService
	app.router.UserService = app.userService
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/veilauth/veil/internal/auth/handshake"
	httpapi "github.com/veilauth/veil/internal/auth/http"
	"github.com/veilauth/veil/internal/auth/service"
	"github.com/veilauth/veil/internal/auth/store"
	"github.com/veilauth/veil/internal/auth/store/drivers/sqlite"
	"github.com/veilauth/veil/pkg/jwtx"
	"github.com/veilauth/veil/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	handshakes handshake.Store
	keyManager *jwtx.KeyManager

	// Services
	registrationService *service.RegistrationService
	handshakeService    *service.HandshakeService
	tokenService        *service.TokenService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "veil-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initHandshakeStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  cfg.Issuer,
		NumKeys: cfg.NumKeys,
	})
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager
	app.logger.Info("signing keys generated", "keys", keyManager.NumSigners())

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
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.handshakes.Close(); err != nil {
		app.logger.Error("error closing handshake store", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initHandshakeStore selects the ephemeral store driver.
func (app *Application) initHandshakeStore() error {
	switch app.cfg.HandshakeStore {
	case "", "memory":
		app.handshakes = handshake.NewMemoryStore()
		app.logger.Info("handshake store: memory")
	case "redis":
		rs, err := handshake.NewRedisStore(app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect handshake store: %w", err)
		}
		app.handshakes = rs
		app.logger.Info("handshake store: redis", "addr", app.cfg.RedisAddr)
	default:
		return fmt.Errorf("unknown handshake store driver %q", app.cfg.HandshakeStore)
	}
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.TokenTTL,
	}

	app.registrationService = &service.RegistrationService{Store: app.db}
	app.handshakeService = &service.HandshakeService{
		Store:      app.db,
		Handshakes: app.handshakes,
		Tokens:     app.tokenService,
		TTL:        app.cfg.HandshakeTTL,
	}
	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.handshakes,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		BuildVersion,
		app.db,
		app.logger,
	)
	router.RegistrationService = app.registrationService
	router.HandshakeService = app.handshakeService
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}

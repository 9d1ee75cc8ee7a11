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
	"time"

	httpapi "github.com/aussiebroadwan/lectern/internal/auth/http"
	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/aussiebroadwan/lectern/internal/auth/service"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/lectern/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/lectern/pkg/cryptox"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	cache      revocation.Cache
	gateway    *sealx.Gateway // nil when E2EE is disabled
	keyManager *jwtx.KeyManager
	passwords  *cryptox.PasswordHasher
	otpKey     []byte

	// Services
	otpLedger           *service.OTPLedger
	sessionManager      *service.SessionManager
	tokenService        *service.TokenService
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "lectern-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.passwords = cryptox.NewPasswordHasher(pepper)
	app.otpKey = []byte(pepper)

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initCache(ctx); err != nil {
		_ = app.closeAll()
		return nil, err
	}

	if err := app.initEncryption(); err != nil {
		_ = app.closeAll()
		return nil, err
	}

	keyManager, err := InitAuthKeys(cfg, app.logger)
	if err != nil {
		_ = app.closeAll()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the HTTP handler for in-process tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"driver", app.cfg.DatabaseDriver,
		"e2ee", app.gateway != nil,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.closeAll()
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

// Shutdown gracefully shuts down the application
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

	if err := app.closeAll(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Close releases the database, cache and gateway without serving. It is
// for callers that use Handler instead of Run.
func (app *Application) Close() error {
	return app.closeAll()
}

// closeAll releases what New acquired, in reverse order. The gateway drops
// its secret key on close.
func (app *Application) closeAll() error {
	var errs []error
	if app.gateway != nil {
		if err := app.gateway.Close(); err != nil {
			app.logger.Error("error closing encryption gateway", "error", err)
			errs = append(errs, err)
		}
	}
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("error closing revocation cache", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initCache connects to Redis, or falls back to the in-process cache when
// no REDIS_URL is set. Validate already refused the fallback in prod.
func (app *Application) initCache(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		app.logger.Warn("REDIS_URL not set, using in-process revocation cache")
		app.cache = revocation.NewMemory()
		return nil
	}

	cache, err := revocation.NewRedisFromURL(ctx, app.cfg.RedisURL, revocation.RedisOptions{
		KeyPrefix: app.cfg.RedisKeyPrefix,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.cache = cache
	app.logger.Info("revocation cache connected")
	return nil
}

func (app *Application) initEncryption() error {
	if !app.cfg.E2EEEnabled {
		app.logger.Warn("end-to-end encryption disabled")
		return nil
	}

	gw := sealx.NewGateway(sealx.Options{
		SecretKey:          app.cfg.E2EESecretKey,
		RevealGeneratedKey: !app.cfg.IsProd(),
		ClientKeyTTL:       app.cfg.E2EEClientKeyTTL,
		MaxClientKeys:      app.cfg.E2EEClientKeyCache,
		Logger:             app.logger,
	})
	if err := gw.Init(); err != nil {
		return fmt.Errorf("failed to initialize encryption gateway: %w", err)
	}
	app.gateway = gw
	return nil
}

// otpSender picks SMS delivery when an API URL is configured, keeping the
// log sender for identifiers SMS cannot reach outside prod.
func (app *Application) otpSender() service.OTPSender {
	if app.cfg.SMSAPIURL == "" {
		if app.cfg.IsProd() {
			app.logger.Warn("SMS_API_URL not set, codes are only written to the log")
		}
		return service.LogSender{}
	}

	sms := &service.SMSSender{
		URL:    app.cfg.SMSAPIURL,
		APIKey: app.cfg.SMSAPIKey,
		Sender: app.cfg.SMSSender,
	}
	if !app.cfg.IsProd() {
		sms.Fallback = service.LogSender{}
	}
	return sms
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.otpLedger = &service.OTPLedger{
		Store:  app.db,
		Sender: app.otpSender(),
		TTL:    app.cfg.OTPTTL,
		Key:    app.otpKey,
	}

	app.sessionManager = &service.SessionManager{
		Store:         app.db,
		Cache:         app.cache,
		RevocationTTL: app.cfg.RefreshTTL,
	}

	app.tokenService = &service.TokenService{
		KeyManager: app.keyManager,
		Store:      app.db,
		Cache:      app.cache,
		Sessions:   app.sessionManager,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.authService = &service.AuthService{
		Store:     app.db,
		OTPs:      app.otpLedger,
		Sessions:  app.sessionManager,
		Tokens:    app.tokenService,
		Passwords: app.passwords,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.otpLedger,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.HousekeepingRetention,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		BuildVersion,
		app.db,
		app.cache,
		app.gateway,
		app.logger,
		httpapi.Options{
			SecureCookies:      app.cfg.Env != "dev",
			HSTS:               app.cfg.IsProd(),
			EncryptionRequired: app.cfg.E2EERequired,
			ReturnOTPToClient:  app.cfg.OTPReturnToClient,
			CORSOrigins:        app.cfg.CORSAllowedOrigins,
			TrustProxyHeaders:  app.cfg.TrustProxyHeaders,
		},
	)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.SessionManager = app.sessionManager
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

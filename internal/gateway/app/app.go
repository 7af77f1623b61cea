package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/benxgao/certifai-gateway/internal/gateway/http"
	"github.com/benxgao/certifai-gateway/internal/gateway/identity"
	"github.com/benxgao/certifai-gateway/internal/gateway/marketing"
	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/internal/gateway/store"
	"github.com/benxgao/certifai-gateway/internal/gateway/store/drivers/sqlite"
	"github.com/benxgao/certifai-gateway/internal/gateway/upstream"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
	"github.com/benxgao/certifai-gateway/pkg/wraptoken"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the session gateway with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	keys    *identity.KeySet
	fetcher *identity.JWKSFetcher
	cache   *identity.Cache
	codec   *wraptoken.Codec

	// Services
	sessionService    *service.SessionService
	reconcilerService *service.ReconcilerService

	// Clients
	backend   *upstream.Client
	marketing *marketing.Client

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "certifai-gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	codec, err := wraptoken.New(cfg.SessionSecret, cfg.WrapperTTL)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize wrapper codec: %w", err)
	}
	app.codec = codec

	app.keys = identity.NewKeySet()
	app.fetcher = identity.NewJWKSFetcher(cfg.ProviderJWKSURL, app.keys, cfg.JWKSRefresh)
	app.cache = identity.NewCache(cfg.CacheTTL, identity.DefaultCacheSize)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Warm the provider key set so the first request doesn't pay for the
	// JWKS fetch. Failure is not fatal; keys are fetched on demand.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := app.fetcher.Ensure(ctx, false); err != nil {
		app.logger.Warn("initial JWKS fetch failed, will retry on demand", "error", err)
	}
	cancel()

	app.reconcilerService.Start()

	app.logger.Info("session gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down session gateway...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.reconcilerService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("session gateway stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
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

// initServices initializes business logic services and outbound clients
func (app *Application) initServices() {
	var aud []string
	if app.cfg.ProviderAudience != "" {
		aud = []string{app.cfg.ProviderAudience}
	}
	verifier := identity.NewProviderVerifier(
		app.keys,
		app.fetcher,
		app.cache,
		app.cfg.ProviderIssuer,
		aud,
	)

	app.backend = upstream.NewClient(app.cfg.BackendBaseURL, app.cfg.BackendTimeout)
	app.marketing = marketing.NewClient(
		app.cfg.MarketingBaseURL,
		app.cfg.MarketingAPIKey,
		app.cfg.MarketingListID,
	)

	app.sessionService = &service.SessionService{
		Codec:    app.codec,
		Verifier: verifier,
		Cache:    app.cache,
		Store:    app.db,
		Backend:  app.backend,
	}

	app.reconcilerService = service.NewReconcilerService(
		app.db,
		app.backend,
		app.logger,
		app.cfg.ReconcileInterval,
	)
	app.reconcilerService.ServiceToken = app.cfg.BackendServiceToken
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Sessions = app.sessionService
	router.Cookies = &httpapi.CookieStore{
		Name:       app.cfg.CookieName,
		RootDomain: app.cfg.CookieDomain,
		Secure:     app.cfg.Production(),
		MaxAge:     int(app.codec.TTL().Seconds()),
	}
	router.Backend = app.backend
	router.Marketing = app.marketing
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

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

	httpapi "github.com/severindevelopment/hub/internal/hub/http"
	"github.com/severindevelopment/hub/internal/hub/service"
	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/internal/hub/store/drivers/sqlite"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the hub with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db   store.Store
	keys *SigningKeys

	sessionService     *service.SessionService
	ssoService         *service.SSOService
	userService        *service.UserService
	accessService      *service.AccessService
	authorizeService   *service.AuthorizeService
	tokenService       *service.TokenService
	applicationService *service.ApplicationService
	groupService       *service.GroupService
	housekeeper        *service.Housekeeper

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. It reaches
// out to the IdP for OIDC discovery, so it needs the network up.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "hub",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keys, err := initSigningKeys(cfg.Issuer, app.logger)
	if err != nil {
		return nil, err
	}
	app.keys = keys

	if err := app.initSSO(ctx); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeper.Start(context.Background())

	app.logger.Info("hub starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully stops the HTTP server, the housekeeper and the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down hub...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeper.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("hub stopped")
	return nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
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

// initSSO performs OIDC discovery against the IdP. Discovery is retried
// once: ADFS farms occasionally drop the first request after a cold start.
func (app *Application) initSSO(ctx context.Context) error {
	cfg := service.SSOConfig{
		IssuerURL:    app.cfg.SSOIssuerURL,
		ClientID:     app.cfg.SSOClientID,
		ClientSecret: app.cfg.SSOClientSecret,
		RedirectURL:  app.cfg.SSORedirectURL,
		Scopes:       app.cfg.SSOScopes,
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	sso, err := service.NewSSOService(discoveryCtx, cfg, app.logger)
	if err != nil {
		app.logger.Warn("oidc discovery failed, retrying once", "error", err)

		retryCtx, cancelRetry := context.WithTimeout(ctx, 15*time.Second)
		defer cancelRetry()

		sso, err = service.NewSSOService(retryCtx, cfg, app.logger)
		if err != nil {
			return fmt.Errorf("oidc discovery failed: %w", err)
		}
	}

	app.ssoService = sso
	return nil
}

func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:      app.db,
		Signer:     app.keys.Signer,
		Verifier:   app.keys.Verifier,
		Issuer:     app.cfg.Issuer,
		SessionTTL: app.cfg.SessionTTL,
	}

	app.userService = &service.UserService{Store: app.db}
	app.accessService = &service.AccessService{Store: app.db}

	app.authorizeService = &service.AuthorizeService{
		Store:   app.db,
		Access:  app.accessService,
		CodeTTL: app.cfg.CodeTTL,
	}

	app.tokenService = &service.TokenService{
		Store:      app.db,
		Access:     app.accessService,
		Signer:     app.keys.Signer,
		Verifier:   app.keys.Verifier,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.applicationService = &service.ApplicationService{Store: app.db}
	app.groupService = &service.GroupService{Store: app.db}

	app.housekeeper = &service.Housekeeper{
		Store:    app.db,
		Interval: app.cfg.HousekeepingInterval,
	}
}

func (app *Application) initHTTP() {
	cookies := httpapi.CookieConfig{
		SessionName:         app.cfg.SessionCookieName,
		SessionTTL:          app.cfg.SessionTTL,
		TrustForwardedProto: app.cfg.TrustForwardedProto,
	}

	router := httpapi.NewRouter(
		app.keys.KeySet,
		app.keys.Verifier,
		app.cfg.Issuer,
		BuildVersion,
		cookies,
		app.db,
		app.logger,
	)

	router.SessionService = app.sessionService
	router.SSOService = app.ssoService
	router.UserService = app.userService
	router.AccessService = app.accessService
	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.ApplicationService = app.applicationService
	router.GroupService = app.groupService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"eduaudit/internal/audit"
	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/exporter"
	"eduaudit/internal/infrastructure"
	"eduaudit/internal/license"
	"eduaudit/internal/middleware"
	"eduaudit/internal/notify"
	"eduaudit/internal/operations"
	"eduaudit/internal/portal"
	"eduaudit/internal/report"
	"eduaudit/internal/security"
	"eduaudit/internal/services"
	handlers "eduaudit/internal/transport/http"
	ws "eduaudit/internal/websocket"
	"eduaudit/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	OTel   *infrastructure.OTelProviders

	Hub         *ws.Hub
	Status      *operations.StatusBroadcaster
	Runner      *operations.Runner
	Gate        *license.Gate
	Credentials *security.CredentialStore

	Runs        *services.RunService
	CredService *services.CredentialService
	Health      *services.HealthService

	Router *chi.Mux
	Server *http.Server

	frontend fs.FS
}

// Option customizes New.
type Option func(*options)

type options struct {
	dialer   portal.Dialer
	frontend fs.FS
}

// WithDialer replaces the portal dialer built from the config.
func WithDialer(d portal.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithFrontend serves the status page from frontend at the site root.
func WithFrontend(frontend fs.FS) Option {
	return func(o *options) { o.frontend = frontend }
}

// New builds the application from cfg. logger may be nil, in which case
// the global logger is initialized from cfg.Logging.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	outDir := cfg.ReportsDir()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperrors.NewStorageError("failed to create reports directory", err).
			WithContext("dir", outDir)
	}

	store, err := security.NewCredentialStore(cfg.CredentialsFile(), cfg.Security.CredentialSalt, logger)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config:      cfg,
		Logger:      logger,
		OTel:        otelProviders,
		Hub:         ws.NewHub(logger),
		Gate:        license.NewGate(cfg.Features, logger),
		Credentials: store,
		frontend:    o.frontend,
	}
	a.Status = operations.NewStatusBroadcaster(a.Hub, logger)
	a.Runner = operations.NewRunner(a.Status, logger, otelProviders.Metrics)

	dial := o.dialer
	if dial == nil {
		dial = portal.NewDialer(cfg.Portal, logger, otelProviders.Metrics)
	}
	auditor := audit.NewRunner(dial, outDir, logger, otelProviders.Metrics)
	reporter := report.NewRunner(dial, a.Gate, outDir, logger, otelProviders.Metrics)

	if cfg.Sheets.Enabled() {
		publisher, err := exporter.NewSheetsPublisher(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, logger,
			option.WithCredentialsFile(cfg.Sheets.CredentialsFile))
		if err != nil {
			infrastructure.WithError(logger, err).WarnContext(ctx, "google sheets publishing disabled")
		} else {
			auditor.WithPublisher(publisher)
		}
	}
	if cfg.Notify.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram, logger)
		if err != nil {
			infrastructure.WithError(logger, err).WarnContext(ctx, "telegram notifications disabled")
		} else {
			a.Runner.OnFinish(tg.Notify)
		}
	}

	a.Runs = services.NewRunService(cfg, store, a.Runner, auditor, reporter, logger)
	a.CredService = services.NewCredentialService(store, logger)
	a.Health = services.NewHealthService(a.Hub, a.Runner, a.Gate)

	a.setupRouter()
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return a, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apperrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	validator := middleware.NewValidator()

	// The websocket route gets only middleware that leaves the
	// ResponseWriter unwrapped, so the upgrade can hijack it.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	upgrader := ws.NewUpgrader(a.Config.WebSocket, a.Config.Security.AllowedOrigins)
	r.Get("/ws", ws.Handler(a.Hub, upgrader, a.Logger))

	if a.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTel.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer
		if otelMiddleware, err := middleware.NewOTelMiddleware(a.OTel); err != nil {
			infrastructure.WithError(a.Logger, err).Error("Failed to create OpenTelemetry middleware")
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(middleware.Recoverer(errorHandler))
		r.Use(middleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(middleware.CORS(middleware.CORSFromConfig(a.Config.Security)))
		}
		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(middleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			health := handlers.NewHealthHandler(a.Health, a.Logger)
			r.Get("/health", health.HealthCheck)
			r.Get("/version", health.Version)
			r.Mount("/runs", handlers.NewRunsHandler(a.Runs, validator, errorHandler, a.Logger).Routes())
			r.Mount("/credentials", handlers.NewCredentialsHandler(a.CredService, validator, errorHandler, a.Logger).Routes())
		})

		if a.frontend != nil {
			r.Handle("/*", http.FileServer(http.FS(a.frontend)))
		}
	})

	a.Router = r
}

// Serve runs the websocket hub and the HTTP server until ctx is cancelled
// or one of them fails.
func (a *Application) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Hub.Run(gctx)
	})
	g.Go(func() error {
		a.Logger.InfoContext(ctx, "HTTP server listening",
			slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(ctx, "Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *Application) shutdownTimeout() time.Duration {
	if a.Config.Server.ShutdownTimeout > 0 {
		return a.Config.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// Close waits for background runs, then stops the status broadcaster and
// flushes telemetry.
func (a *Application) Close(ctx context.Context) error {
	a.Runner.Wait()
	a.Status.Stop()
	a.Hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.shutdownTimeout())
	defer cancel()
	if err := a.OTel.Shutdown(shutdownCtx); err != nil {
		infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error shutting down OpenTelemetry")
		return err
	}
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

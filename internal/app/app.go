// Package app wires the dashboard: configuration, logging, the data
// service, the chi router and the HTTP server lifecycle.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/analytics"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/config"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/infrastructure"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/middleware"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/services"
	handlers "github.com/CauseofDeathLife/asistencia360-analytics/internal/transport/http"
)

// Version identifies the dashboard build.
const Version = "1.2.0"

// Application represents the dashboard application container.
type Application struct {
	Config      *config.Config
	Router      *chi.Mux
	Server      *http.Server
	DataService *services.DataService
	Logger      *slog.Logger
	WebFS       fs.FS
}

// NewApplication creates an application instance with its dependencies
// wired. webFS holds the embedded dashboard page.
func NewApplication(webFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("dashboard starting",
		slog.String("version", Version),
		slog.String("students_csv", cfg.Paths.StudentsCSV),
		slog.String("attendance_csv", cfg.Paths.AttendanceCSV))

	app := &Application{
		Config: cfg,
		Logger: logger,
		WebFS:  webFS,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the data service and loads the raw tables.
func (a *Application) initializeServices() error {
	aggregator := analytics.New(a.Logger, analytics.Config{
		RiskThreshold: &a.Config.Analytics.RiskThreshold,
	})
	a.DataService = services.NewDataService(a.Logger, aggregator)

	ctx := context.Background()
	rosterReport, logReport, err := a.DataService.Load(ctx, a.Config.Paths.StudentsCSV, a.Config.Paths.AttendanceCSV)
	if err != nil {
		return err
	}

	if rejected := rosterReport.Rejected() + logReport.Rejected(); rejected > 0 {
		a.Logger.Warn("input rows rejected during load",
			slog.Int("rejected_rows", rejected))
	}
	return nil
}

// setupRouter configures the chi router with the middleware chain.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(middleware.RateLimit(a.Config.Server.RateLimitRPS, a.Config.Server.RateLimitBurst))
	r.Use(chimiddleware.Timeout(a.Config.Server.WriteTimeout))

	summaryHandler := handlers.NewSummaryHandler(a.DataService, a.Logger)
	healthHandler := handlers.NewHealthHandler(Version)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/health", healthHandler.Routes())
		r.Mount("/", summaryHandler.Routes())
	})

	if a.WebFS != nil {
		r.NotFound(handlers.ServeDashboard(a.WebFS))
	}

	a.Router = r
}

// createServer creates the HTTP server with configured timeouts.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-stop:
		a.Logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.Logger.Info("server stopped")
	return nil
}

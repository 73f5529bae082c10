package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"micromes/internal/config"
	apierrors "micromes/internal/errors"
	"micromes/internal/extraction"
	"micromes/internal/infrastructure"
	"micromes/internal/ingestion"
	customMiddleware "micromes/internal/middleware"
	"micromes/internal/services"
	"micromes/internal/spc"
	"micromes/internal/storage"
	handlers "micromes/internal/transport/http"
	"micromes/internal/validation"
	ws "micromes/internal/websocket"
	"micromes/pkg/contracts"
)

// Application wires the measurement store, the ingestion pipeline and the
// chart service behind the CLI and the HTTP API
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Registry  *config.Registry
	Logger    *slog.Logger
	OTel      *infrastructure.OTelProviders
	Store     *storage.Store
	Hub       *ws.Hub
	Ingestion *ingestion.Service
	Charts    *services.ChartService
	Health    *services.HealthService
	Router    *chi.Mux
	Server    *http.Server

	logCloser *infrastructure.Logger
	telemetry bool
}

// Option customizes New
type Option func(*Application)

// WithLogger replaces the configured logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) {
		a.Logger = logger
	}
}

// WithoutTelemetry uses no-op tracing and metrics. One-shot commands use
// it to skip the Prometheus registry.
func WithoutTelemetry() Option {
	return func(a *Application) {
		a.telemetry = false
	}
}

// New creates the application from cfg. The caller owns the returned
// application and must Close it.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{Config: cfg, telemetry: true}
	for _, opt := range opts {
		opt(a)
	}

	if a.Logger == nil {
		logger, err := infrastructure.NewLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logCloser = logger
		a.Logger = logger.Logger
	}

	a.Paths = cfg.GetPaths()
	if err := a.Paths.EnsureDirectories(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	a.Paths.LogPathResolution(a.Logger)

	if err := a.initialize(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) initialize(ctx context.Context) error {
	if a.telemetry {
		providers, err := infrastructure.InitializeOTel(a.Config.Telemetry, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		a.OTel = providers
	} else {
		a.OTel = infrastructure.NoopProviders()
	}

	metrics, err := infrastructure.NewSPCMetrics(a.OTel.Meter)
	if err != nil {
		return fmt.Errorf("failed to create SPC metrics: %w", err)
	}

	validator := validation.NewFileValidator(a.Logger)
	if a.Paths.RegistryFile != "" {
		if err := validator.ValidateFile(a.Paths.RegistryFile); err != nil {
			return apierrors.NewConfigError("parameter registry unavailable", err)
		}
	}

	if err := validator.ValidateParentDirectory(a.Paths.Database); err != nil {
		return apierrors.NewStorageError("database directory unavailable", err)
	}

	registry, err := config.LoadRegistry(a.Paths.RegistryFile)
	if err != nil {
		return apierrors.NewConfigError("failed to load parameter registry", err)
	}
	a.Registry = registry

	store, err := storage.Open(ctx, a.Paths.Database)
	if err != nil {
		return apierrors.NewStorageError("failed to open measurement store", err)
	}
	a.Store = store

	a.Hub = ws.NewHub(a.Logger)

	a.Ingestion = ingestion.NewService(a.Paths, extraction.NewExtractor(registry, a.Logger), store, a.Logger)
	a.Ingestion.SetTelemetry(a.OTel.Tracer, metrics)
	a.Ingestion.SetProgress(a.Hub)

	engine := spc.NewEngine(store, registry, a.OTel.Tracer, a.Logger)
	a.Charts = services.NewChartService(engine, store, registry, metrics, a.Logger)
	a.Health = services.NewHealthService(contracts.Version, store, a.Hub, a.Logger)
	a.Health.SetDirectories(validator, map[string]string{
		"intake":  a.Paths.IntakeDir,
		"success": a.Paths.SuccessDir,
	})

	a.Logger.InfoContext(ctx, "Application initialized",
		slog.String("version", contracts.Version),
		slog.String("database", a.Paths.Database),
		slog.String("intake_dir", a.Paths.IntakeDir),
		slog.Int("parameters", len(registry.Parameters())))
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	// RequestID -> RealIP -> StructuredLogger -> Recoverer -> OTel
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTel, a.Logger)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.CORS(a.corsConfig()))
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	health := handlers.NewHealthHandler(a.Health, a.Logger)
	spcHandler := handlers.NewSPCHandler(a.Charts, a.Logger, errorHandler)
	ingest := handlers.NewIngestHandler(a.Ingestion, a.Logger, errorHandler)
	ingest.SetWriteTimeout(a.Config.Server.IngestTimeout)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		if a.Config.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(a.Config.RateLimit.RPS, a.Config.RateLimit.Burst, a.Logger).Handler)
		}

		r.Get("/health", health.LivenessCheck)
		r.Get("/health/ready", health.ReadinessCheck)

		spcRoutes := spcHandler.Routes()
		spcRoutes.Post("/ingest", ingest.Ingest)
		r.Mount("/spc", spcRoutes)
	})

	r.Handle("/ws", ws.NewHandler(a.Hub, a.Config.WebSocket, a.Config.Server.AllowedOrigins, a.Logger))

	if a.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTel.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully
func (a *Application) Serve(ctx context.Context) error {
	a.Hub.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening", slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *Application) shutdown() error {
	a.Logger.Info("Shutting down HTTP server")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Hub.Stop()
	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Close releases the store, telemetry and log file. It is safe to call on
// a partially initialized application.
func (a *Application) Close() error {
	var errs []error

	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.OTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.OTel.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

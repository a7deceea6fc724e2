// Package app provides application-level wiring and dependency injection
// for the gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/joocer/s1/internal/api"
	"github.com/joocer/s1/internal/cache"
	"github.com/joocer/s1/internal/config"
	"github.com/joocer/s1/internal/domain"
	"github.com/joocer/s1/internal/metrics"
	"github.com/joocer/s1/internal/middleware"
	"github.com/joocer/s1/internal/service/object"
	"github.com/joocer/s1/internal/service/query"
	"github.com/joocer/s1/internal/storage"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger

	// Store overrides the configured storage backend. Tests use it to inject
	// an in-memory store; nil means build one from Cfg.Storage.
	Store domain.ObjectStore
}

// Services groups the services the HTTP handler and the CLI need.
type Services struct {
	Objects *object.Service
	Select  *query.SelectService
}

// App holds the fully-wired application.
type App struct {
	Services Services
	Cache    *cache.Cache
	Metrics  *metrics.Metrics

	cfg    *config.Config
	logger *slog.Logger
	store  domain.ObjectStore
}

// New wires storage, cache, services and metrics from the provided deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store := deps.Store
	if store == nil {
		var err error
		store, err = storage.New(ctx, cfg.Storage, logger.With("component", "storage"))
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	}

	c, err := cache.New(cfg.Storage.CacheSize, cache.WithLogger(logger.With("component", "cache")))
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	cached := cache.NewStore(store, c)

	return &App{
		Services: Services{
			Objects: object.NewService(cached, logger.With("component", "objects")),
			Select:  query.NewSelectService(cached, logger.With("component", "select")),
		},
		Cache:   c,
		Metrics: metrics.New(c),
		cfg:     cfg,
		logger:  logger,
		store:   store,
	}, nil
}

// Router builds the HTTP router with the full middleware chain. ctx bounds
// background work owned by the middleware (rate limiter sweeps).
func (a *App) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"ETag", "Content-Length", "Content-Range", "x-amz-request-id", middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(ctx, middleware.RateLimitConfig{
		RequestsPerSecond: a.cfg.RateLimitRPS,
		Burst:             a.cfg.RateLimitBurst,
	}))
	r.Use(middleware.AccessLog(a.logger.With("component", "http")))
	r.Use(a.Metrics.Middleware(api.OperationName))

	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	h := api.NewHandler(a.Services.Objects, a.Services.Select, api.Options{
		Region:  a.cfg.Region,
		Framing: a.cfg.SelectFraming,
		Logger:  a.logger.With("component", "api"),
		Metrics: a.Metrics,
	})
	h.Mount(r)
	return r
}

// Run serves HTTP on the configured address until ctx is canceled, then
// drains in-flight requests for up to the shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", "addr", ln.Addr().String(), "backend", a.cfg.Storage.Backend)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down", "timeout", a.cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close releases the storage backend if it holds resources.
func (a *App) Close() error {
	if closer, ok := a.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

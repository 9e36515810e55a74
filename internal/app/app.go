// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the model router.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"modelrouter/config"
	"modelrouter/internal/catalog"
	"modelrouter/internal/exhaustion"
	"modelrouter/internal/health"
	"modelrouter/internal/httpclient"
	"modelrouter/internal/observability"
	"modelrouter/internal/providers"
	"modelrouter/internal/providers/anthropic"
	"modelrouter/internal/providers/cloudflare"
	"modelrouter/internal/providers/cohere"
	"modelrouter/internal/providers/direct"
	"modelrouter/internal/providers/gemini"
	"modelrouter/internal/providers/huggingface"
	"modelrouter/internal/providers/openaicompat"
	"modelrouter/internal/providers/puter"
	"modelrouter/internal/ratelimit"
	"modelrouter/internal/ratings"
	"modelrouter/internal/routing"
	"modelrouter/internal/server"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config  *config.Config
	ratings *ratings.Result
	service *routing.Service
	server  *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig is the loaded application configuration.
	AppConfig *config.Config

	// Registerer receives the Prometheus collectors when metrics are enabled.
	// Nil means the default registerer.
	Registerer prometheus.Registerer

	// Credentials resolves provider keys. The zero value reads the environment.
	Credentials *providers.Credentials
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	app := &App{
		config: appCfg,
	}

	ratingsResult, err := ratings.New(ctx, appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ratings: %w", err)
	}
	app.ratings = ratingsResult

	clientCfg := httpclient.ConfigFromSeconds(appCfg.HTTP.Timeout, appCfg.HTTP.ResponseHeaderTimeout)
	httpClient := httpclient.NewHTTPClient(&clientCfg)

	creds := providers.EnvCredentials()
	if cfg.Credentials != nil {
		creds = *cfg.Credentials
	}

	registry := providers.NewRegistry()
	regs := append(openaicompat.Registrations(),
		anthropic.Registration,
		cloudflare.Registration,
		cohere.Registration,
		gemini.Registration,
		huggingface.Registration,
		direct.Registration,
	)
	registry.RegisterAll(providers.Options{HTTPClient: httpClient, Credentials: creds}, regs...)

	brokered := puter.New(puter.Bind(puter.NewHTTPBinding(httpClient, appCfg.Puter.BridgeURL, appCfg.Puter.Token)))
	registry.Register(brokered)

	var (
		hooks    []providers.CallHook
		observer exhaustion.TierObserver
	)
	if appCfg.Metrics.Enabled {
		metrics := observability.NewPrometheusHooks(cfg.Registerer)
		hooks = append(hooks, metrics)
		observer = metrics
	}

	router, err := providers.NewRouter(registry, hooks...)
	if err != nil {
		return nil, app.abort("failed to initialize provider router", err)
	}

	store := catalog.NewStore(
		catalog.FileSource{Path: appCfg.Registry.Path},
		ratingsResult.Service,
		time.Duration(appCfg.Registry.ReloadInterval)*time.Second,
	)
	snap, err := store.Snapshot(ctx)
	if err != nil {
		return nil, app.abort("failed to load model registry", err)
	}

	limits := ratelimit.New(time.Duration(appCfg.Policy.DefaultWaitSeconds) * time.Second)
	tracker := health.NewTracker(healthPolicy(appCfg.Policy))

	svc, err := routing.New(routing.Dependencies{
		Catalog:   store,
		Caller:    router,
		Ratings:   ratingsResult.Service,
		Limits:    limits,
		Health:    tracker,
		Evaluator: exhaustion.New(limits, brokered, observer),
	})
	if err != nil {
		return nil, app.abort("failed to initialize routing", err)
	}
	app.service = svc

	app.logStartupInfo(snap, registry.Routes())

	app.server = server.New(svc, &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.Server.BodySizeLimit,
	})

	return app, nil
}

// abort releases what New has opened so far and wraps err.
func (a *App) abort(msg string, err error) error {
	if a.ratings != nil {
		if closeErr := a.ratings.Close(); closeErr != nil {
			return fmt.Errorf("%s: %w (also: ratings close error: %v)", msg, err, closeErr)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func healthPolicy(p config.PolicyConfig) health.Policy {
	return health.Policy{
		Capacity:      p.HealthCapacity,
		Window:        time.Duration(p.HealthWindowMinutes) * time.Minute,
		StaleSuccess:  time.Duration(p.StaleSuccessMinutes) * time.Minute,
		StaleMinCalls: p.StaleMinCalls,
	}
}

// Service returns the routing service.
func (a *App) Service() *routing.Service {
	return a.service
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	if a.server == nil {
		return nil
	}
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// the HTTP server first, honoring ctx, then the ratings store and its connection.
//
// Shutdown is idempotent; after the first call, subsequent calls are no-ops.
// It attempts every close step and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.ratings != nil {
		if err := a.ratings.Close(); err != nil {
			slog.Error("ratings close error", "error", err)
			errs = append(errs, fmt.Errorf("ratings close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo(snap *catalog.Snapshot, routes []string) {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: MODELROUTER_MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set MODELROUTER_MASTER_KEY environment variable to secure the router")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("ratings store configured", "backend", cfg.Ratings.Backend)

	if cfg.Puter.BridgeURL == "" {
		slog.Info("puter bridge not configured", "effect", "credit-backed models report unusable")
	}

	byProvider := make(map[string]int)
	for i := range snap.Models {
		byProvider[snap.Models[i].Provider]++
	}
	slog.Info("model catalog loaded",
		"path", cfg.Registry.Path,
		"models", len(snap.Models),
		"providers", len(byProvider),
		"routes", len(routes),
	)
}

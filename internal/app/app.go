// Package app wires the storefront together and runs the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/devops-storefront/internal/catalog"
	"github.com/xenking/devops-storefront/internal/handler"
	"github.com/xenking/devops-storefront/internal/session"
	"github.com/xenking/devops-storefront/pkg/health"
	"github.com/xenking/devops-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog", cfg.Catalog.URL),
	)

	// Catalog loader.
	loader, err := catalog.NewLoader(
		catalog.Config{BaseURL: cfg.Catalog.URL, Timeout: cfg.Catalog.Timeout},
		catalog.WithTracerProvider(m.TracerProvider()),
		catalog.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create catalog loader")
	}

	// Sessions own carts and notices.
	sessions := session.NewStore(session.Config{
		CookieName: cfg.Session.Cookie,
		IdleTTL:    cfg.Session.IdleTTL,
		NoticeTTL:  cfg.Notice.TTL,
		Secure:     cfg.Session.Secure,
	})
	sessions.StartSweeper(ctx)

	// Health checks. The catalog check only requires that a load finished;
	// fallback is a valid outcome.
	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "catalog", time.Second,
		health.ConditionCheck("catalog not loaded yet", loader.Loaded),
		health.WithInitiallyUnhealthy(),
		health.WithFailureThreshold(1),
	)
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Warm-up load so the first visitor is not the one to find out the
	// catalog is down.
	warmCtx, cancelWarm := context.WithTimeout(ctx, 10*time.Second)
	loader.Load(warmCtx)
	cancelWarm()
	lg.Info("Catalog warm-up finished", zap.Stringer("state", loader.State()))

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h, err := handler.NewHandler(loader, handler.WithMeterProvider(m.MeterProvider()))
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: newServerHandler(ctx, serverDeps{
			Logger:         lg,
			TracerProvider: m.TracerProvider(),
			MeterProvider:  m.MeterProvider(),
			RateLimit:      cfg.RateLimit,
			Handler:        h,
			Sessions:       sessions,
			Health:         healthSvc,
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)

		// Only drain when asked to stop; a failed listener has no traffic.
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	return g.Wait()
}

type serverDeps struct {
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	RateLimit      RateLimitConfig

	Handler  *handler.Handler
	Sessions *session.Store
	Health   *health.Health
}

// newServerHandler composes routes and middleware. Probes bypass sessions
// and rate limiting. The limiter runs inside the session middleware so it
// can key on sessions resumed from a valid cookie.
func newServerHandler(ctx context.Context, d serverDeps) http.Handler {
	site := http.NewServeMux()
	d.Handler.Register(site)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", d.Health.LiveEndpoint)
	mux.HandleFunc("GET /readyz", d.Health.ReadyEndpoint)
	mux.Handle("/", httpmiddleware.Wrap(site,
		d.Sessions.Middleware(),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:     d.RateLimit.Max,
			Window:  d.RateLimit.Window,
			KeyFunc: d.Sessions.RateKey(),
			Methods: []string{http.MethodPost},
		}),
	))

	return httpmiddleware.Wrap(mux,
		httpmiddleware.InjectLogger(d.Logger),
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument("storefront", d.TracerProvider, d.MeterProvider),
		httpmiddleware.LogRequests(),
	)
}

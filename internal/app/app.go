// Package app wires the catalog server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/catalog-editor/internal/backend"
	"github.com/xenking/catalog-editor/internal/catalog"
	"github.com/xenking/catalog-editor/internal/handler"
	"github.com/xenking/catalog-editor/internal/revalidate"
	"github.com/xenking/catalog-editor/pkg/health"
	"github.com/xenking/catalog-editor/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.Bool("backend_auth", cfg.Backend.SecretKey != ""),
	)

	server, healthSvc, err := newServer(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	healthSvc.Start(ctx, cfg.Health.Interval)
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newServer builds the HTTP server and its health service without starting
// either.
func newServer(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) (*http.Server, *health.Health, error) {
	client, err := backend.New(backend.Config{
		BaseURL:      cfg.Backend.BaseURL,
		ProductsPath: cfg.Backend.ProductsPath,
		SecretKey:    cfg.Backend.SecretKey,
		Timeout:      cfg.Backend.Timeout,
	},
		backend.WithTracerProvider(m.TracerProvider()),
		backend.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create backend client")
	}

	broker := revalidate.NewBroker(cfg.Stream.Buffer)
	svc, err := catalog.NewService(client, broker,
		catalog.WithTracerProvider(m.TracerProvider()),
		catalog.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create catalog service")
	}

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddReadinessCheck("product-api", 5*time.Second, health.PingCheck(client))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(cfg.Health.Goroutines))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(handler.HandlerConfig{Heartbeat: cfg.Stream.Heartbeat}, svc, broker).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// A write may wait on a full product API call. The change stream
		// clears its own deadline.
		WriteTimeout:   cfg.Backend.Timeout + 5*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{handler.GenerationHeader, httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument("catalog-editor", m),
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		),
	}
	return server, healthSvc, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/chapteradmin/pkg/api"
	"github.com/platinummonkey/chapteradmin/pkg/app"
	"github.com/platinummonkey/chapteradmin/pkg/config"
	"github.com/platinummonkey/chapteradmin/pkg/contextkeys"
	"github.com/platinummonkey/chapteradmin/pkg/identity"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
	"github.com/platinummonkey/chapteradmin/pkg/storage/postgres"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chapterd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)
	logger.WithField("version", version).Info("Starting chapter admin service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg := cfg.Observability.OTel()
	otelCfg.ServiceVersion = version
	providers, err := observability.InitOTel(ctx, otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialise OpenTelemetry: %w", err)
	}

	var (
		metrics  *observability.Metrics
		registry *prometheus.Registry
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	a, err := app.Open(ctx, cfg, logger, metrics)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		return err
	}

	if pg, ok := a.Store.(*postgres.Store); ok && registry != nil {
		registry.MustRegister(collectors.NewDBStatsCollector(pg.DB(), "chapters"))
	}

	authn, err := authenticator(ctx, cfg.Identity)
	if err != nil {
		_ = a.Close(context.Background())
		_ = providers.Shutdown(context.Background())
		return err
	}

	health := observability.NewHealthChecker(version, cfg.Server.ReadTimeout).
		Require("storage", a.Store).
		Optional("cache", a.Cache)

	rateLimit, err := cfg.RateLimit.Middleware()
	if err != nil {
		_ = a.Close(context.Background())
		_ = providers.Shutdown(context.Background())
		return err
	}
	if rateLimit != nil {
		rateLimit.StartCleanup(ctx)
	}

	handler := api.NewServer(a.Engine, api.Options{
		Authenticator: authn,
		RateLimit:     rateLimit,
		Health:        health,
		Logger:        logger,
		Metrics:       metrics,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(handler, "chapterd"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.Register("app", a.Close)
	shutdown.Register("otel", providers.Shutdown)

	if cfg.Maintenance.Enabled {
		a.Jobs.Start()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err, ok := <-serverErr; ok {
			logger.WithError(err).Error("HTTP server failed")
			cancel()
		}
	}()

	if err := shutdown.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// authenticator verifies OIDC ID tokens when an issuer is configured and
// falls back to the configured development tokens otherwise
func authenticator(ctx context.Context, cfg config.IdentityConfig) (identity.Authenticator, error) {
	if cfg.OIDC.IssuerURL != "" {
		authn, err := identity.NewOIDCAuthenticator(ctx, cfg.OIDC)
		if err != nil {
			return nil, fmt.Errorf("failed to configure OIDC: %w", err)
		}
		return authn, nil
	}

	admins := make(map[string]bool, len(cfg.SystemAdmins))
	for _, id := range cfg.SystemAdmins {
		admins[id] = true
	}
	tokens := make(identity.StaticTokens, len(cfg.DevTokens))
	for token, userID := range cfg.DevTokens {
		tokens[token] = contextkeys.Caller{ID: userID, GlobalAdmin: admins[userID]}
	}
	return tokens, nil
}

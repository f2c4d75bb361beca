package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/simple-rights/pkg/simplerights"
	"github.com/tendant/simple-rights/pkg/simplerights/api"
	"github.com/tendant/simple-rights/pkg/simplerights/config"
	"github.com/tendant/simple-rights/pkg/simplerights/sweep"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := cfg.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to build rights service", "err", err)
		os.Exit(1)
	}

	var apiKeyMiddleware func(http.Handler) http.Handler
	if cfg.APIKeySHA256 != "" {
		apiKeyMiddleware, err = middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{
				"rights": cfg.APIKeySHA256,
			},
		})
		if err != nil {
			slog.Error("Failed initialize API Key middleware", "err", err)
			os.Exit(1)
		}
	}

	if notifier := newExpiryNotifier(cfg); notifier != nil {
		go runExpirySweep(ctx, sweep.New(svc, slog.Default()), notifier, cfg.SweepInterval)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	mountRoutes(server.R, svc, apiKeyMiddleware)

	slog.Info("Simple Rights server starting",
		"environment", cfg.Environment,
		"database", cfg.DatabaseType,
		"archive", cfg.ArchiveStorage.Type,
		"sweep_interval", cfg.SweepInterval.String())
	server.Run()
}

// mountRoutes mounts the rights API under /api/v1, behind the API key
// middleware when one is configured
func mountRoutes(r chi.Router, svc simplerights.Service, apiKeyMiddleware func(http.Handler) http.Handler) {
	handler := api.NewRightsHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.RequestID)
		r.Use(api.RequestLogger(slog.Default()))
		r.Use(api.Recoverer)
		if apiKeyMiddleware != nil {
			r.Use(apiKeyMiddleware)
		}
		r.Mount("/", handler.Routes())
	})
}

// newExpiryNotifier returns nil when the sweep is disabled or when event
// logging is off and expiry events would go nowhere
func newExpiryNotifier(cfg *config.ServerConfig) *sweep.ExpiryNotifier {
	if cfg.SweepInterval <= 0 || !cfg.EnableEventLogging {
		return nil
	}
	return sweep.NewExpiryNotifier(cfg.BuildEventSink(), simplerights.SystemClock(), cfg.ExpiringWindowDays)
}

// runExpirySweep fires RightsExpiring events every interval until ctx is done
func runExpirySweep(ctx context.Context, sweeper *sweep.Sweeper, notifier *sweep.ExpiryNotifier, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweepOnce(ctx, sweeper, notifier)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepOnce(ctx context.Context, sweeper *sweep.Sweeper, notifier *sweep.ExpiryNotifier) {
	if _, err := sweeper.NotifyExpiring(ctx, notifier, false); err != nil && ctx.Err() == nil {
		slog.Error("Expiry sweep failed", "err", err)
	}
}

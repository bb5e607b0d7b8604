// Package app boots the service: database, eventbus, watermill router, the
// level module and the HTTP API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/skybound-club/isle-level/app/api"
	"github.com/skybound-club/isle-level/app/eventbus"
	"github.com/skybound-club/isle-level/app/modules/level"
	levelmetrics "github.com/skybound-club/isle-level/app/modules/level/metrics"
	"github.com/skybound-club/isle-level/app/shared/utils"
	"github.com/skybound-club/isle-level/config"
	"github.com/skybound-club/isle-level/db/bundb"
)

const levelStreamName = "LEVEL"

type App struct {
	Config             *config.Config
	Logger             *slog.Logger
	Router             *message.Router
	EventBus           eventbus.EventBus
	DB                 *bundb.DBService
	LevelModule        *level.Module
	HTTPServer         *api.Server
	PrometheusRegistry *prometheus.Registry

	wg         sync.WaitGroup
	cancelFunc context.CancelFunc
}

// Initialize sets up all application components.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app.Config = cfg
	app.Logger = logger

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database service: %w", err)
	}
	app.DB = dbService

	bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize eventbus: %w", err)
	}
	app.EventBus = bus

	if err := bus.CreateStream(ctx, levelStreamName, "level.>"); err != nil {
		return fmt.Errorf("failed to create level stream: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.PrometheusRegistry = registry
	metrics := levelmetrics.NewPrometheusMetrics(registry)

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create watermill router: %w", err)
	}
	app.Router = router

	tracer := otel.Tracer("isle-level")
	helpers := utils.NewHelpers()

	levelModule, err := level.NewLevelModule(ctx, cfg, logger, dbService.LevelDB, bus, router, helpers, metrics, tracer, registry)
	if err != nil {
		return fmt.Errorf("failed to initialize level module: %w", err)
	}
	app.LevelModule = levelModule

	app.HTTPServer = api.NewServer(cfg.HTTP.Addr, levelModule.LevelService, logger, registry)

	return nil
}

// Run blocks until the context is canceled or the router stops.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	app.cancelFunc = cancel

	app.wg.Add(1)
	go app.LevelModule.Run(ctx, &app.wg)

	go func() {
		if err := app.HTTPServer.ListenAndServe(); err != nil {
			app.Logger.Error("HTTP server stopped", slog.Any("error", err))
			cancel()
		}
	}()

	if err := app.Router.Run(ctx); err != nil {
		return fmt.Errorf("watermill router stopped: %w", err)
	}
	return nil
}

// Close shuts everything down in reverse dependency order.
func (app *App) Close() {
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("Error shutting down HTTP server", slog.Any("error", err))
		}
	}
	if app.LevelModule != nil {
		if err := app.LevelModule.Close(); err != nil {
			app.Logger.Error("Error closing level module", slog.Any("error", err))
		}
	}
	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			app.Logger.Error("Error closing watermill router", slog.Any("error", err))
		}
	}
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			app.Logger.Error("Error closing eventbus", slog.Any("error", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.GetDB().Close(); err != nil {
			app.Logger.Error("Error closing database connection", slog.Any("error", err))
		}
	}

	app.wg.Wait()
}

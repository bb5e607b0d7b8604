// Package level assembles the island level module: service, handlers, router
// bindings and the periodic maintenance loop.
package level

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/skybound-club/isle-level/app/eventbus"
	levelservice "github.com/skybound-club/isle-level/app/modules/level/application"
	"github.com/skybound-club/isle-level/app/modules/level/domain/scoring"
	leveladapters "github.com/skybound-club/isle-level/app/modules/level/infrastructure/adapters"
	leveldispatch "github.com/skybound-club/isle-level/app/modules/level/infrastructure/dispatch"
	levelhandlers "github.com/skybound-club/isle-level/app/modules/level/infrastructure/handlers"
	leveldb "github.com/skybound-club/isle-level/app/modules/level/infrastructure/repositories"
	levelrouter "github.com/skybound-club/isle-level/app/modules/level/infrastructure/router"
	levelmetrics "github.com/skybound-club/isle-level/app/modules/level/metrics"
	"github.com/skybound-club/isle-level/app/shared/utils"
	"github.com/skybound-club/isle-level/config"
)

// Module represents the level module.
type Module struct {
	EventBus     eventbus.EventBus
	LevelService levelservice.Service
	Dispatcher   *leveldispatch.Dispatcher
	LevelRouter  *levelrouter.LevelRouter
	config       *config.Config
	logger       *slog.Logger
	cancelFunc   context.CancelFunc
}

// NewLevelModule wires the module together and registers its handlers on the
// shared watermill router.
func NewLevelModule(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	repo leveldb.Repository,
	eventBus eventbus.EventBus,
	router *message.Router,
	helpers utils.Helpers,
	metrics levelmetrics.LevelMetrics,
	tracer trace.Tracer,
	prometheusRegistry *prometheus.Registry,
) (*Module, error) {
	logger.InfoContext(ctx, "level.NewLevelModule called")

	dispatcher := leveldispatch.New(eventBus, helpers, logger)

	calc := scoring.NewCalculator(scoring.Config{
		Formula:        cfg.Level.Formula,
		PointsPerLevel: cfg.Level.PointsPerLevel,
		Weights:        cfg.Level.Weights,
		DeathPenalty:   cfg.Level.DeathPenalty,
		MaxDeaths:      cfg.Level.MaxDeaths,
	}, logger)

	registry := leveladapters.NewNATSIslandRegistry(eventBus.Conn(), cfg.Level.ScanTimeout, logger)

	levelService := levelservice.NewLevelService(repo, registry, dispatcher, calc, cfg.Level.Cooldown, logger, metrics, tracer)

	// Cold start: the boards hold exactly what the last snapshots persisted.
	if err := levelService.LoadSnapshots(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed leaderboards: %w", err)
	}

	handlers := levelhandlers.NewLevelHandlers(levelService, logger, tracer, helpers, metrics)

	moduleRouter := levelrouter.NewLevelRouter(logger, router, eventBus, eventBus, prometheusRegistry)
	if err := moduleRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure level router: %w", err)
	}

	return &Module{
		EventBus:     eventBus,
		LevelService: levelService,
		Dispatcher:   dispatcher,
		LevelRouter:  moduleRouter,
		config:       cfg,
		logger:       logger,
	}, nil
}

// Run keeps the module's maintenance loop alive: failed record writes are
// retried on every flush tick until the context is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting level module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	ticker := time.NewTicker(m.config.Level.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.LevelService.FlushDirty(ctx)
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "Level module goroutine stopped")
			return
		}
	}
}

// Close stops the level module.
func (m *Module) Close() error {
	m.logger.Info("Stopping level module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}

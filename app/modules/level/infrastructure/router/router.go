// Package levelrouter wires the level module's handlers into a watermill
// router backed by the NATS eventbus.
package levelrouter

import (
	"context"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skybound-club/isle-level/app/eventbus"
	levelhandlers "github.com/skybound-club/isle-level/app/modules/level/infrastructure/handlers"
	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

type LevelRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     eventbus.EventBus
	publisher      eventbus.EventBus
	metricsBuilder *metrics.PrometheusMetricsBuilder
	metricsEnabled bool
}

// NewLevelRouter creates a new instance of the router. Router metrics are
// skipped in the test environment, where no registry is shared.
func NewLevelRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	prometheusRegistry *prometheus.Registry,
) *LevelRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}

	return &LevelRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		metricsBuilder: metricsBuilder,
		metricsEnabled: metricsBuilder != nil,
	}
}

// Configure sets up the middlewares and registers the module's handlers.
func (r *LevelRouter) Configure(ctx context.Context, handlers levelhandlers.Handlers) error {
	if r.metricsEnabled {
		r.logger.Info("Adding Prometheus router metrics middleware for Level")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)

	return r.RegisterHandlers(ctx, handlers)
}

// RegisterHandlers binds the inbound topics to their handler logic. Result
// messages carry their own destination topic in metadata; the publish topic
// given here is only the fallback.
func (r *LevelRouter) RegisterHandlers(ctx context.Context, handlers levelhandlers.Handlers) error {
	r.logger.InfoContext(ctx, "Registering Level Event Handlers")

	r.Router.AddHandler(
		"level."+levelevents.CalculationRequested,
		levelevents.CalculationRequested,
		r.subscriber,
		levelevents.CalculationSucceeded,
		r.publisher,
		handlers.HandleCalculationRequested,
	)

	r.Router.AddNoPublisherHandler(
		"level."+levelevents.OwnerDisconnected,
		levelevents.OwnerDisconnected,
		r.subscriber,
		func(msg *message.Message) error {
			_, err := handlers.HandleOwnerDisconnected(msg)
			return err
		},
	)

	return nil
}

// Close stops the router.
func (r *LevelRouter) Close() error {
	return r.Router.Close()
}

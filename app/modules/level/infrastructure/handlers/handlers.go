// Package levelhandlers binds the level module's event topics to the
// application service.
package levelhandlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/trace"

	levelservice "github.com/skybound-club/isle-level/app/modules/level/application"
	levelmetrics "github.com/skybound-club/isle-level/app/modules/level/metrics"
	"github.com/skybound-club/isle-level/app/shared/utils"
)

// LevelHandlers handles level-related events.
type LevelHandlers struct {
	levelService   levelservice.Service
	logger         *slog.Logger
	tracer         trace.Tracer
	metrics        levelmetrics.LevelMetrics
	helpers        utils.Helpers
	handlerWrapper func(handlerName string, unmarshalTo interface{}, handlerFunc func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error)) message.HandlerFunc
}

// NewLevelHandlers creates a new LevelHandlers.
func NewLevelHandlers(
	levelService levelservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
	helpers utils.Helpers,
	metrics levelmetrics.LevelMetrics,
) Handlers {
	return &LevelHandlers{
		levelService: levelService,
		logger:       logger,
		tracer:       tracer,
		helpers:      helpers,
		metrics:      metrics,
		handlerWrapper: func(handlerName string, unmarshalTo interface{}, handlerFunc func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error)) message.HandlerFunc {
			return handlerWrapper(handlerName, unmarshalTo, handlerFunc, logger, metrics, tracer, helpers)
		},
	}
}

// handlerWrapper centralizes tracing, logging and metrics for every handler.
func handlerWrapper(
	handlerName string,
	unmarshalTo interface{},
	handlerFunc func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error),
	logger *slog.Logger,
	metrics levelmetrics.LevelMetrics,
	tracer trace.Tracer,
	helpers utils.Helpers,
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx, span := tracer.Start(msg.Context(), handlerName)
		defer span.End()

		metrics.RecordHandlerAttempt(handlerName)

		startTime := time.Now()
		defer func() {
			metrics.RecordHandlerDuration(handlerName, time.Since(startTime))
		}()

		logger.InfoContext(ctx, handlerName+" triggered",
			slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
			slog.String("message_id", msg.UUID),
		)

		if unmarshalTo != nil {
			if err := helpers.UnmarshalPayload(msg, unmarshalTo); err != nil {
				logger.ErrorContext(ctx, "Failed to unmarshal payload",
					slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
					slog.Any("error", err),
				)
				metrics.RecordHandlerFailure(handlerName)
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		result, err := handlerFunc(ctx, msg, unmarshalTo)
		if err != nil {
			logger.ErrorContext(ctx, "Error in "+handlerName,
				slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
				slog.Any("error", err),
			)
			metrics.RecordHandlerFailure(handlerName)
			span.RecordError(err)
			return nil, err
		}

		metrics.RecordHandlerSuccess(handlerName)
		return result, nil
	}
}

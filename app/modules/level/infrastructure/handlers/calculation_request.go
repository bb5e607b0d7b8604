package levelhandlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	levelservice "github.com/skybound-club/isle-level/app/modules/level/application"
	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
)

// HandleCalculationRequested handles the CalculationRequested event.
func (h *LevelHandlers) HandleCalculationRequested(msg *message.Message) ([]*message.Message, error) {
	wrappedHandler := h.handlerWrapper("HandleCalculationRequested", &levelevents.CalculationRequestedPayloadV1{},
		func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error) {
			requestedPayload := payload.(*levelevents.CalculationRequestedPayloadV1)

			h.logger.InfoContext(ctx, "Received CalculationRequested event",
				slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
				slog.String("group", string(requestedPayload.GroupName)),
				slog.String("owner_id", requestedPayload.OwnerID.String()),
				slog.Bool("force", requestedPayload.Force),
			)

			result, err := h.levelService.RequestCalculation(ctx, requestedPayload.GroupName, requestedPayload.OwnerID, levelservice.CalculationOptions{
				NotifyUser:    requestedPayload.NotifyUser,
				Force:         requestedPayload.Force,
				RecordInitial: requestedPayload.RecordInitial,
			})
			if err != nil {
				h.logger.ErrorContext(ctx, "Failed to calculate island level",
					slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
					slog.Any("error", err),
				)
				return nil, fmt.Errorf("failed to calculate island level: %w", err)
			}

			if result.Failure != nil {
				failureMsg, errMsg := h.helpers.CreateResultMessage(
					msg,
					result.Failure,
					levelevents.CalculationFailed,
				)
				if errMsg != nil {
					return nil, fmt.Errorf("failed to create failure message: %w", errMsg)
				}
				return []*message.Message{failureMsg}, nil
			}

			if result.Success != nil {
				successMsg, err := h.helpers.CreateResultMessage(
					msg,
					result.Success,
					levelevents.CalculationSucceeded,
				)
				if err != nil {
					return nil, fmt.Errorf("failed to create success message: %w", err)
				}
				return []*message.Message{successMsg}, nil
			}

			h.logger.ErrorContext(ctx, "Unexpected result from RequestCalculation",
				slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
			)
			return nil, fmt.Errorf("unexpected result from service")
		},
	)

	return wrappedHandler(msg)
}

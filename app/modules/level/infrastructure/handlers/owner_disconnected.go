package levelhandlers

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
)

// HandleOwnerDisconnected drops the departing owner's cache entries. The
// leaderboard and the durable records are untouched; the next read reloads
// lazily.
func (h *LevelHandlers) HandleOwnerDisconnected(msg *message.Message) ([]*message.Message, error) {
	wrappedHandler := h.handlerWrapper("HandleOwnerDisconnected", &levelevents.OwnerDisconnectedPayloadV1{},
		func(ctx context.Context, msg *message.Message, payload interface{}) ([]*message.Message, error) {
			disconnectedPayload := payload.(*levelevents.OwnerDisconnectedPayloadV1)

			evicted := h.levelService.EvictOwner(ctx, disconnectedPayload.OwnerID)
			h.logger.InfoContext(ctx, "Owner disconnected, cache evicted",
				slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
				slog.String("owner_id", disconnectedPayload.OwnerID.String()),
				slog.Int("evicted", evicted),
			)

			return nil, nil
		},
	)

	return wrappedHandler(msg)
}

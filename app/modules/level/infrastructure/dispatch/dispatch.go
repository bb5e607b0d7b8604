// Package leveldispatch publishes calculation lifecycle notifications and runs
// the in-process hooks that may cancel them.
package leveldispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
	"github.com/skybound-club/isle-level/app/shared/utils"
)

// Publisher is the slice of the eventbus the dispatcher needs.
type Publisher interface {
	Publish(topic string, messages ...*message.Message) error
}

// StartHook inspects a pre-calculation event. Returning true cancels the
// user-facing report for that run; the calculation itself still happens.
type StartHook func(ctx context.Context, payload levelevents.CalculationStartedPayloadV1) bool

// ResultHook inspects a post-calculation event, with the same cancellation
// semantics.
type ResultHook func(ctx context.Context, payload levelevents.CalculationSucceededPayloadV1) bool

// Dispatcher fans calculation notifications out to the cluster and to the
// registered hooks. The started event goes out on the bus here; succeeded and
// failed events travel as handler result messages, so the dispatcher only
// runs hooks for those.
type Dispatcher struct {
	bus     Publisher
	helpers utils.Helpers
	logger  *slog.Logger

	mu          sync.RWMutex
	startHooks  []StartHook
	resultHooks []ResultHook
}

func New(bus Publisher, helpers utils.Helpers, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		bus:     bus,
		helpers: helpers,
		logger:  logger,
	}
}

// OnCalculationStarted registers a pre-calculation hook.
func (d *Dispatcher) OnCalculationStarted(hook StartHook) {
	d.mu.Lock()
	d.startHooks = append(d.startHooks, hook)
	d.mu.Unlock()
}

// OnCalculationSucceeded registers a post-calculation hook.
func (d *Dispatcher) OnCalculationSucceeded(hook ResultHook) {
	d.mu.Lock()
	d.resultHooks = append(d.resultHooks, hook)
	d.mu.Unlock()
}

func (d *Dispatcher) CalculationStarted(ctx context.Context, payload levelevents.CalculationStartedPayloadV1) bool {
	d.mu.RLock()
	hooks := d.startHooks
	d.mu.RUnlock()

	vetoed := false
	for _, hook := range hooks {
		if hook(ctx, payload) {
			vetoed = true
		}
	}

	msg, err := d.helpers.CreateNewMessage(payload, levelevents.CalculationStarted)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to build started event", slog.Any("error", err))
		return vetoed
	}
	if err := d.bus.Publish(levelevents.CalculationStarted, msg); err != nil {
		// Notification loss never blocks the calculation.
		d.logger.WarnContext(ctx, "Failed to publish started event",
			slog.String("owner_id", payload.OwnerID.String()),
			slog.Any("error", err),
		)
	}
	return vetoed
}

func (d *Dispatcher) CalculationSucceeded(ctx context.Context, payload levelevents.CalculationSucceededPayloadV1) bool {
	d.mu.RLock()
	hooks := d.resultHooks
	d.mu.RUnlock()

	vetoed := false
	for _, hook := range hooks {
		if hook(ctx, payload) {
			vetoed = true
		}
	}
	return vetoed
}

func (d *Dispatcher) CalculationFailed(ctx context.Context, payload levelevents.CalculationFailedPayloadV1) {
	d.logger.DebugContext(ctx, "Calculation failed",
		slog.String("group", string(payload.GroupName)),
		slog.String("owner_id", payload.OwnerID.String()),
		slog.String("reason", payload.Reason),
	)
}

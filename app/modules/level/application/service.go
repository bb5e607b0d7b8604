package levelservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/skybound-club/isle-level/app/modules/level/cache"
	"github.com/skybound-club/isle-level/app/modules/level/domain/board"
	"github.com/skybound-club/isle-level/app/modules/level/domain/scoring"
	leveldb "github.com/skybound-club/isle-level/app/modules/level/infrastructure/repositories"
	levelmetrics "github.com/skybound-club/isle-level/app/modules/level/metrics"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// LevelService implements the Service interface.
type LevelService struct {
	repo     leveldb.Repository
	registry IslandRegistry
	events   EventSink
	cache    *cache.Cache
	board    *board.Board
	calc     *scoring.Calculator
	logger   *slog.Logger
	metrics  levelmetrics.LevelMetrics
	tracer   trace.Tracer
	cooldown time.Duration

	// One in-flight calculation per (owner, group) key; later requests for
	// the same key attach to it instead of starting a second scan.
	inflightMu sync.Mutex
	inflight   map[string]*inflightCalc

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	// commitMu serializes the steps that touch shared game state (cache
	// write, leaderboard update, snapshot persistence) across all keys, the
	// way the host runtime serializes game-state mutation. The expensive
	// scan runs outside it.
	commitMu sync.Mutex
}

type inflightCalc struct {
	done   chan struct{}
	result LevelOperationResult
	err    error
}

// NewLevelService creates a new LevelService.
func NewLevelService(
	repo leveldb.Repository,
	registry IslandRegistry,
	events EventSink,
	calc *scoring.Calculator,
	cooldown time.Duration,
	logger *slog.Logger,
	metrics levelmetrics.LevelMetrics,
	tracer trace.Tracer,
) *LevelService {
	return &LevelService{
		repo:     repo,
		registry: registry,
		events:   events,
		cache:    cache.New(repo, logger),
		board:    board.New(),
		calc:     calc,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		cooldown: cooldown,
		inflight: make(map[string]*inflightCalc),
		limiters: make(map[string]*rate.Limiter),
	}
}

var _ Service = (*LevelService)(nil)

type operationFunc func(ctx context.Context) (LevelOperationResult, error)

// withTelemetry wraps a calculation operation with tracing, metrics and
// panic recovery.
func (s *LevelService) withTelemetry(
	ctx context.Context,
	operationName string,
	group sharedtypes.GroupName,
	owner sharedtypes.OwnerID,
	op operationFunc,
) (result LevelOperationResult, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("group", string(group)),
		attribute.String("owner_id", owner.String()),
	))
	defer span.End()

	startTime := time.Now()
	defer func() {
		s.metrics.RecordCalculationDuration(ctx, group, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("operation", operationName),
				slog.String("group", string(group)),
				slog.String("owner_id", owner.String()),
				slog.Any("error", err),
			)
			s.metrics.RecordCalculationFailure(ctx, group)
			span.RecordError(err)
			result = LevelOperationResult{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("group", string(group)),
			slog.String("owner_id", owner.String()),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordCalculationFailure(ctx, group)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("group", string(group)),
			slog.String("owner_id", owner.String()),
			slog.String("reason", result.Failure.Reason),
		)
	}

	return result, nil
}

// limiter returns the per-key cooldown limiter, creating it on first use.
func (s *LevelService) limiter(key string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.cooldown), 1)
		s.limiters[key] = l
	}
	return l
}

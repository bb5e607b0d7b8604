package levelhandlers

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace/noop"

	levelservice "github.com/skybound-club/isle-level/app/modules/level/application"
	levelmetrics "github.com/skybound-club/isle-level/app/modules/level/metrics"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
	"github.com/skybound-club/isle-level/app/shared/utils"
)

// FakeLevelService is a programmable stub for the application service.
type FakeLevelService struct {
	RequestCalculationFunc func(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID, opts levelservice.CalculationOptions) (levelservice.LevelOperationResult, error)

	EvictedOwners []sharedtypes.OwnerID
}

func (f *FakeLevelService) RequestCalculation(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID, opts levelservice.CalculationOptions) (levelservice.LevelOperationResult, error) {
	if f.RequestCalculationFunc != nil {
		return f.RequestCalculationFunc(ctx, group, owner, opts)
	}
	return levelservice.LevelOperationResult{}, nil
}

func (f *FakeLevelService) GetLevel(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) sharedtypes.Level {
	return 0
}

func (f *FakeLevelService) GetTopTen(ctx context.Context, group sharedtypes.GroupName) []sharedtypes.BoardEntry {
	return nil
}

func (f *FakeLevelService) EvictOwner(ctx context.Context, owner sharedtypes.OwnerID) int {
	f.EvictedOwners = append(f.EvictedOwners, owner)
	return 1
}

func (f *FakeLevelService) LoadSnapshots(ctx context.Context) error { return nil }

func (f *FakeLevelService) FlushDirty(ctx context.Context) {}

func newTestHandlers(svc levelservice.Service) Handlers {
	logger := slog.New(slog.DiscardHandler)
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewLevelHandlers(svc, logger, tracer, utils.NewHelpers(), &levelmetrics.NoOpMetrics{})
}

package levelservice

import (
	"context"

	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
	"github.com/skybound-club/isle-level/app/shared/utils/results"
)

// LevelOperationResult is the envelope returned by calculation operations.
type LevelOperationResult = results.OperationResult[levelevents.CalculationSucceededPayloadV1, levelevents.CalculationFailedPayloadV1]

// CalculationOptions shape one calculation request.
type CalculationOptions struct {
	// NotifyUser requests delivery of the human-readable report. Veto hooks
	// and unchanged levels can still suppress it.
	NotifyUser bool

	// Force bypasses the per-key cooldown (admin and periodic triggers).
	Force bool

	// RecordInitial stores the computed level as the island's initial level,
	// set on the calculation run at island creation.
	RecordInitial bool
}

// Service is the calculation orchestrator and read-side of the level module.
type Service interface {
	// RequestCalculation (re)computes an owner's island level. Concurrent
	// requests for the same (owner, group) key coalesce onto one scan.
	RequestCalculation(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID, opts CalculationOptions) (LevelOperationResult, error)

	// GetLevel returns the cached level, 0 for an unknown owner or group.
	// Never triggers a recalculation.
	GetLevel(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) sharedtypes.Level

	// GetTopTen returns the group's current snapshot, empty for an unknown
	// group.
	GetTopTen(ctx context.Context, group sharedtypes.GroupName) []sharedtypes.BoardEntry

	// EvictOwner drops the owner's in-memory cache entries on disconnect and
	// returns how many were dropped.
	EvictOwner(ctx context.Context, owner sharedtypes.OwnerID) int

	// LoadSnapshots seeds the leaderboards from the durable store at
	// startup.
	LoadSnapshots(ctx context.Context) error

	// FlushDirty retries failed level-record writes.
	FlushDirty(ctx context.Context)
}

// ScanResult is what the island registry reports for one island.
type ScanResult struct {
	Counts sharedtypes.MaterialCounts
	Deaths int
}

// IslandRegistry is the external collaborator that walks the island and
// counts materials. Scans are expensive and may block; the registry enforces
// its own area and time bounds.
type IslandRegistry interface {
	ScanIsland(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) (*ScanResult, error)
}

// EventSink publishes the pre/post calculation notifications. A true return
// means a hook vetoed the event; a veto suppresses only the user-facing
// report, never the underlying count or cache update.
type EventSink interface {
	CalculationStarted(ctx context.Context, payload levelevents.CalculationStartedPayloadV1) bool
	CalculationSucceeded(ctx context.Context, payload levelevents.CalculationSucceededPayloadV1) bool
	CalculationFailed(ctx context.Context, payload levelevents.CalculationFailedPayloadV1)
}

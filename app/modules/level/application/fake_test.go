package levelservice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/skybound-club/isle-level/app/modules/level/domain/scoring"
	leveldb "github.com/skybound-club/isle-level/app/modules/level/infrastructure/repositories"
	levelmetrics "github.com/skybound-club/isle-level/app/modules/level/metrics"
	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// ------------------------
// Fake Repository
// ------------------------

type recordKey struct {
	owner sharedtypes.OwnerID
	group sharedtypes.GroupName
}

// FakeRepository provides a programmable in-memory stub for the
// leveldb.Repository interface.
type FakeRepository struct {
	mu      sync.Mutex
	trace   []string
	records map[recordKey]*leveldb.LevelRecord
	topTen  map[sharedtypes.GroupName][]sharedtypes.BoardEntry

	LoadLevelFunc  func(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (sharedtypes.Level, bool, error)
	SaveLevelFunc  func(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error
	SaveTopTenFunc func(ctx context.Context, group sharedtypes.GroupName, entries []sharedtypes.BoardEntry) error
	ListTopTenFunc func(ctx context.Context) ([]leveldb.TopTenRecord, error)
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		records: make(map[recordKey]*leveldb.LevelRecord),
		topTen:  make(map[sharedtypes.GroupName][]sharedtypes.BoardEntry),
	}
}

func (f *FakeRepository) record(step string) {
	f.mu.Lock()
	f.trace = append(f.trace, step)
	f.mu.Unlock()
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRepository) LoadLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (sharedtypes.Level, bool, error) {
	f.record("LoadLevel")
	if f.LoadLevelFunc != nil {
		return f.LoadLevelFunc(ctx, owner, group)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[recordKey{owner, group}]; ok {
		return rec.Level, true, nil
	}
	return 0, false, nil
}

func (f *FakeRepository) SaveLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error {
	f.record("SaveLevel")
	if f.SaveLevelFunc != nil {
		return f.SaveLevelFunc(ctx, owner, group, level)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey{owner, group}
	rec, ok := f.records[key]
	if !ok {
		rec = &leveldb.LevelRecord{OwnerID: owner, GroupName: group}
		f.records[key] = rec
	}
	rec.Level = level
	return nil
}

func (f *FakeRepository) GetRecord(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (*leveldb.LevelRecord, error) {
	f.record("GetRecord")
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[recordKey{owner, group}]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, leveldb.ErrRecordNotFound
}

func (f *FakeRepository) SaveInitialLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error {
	f.record("SaveInitialLevel")
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey{owner, group}
	rec, ok := f.records[key]
	if !ok {
		rec = &leveldb.LevelRecord{OwnerID: owner, GroupName: group, Level: level}
		f.records[key] = rec
	}
	rec.InitialLevel = level
	return nil
}

func (f *FakeRepository) GetTopTen(ctx context.Context, group sharedtypes.GroupName) (*leveldb.TopTenRecord, error) {
	f.record("GetTopTen")
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, ok := f.topTen[group]
	if !ok {
		return nil, leveldb.ErrRecordNotFound
	}
	return &leveldb.TopTenRecord{GroupName: group, Entries: entries}, nil
}

func (f *FakeRepository) SaveTopTen(ctx context.Context, group sharedtypes.GroupName, entries []sharedtypes.BoardEntry) error {
	f.record("SaveTopTen")
	if f.SaveTopTenFunc != nil {
		return f.SaveTopTenFunc(ctx, group, entries)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topTen[group] = entries
	return nil
}

func (f *FakeRepository) ListTopTen(ctx context.Context) ([]leveldb.TopTenRecord, error) {
	f.record("ListTopTen")
	if f.ListTopTenFunc != nil {
		return f.ListTopTenFunc(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]leveldb.TopTenRecord, 0, len(f.topTen))
	for group, entries := range f.topTen {
		out = append(out, leveldb.TopTenRecord{GroupName: group, Entries: entries})
	}
	return out, nil
}

// ------------------------
// Fake Island Registry
// ------------------------

type FakeRegistry struct {
	mu    sync.Mutex
	scans int

	ScanIslandFunc func(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) (*ScanResult, error)
}

func (f *FakeRegistry) Scans() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

func (f *FakeRegistry) ScanIsland(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) (*ScanResult, error) {
	f.mu.Lock()
	f.scans++
	f.mu.Unlock()
	if f.ScanIslandFunc != nil {
		return f.ScanIslandFunc(ctx, group, owner)
	}
	return &ScanResult{Counts: sharedtypes.MaterialCounts{}}, nil
}

// ------------------------
// Fake Event Sink
// ------------------------

type FakeEventSink struct {
	mu sync.Mutex

	VetoStart   bool
	VetoSuccess bool

	Started   []levelevents.CalculationStartedPayloadV1
	Succeeded []levelevents.CalculationSucceededPayloadV1
	Failed    []levelevents.CalculationFailedPayloadV1
}

func (f *FakeEventSink) CalculationStarted(_ context.Context, payload levelevents.CalculationStartedPayloadV1) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Started = append(f.Started, payload)
	return f.VetoStart
}

func (f *FakeEventSink) CalculationSucceeded(_ context.Context, payload levelevents.CalculationSucceededPayloadV1) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Succeeded = append(f.Succeeded, payload)
	return f.VetoSuccess
}

func (f *FakeEventSink) CalculationFailed(_ context.Context, payload levelevents.CalculationFailedPayloadV1) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Failed = append(f.Failed, payload)
}

func (f *FakeEventSink) SucceededCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Succeeded)
}

// ------------------------
// Service under test
// ------------------------

func testScoringConfig() scoring.Config {
	return scoring.Config{
		PointsPerLevel: 100,
		Weights: map[string]int64{
			"stone":      1,
			"gold_block": 10,
		},
		DeathPenalty: 25,
		MaxDeaths:    10,
	}
}

func newTestService(repo *FakeRepository, registry *FakeRegistry, sink *FakeEventSink, cooldown time.Duration) *LevelService {
	logger := slog.New(slog.DiscardHandler)
	calc := scoring.NewCalculator(testScoringConfig(), logger)
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewLevelService(repo, registry, sink, calc, cooldown, logger, &levelmetrics.NoOpMetrics{}, tracer)
}

package levelservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	leveldb "github.com/skybound-club/isle-level/app/modules/level/infrastructure/repositories"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

func TestLevelService_GetLevel(t *testing.T) {
	group := sharedtypes.GroupName("skyblock-main")
	owner := sharedtypes.OwnerID(uuid.New())

	t.Run("loads the persisted level on first read", func(t *testing.T) {
		repo := NewFakeRepository()
		require.NoError(t, repo.SaveLevel(context.Background(), owner, group, 7))
		svc := newTestService(repo, &FakeRegistry{}, &FakeEventSink{}, 0)

		assert.Equal(t, sharedtypes.Level(7), svc.GetLevel(context.Background(), group, owner))
	})

	t.Run("unknown owner reads as zero", func(t *testing.T) {
		repo := NewFakeRepository()
		svc := newTestService(repo, &FakeRegistry{}, &FakeEventSink{}, 0)

		assert.Equal(t, sharedtypes.Level(0), svc.GetLevel(context.Background(), group, sharedtypes.OwnerID(uuid.New())))
	})

	t.Run("load failure degrades to zero", func(t *testing.T) {
		repo := NewFakeRepository()
		repo.LoadLevelFunc = func(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (sharedtypes.Level, bool, error) {
			return 0, false, errors.New("connection refused")
		}
		svc := newTestService(repo, &FakeRegistry{}, &FakeEventSink{}, 0)

		assert.Equal(t, sharedtypes.Level(0), svc.GetLevel(context.Background(), group, owner))
	})
}

func TestLevelService_GetTopTen_UnknownGroupIsEmpty(t *testing.T) {
	svc := newTestService(NewFakeRepository(), &FakeRegistry{}, &FakeEventSink{}, 0)
	assert.Empty(t, svc.GetTopTen(context.Background(), "never-seen"))
}

func TestLevelService_EvictOwner(t *testing.T) {
	repo := NewFakeRepository()
	registry := &FakeRegistry{
		ScanIslandFunc: func(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) (*ScanResult, error) {
			return &ScanResult{Counts: sharedtypes.MaterialCounts{"stone": 600}}, nil
		},
	}
	svc := newTestService(repo, registry, &FakeEventSink{}, 0)

	groupA := sharedtypes.GroupName("skyblock-main")
	groupB := sharedtypes.GroupName("skyblock-hardcore")
	owner := sharedtypes.OwnerID(uuid.New())

	_, err := svc.RequestCalculation(context.Background(), groupA, owner, CalculationOptions{})
	require.NoError(t, err)
	_, err = svc.RequestCalculation(context.Background(), groupB, owner, CalculationOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, svc.EvictOwner(context.Background(), owner))

	// Durable records survive the eviction and are lazily reloaded.
	assert.Equal(t, sharedtypes.Level(6), svc.GetLevel(context.Background(), groupA, owner))
	assert.Len(t, svc.GetTopTen(context.Background(), groupA), 1, "eviction must not touch the leaderboard")
}

func TestLevelService_EvictOwner_DropsCooldownLimiters(t *testing.T) {
	repo := NewFakeRepository()
	svc := newTestService(repo, &FakeRegistry{}, &FakeEventSink{}, time.Hour)

	owner := sharedtypes.OwnerID(uuid.New())
	other := sharedtypes.OwnerID(uuid.New())
	opts := CalculationOptions{NotifyUser: true}

	for _, group := range []sharedtypes.GroupName{"skyblock-main", "skyblock-hardcore"} {
		_, err := svc.RequestCalculation(context.Background(), group, owner, opts)
		require.NoError(t, err)
	}
	_, err := svc.RequestCalculation(context.Background(), "skyblock-main", other, opts)
	require.NoError(t, err)
	require.Equal(t, 3, limiterCount(svc))

	svc.EvictOwner(context.Background(), owner)

	// Disconnect releases the owner's limiters in every group; other owners
	// keep theirs.
	assert.Equal(t, 1, limiterCount(svc))
}

func limiterCount(svc *LevelService) int {
	svc.limiterMu.Lock()
	defer svc.limiterMu.Unlock()
	return len(svc.limiters)
}

func TestLevelService_LoadSnapshots(t *testing.T) {
	group := sharedtypes.GroupName("skyblock-main")
	entries := []sharedtypes.BoardEntry{
		{OwnerID: sharedtypes.OwnerID(uuid.New()), Level: 42},
		{OwnerID: sharedtypes.OwnerID(uuid.New()), Level: 17},
	}

	repo := NewFakeRepository()
	require.NoError(t, repo.SaveTopTen(context.Background(), group, entries))
	svc := newTestService(repo, &FakeRegistry{}, &FakeEventSink{}, 0)

	require.NoError(t, svc.LoadSnapshots(context.Background()))

	top := svc.GetTopTen(context.Background(), group)
	require.Len(t, top, 2)
	assert.Equal(t, sharedtypes.Level(42), top[0].Level)
	assert.Equal(t, sharedtypes.Level(17), top[1].Level)
}

func TestLevelService_LoadSnapshots_RepositoryError(t *testing.T) {
	repo := NewFakeRepository()
	repo.ListTopTenFunc = func(ctx context.Context) ([]leveldb.TopTenRecord, error) {
		return nil, errors.New("relation does not exist")
	}
	svc := newTestService(repo, &FakeRegistry{}, &FakeEventSink{}, 0)

	err := svc.LoadSnapshots(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load top ten snapshots")
}

func TestLevelService_FlushDirty_RetriesFailedWrites(t *testing.T) {
	repo := NewFakeRepository()
	registry := &FakeRegistry{
		ScanIslandFunc: func(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) (*ScanResult, error) {
			return &ScanResult{Counts: sharedtypes.MaterialCounts{"stone": 900}}, nil
		},
	}
	svc := newTestService(repo, registry, &FakeEventSink{}, 0)

	group := sharedtypes.GroupName("skyblock-main")
	owner := sharedtypes.OwnerID(uuid.New())

	writesFail := true
	saved := make(map[sharedtypes.GroupName]sharedtypes.Level)
	repo.SaveLevelFunc = func(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error {
		if writesFail {
			return errors.New("connection refused")
		}
		saved[group] = level
		return nil
	}

	result, err := svc.RequestCalculation(context.Background(), group, owner, CalculationOptions{})
	require.NoError(t, err)
	require.True(t, result.IsSuccess(), "a failed record write must not fail the calculation")

	writesFail = false
	svc.FlushDirty(context.Background())

	assert.Equal(t, sharedtypes.Level(9), saved[group])
}

package levelservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// GetLevel serves the island-level query: the cached level, lazily loaded,
// 0 for an unknown owner or group. Load failures are logged and degrade to
// 0 rather than surfacing raw errors to the query caller.
func (s *LevelService) GetLevel(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) sharedtypes.Level {
	level, err := s.cache.Get(ctx, owner, group)
	if err != nil {
		s.logger.WarnContext(ctx, "Level lookup fell back to zero",
			slog.String("group", string(group)),
			slog.String("owner_id", owner.String()),
			slog.Any("error", err),
		)
		return 0
	}
	return level
}

// GetTopTen serves the top-ten query, empty for an unknown group.
func (s *LevelService) GetTopTen(ctx context.Context, group sharedtypes.GroupName) []sharedtypes.BoardEntry {
	return s.board.Snapshot(group)
}

// EvictOwner drops the owner's in-memory cache entries and cooldown limiters.
// Leaderboard entries and durable records survive the disconnect.
func (s *LevelService) EvictOwner(ctx context.Context, owner sharedtypes.OwnerID) int {
	evicted := s.cache.Evict(owner)

	suffix := "/" + owner.String()
	s.limiterMu.Lock()
	for k := range s.limiters {
		if strings.HasSuffix(k, suffix) {
			delete(s.limiters, k)
		}
	}
	s.limiterMu.Unlock()
	s.logger.InfoContext(ctx, "Evicted owner from level cache",
		slog.String("owner_id", owner.String()),
		slog.Int("entries", evicted),
	)
	return evicted
}

// LoadSnapshots seeds every group's leaderboard from the persisted top-ten
// records. Called once at startup before the routers begin consuming.
func (s *LevelService) LoadSnapshots(ctx context.Context) error {
	records, err := s.repo.ListTopTen(ctx)
	if err != nil {
		return fmt.Errorf("failed to load top ten snapshots: %w", err)
	}
	for _, record := range records {
		s.board.Load(record.GroupName, record.Entries)
	}
	s.logger.InfoContext(ctx, "Loaded leaderboard snapshots",
		slog.Int("groups", len(records)),
	)
	return nil
}

// FlushDirty retries level-record writes that failed earlier.
func (s *LevelService) FlushDirty(ctx context.Context) {
	s.cache.Flush(ctx)
}

package leveldb

import (
	"context"

	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// Repository is the persistence surface of the level module. LoadLevel and
// SaveLevel deliberately match the cache's Loader interface.
type Repository interface {
	// LoadLevel fetches the durable level; found is false when the owner has
	// no record in the group.
	LoadLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (level sharedtypes.Level, found bool, err error)

	// SaveLevel upserts the level, preserving the recorded initial level.
	SaveLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error

	// GetRecord returns the full record or ErrRecordNotFound.
	GetRecord(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (*LevelRecord, error)

	// SaveInitialLevel records the level measured at island creation.
	SaveInitialLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error

	// GetTopTen returns the group's persisted snapshot or ErrRecordNotFound.
	GetTopTen(ctx context.Context, group sharedtypes.GroupName) (*TopTenRecord, error)

	// SaveTopTen replaces the group's persisted snapshot.
	SaveTopTen(ctx context.Context, group sharedtypes.GroupName, entries []sharedtypes.BoardEntry) error

	// ListTopTen returns every group's snapshot for the cold-start load.
	ListTopTen(ctx context.Context) ([]TopTenRecord, error)
}

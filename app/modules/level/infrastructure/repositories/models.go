package leveldb

import (
	"time"

	"github.com/uptrace/bun"

	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// LevelRecord is the durable copy of an owner's level in one territory group.
type LevelRecord struct {
	bun.BaseModel `bun:"table:island_levels,alias:il"`

	OwnerID      sharedtypes.OwnerID   `bun:"owner_id,pk,type:uuid"`
	GroupName    sharedtypes.GroupName `bun:"group_name,pk"`
	Level        sharedtypes.Level     `bun:"level,notnull,default:0"`
	InitialLevel sharedtypes.Level     `bun:"initial_level,notnull,default:0"`
	UpdatedAt    time.Time             `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// TopTenRecord is the persisted snapshot of one group's leaderboard. Entries
// are stored as an ordered jsonb array, level descending.
type TopTenRecord struct {
	bun.BaseModel `bun:"table:island_top_ten,alias:itt"`

	GroupName sharedtypes.GroupName    `bun:"group_name,pk"`
	Entries   []sharedtypes.BoardEntry `bun:"entries,type:jsonb,notnull"`
	UpdatedAt time.Time                `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

package sharedtypes

import (
	"database/sql/driver"

	"github.com/google/uuid"
)

// OwnerID identifies the player (or team leader) whose island is scored.
type OwnerID uuid.UUID

func (id OwnerID) String() string {
	return uuid.UUID(id).String()
}

func (id OwnerID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *OwnerID) UnmarshalText(data []byte) error {
	u, err := uuid.ParseBytes(data)
	if err != nil {
		return err
	}
	*id = OwnerID(u)
	return nil
}

func (id OwnerID) Value() (driver.Value, error) {
	return id.String(), nil
}

func (id *OwnerID) Scan(src interface{}) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return err
	}
	*id = OwnerID(u)
	return nil
}

func (id OwnerID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ParseOwnerID parses the canonical string form of an owner id.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OwnerID{}, err
	}
	return OwnerID(u), nil
}

// GroupName names a territory group (a world/realm). Levels and leaderboards
// are tracked independently per group.
type GroupName string

// Level is a computed island level. Negative values are allowed; whether they
// are meaningful is up to the configured formula.
type Level int64

// MaterialCounts maps a material identifier to the number of blocks of that
// material found on an island. Snapshots are immutable for the duration of
// one calculation.
type MaterialCounts map[string]int64

// Results is the immutable outcome of one level calculation.
type Results struct {
	Level             Level    `json:"level"`
	InitialLevel      Level    `json:"initial_level"`
	PointsToNextLevel int64    `json:"points_to_next_level"`
	DeathHandicap     int64    `json:"death_handicap"`
	Report            []string `json:"report"`
}

// BoardEntry is one (owner, level) pair in a top-ten snapshot.
type BoardEntry struct {
	OwnerID OwnerID `json:"owner_id"`
	Level   Level   `json:"level"`
}

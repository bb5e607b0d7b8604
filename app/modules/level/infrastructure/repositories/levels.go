package leveldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// LevelDBImpl handles database operations for level records and top-ten
// snapshots.
type LevelDBImpl struct {
	DB *bun.DB
}

var _ Repository = (*LevelDBImpl)(nil)

func (db *LevelDBImpl) GetRecord(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (*LevelRecord, error) {
	record := new(LevelRecord)
	err := db.DB.NewSelect().
		Model(record).
		Where("owner_id = ?", owner).
		Where("group_name = ?", group).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get level record: %w", err)
	}
	return record, nil
}

func (db *LevelDBImpl) LoadLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName) (sharedtypes.Level, bool, error) {
	record, err := db.GetRecord(ctx, owner, group)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return record.Level, true, nil
}

func (db *LevelDBImpl) SaveLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error {
	record := &LevelRecord{
		OwnerID:   owner,
		GroupName: group,
		Level:     level,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := db.DB.NewInsert().
		Model(record).
		On("CONFLICT (owner_id, group_name) DO UPDATE").
		Set("level = EXCLUDED.level").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save level record: %w", err)
	}
	return nil
}

func (db *LevelDBImpl) SaveInitialLevel(ctx context.Context, owner sharedtypes.OwnerID, group sharedtypes.GroupName, level sharedtypes.Level) error {
	record := &LevelRecord{
		OwnerID:      owner,
		GroupName:    group,
		Level:        level,
		InitialLevel: level,
		UpdatedAt:    time.Now().UTC(),
	}
	_, err := db.DB.NewInsert().
		Model(record).
		On("CONFLICT (owner_id, group_name) DO UPDATE").
		Set("initial_level = EXCLUDED.initial_level").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save initial level: %w", err)
	}
	return nil
}

func (db *LevelDBImpl) GetTopTen(ctx context.Context, group sharedtypes.GroupName) (*TopTenRecord, error) {
	record := new(TopTenRecord)
	err := db.DB.NewSelect().
		Model(record).
		Where("group_name = ?", group).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get top ten snapshot: %w", err)
	}
	return record, nil
}

func (db *LevelDBImpl) SaveTopTen(ctx context.Context, group sharedtypes.GroupName, entries []sharedtypes.BoardEntry) error {
	if entries == nil {
		entries = []sharedtypes.BoardEntry{}
	}
	record := &TopTenRecord{
		GroupName: group,
		Entries:   entries,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := db.DB.NewInsert().
		Model(record).
		On("CONFLICT (group_name) DO UPDATE").
		Set("entries = EXCLUDED.entries").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save top ten snapshot: %w", err)
	}
	return nil
}

func (db *LevelDBImpl) ListTopTen(ctx context.Context) ([]TopTenRecord, error) {
	var records []TopTenRecord
	err := db.DB.NewSelect().
		Model(&records).
		Order("group_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list top ten snapshots: %w", err)
	}
	return records, nil
}

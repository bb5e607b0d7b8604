package levelmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	leveldb "github.com/skybound-club/isle-level/app/modules/level/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating island_levels and island_top_ten tables...")

		if _, err := db.NewCreateTable().Model((*leveldb.LevelRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		if _, err := db.NewCreateTable().Model((*leveldb.TopTenRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		if _, err := db.NewRaw("CREATE INDEX IF NOT EXISTS idx_island_levels_group_level ON island_levels (group_name, level DESC)").Exec(ctx); err != nil {
			return err
		}

		fmt.Println("Level tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping island_levels and island_top_ten tables...")

		if _, err := db.NewDropTable().Model((*leveldb.TopTenRecord)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		if _, err := db.NewDropTable().Model((*leveldb.LevelRecord)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("Level tables dropped successfully!")
		return nil
	})
}

package store

import (
	"context"
	"fmt"

	"github.com/reelgen/reelgen/internal/config"
)

// Open connects the configured driver and runs its migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (DB, error) {
	var (
		db  DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		db, err = NewSQLiteDB(cfg.Path)
	case config.DriverPostgres:
		db, err = NewPostgresDB(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", cfg.Driver, err)
	}
	return db, nil
}

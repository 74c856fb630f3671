package mock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"subrecetas/internal/catalog"
	"subrecetas/internal/db"
	applog "subrecetas/internal/log"
)

// New returns an in-memory sqlite database holding the demo catalog. Each
// call gets its own database.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := db.OpenSQLite(fmt.Sprintf("file:subrecetas-mock-%s?mode=memory&cache=shared", uuid.NewString()), logger.Silent)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	result, err := catalog.EnsureDemoSeed(ctx, db.NewRepositories(database))
	if err != nil {
		return nil, fmt.Errorf("seed mock database: %w", err)
	}

	applog.Debug(ctx, "mock database ready", "seed_version", result.Version)
	return database, nil
}

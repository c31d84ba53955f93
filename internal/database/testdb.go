package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/velocityfibre/fibrefield/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTest opens an isolated in-memory SQLite database with the full schema
// migrated. Services take an injected *database.DB, so tests get a private
// store instead of sharing the field database.
func OpenTest() (*DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}

	// A single connection keeps the in-memory database alive and private
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	wrapped := &DB{DB: db}
	if err := wrapped.AutoMigrate(
		&models.UserAuth{},
		&models.AppSetting{},
		&models.Pole{},
		&models.Capture{},
		&models.Photo{},
		&models.Assignment{},
		&models.SyncQueueItem{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate test schema: %w", err)
	}

	return wrapped, nil
}

package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// OpenSQLite opens a sqlite database for local development and tests.
// A single connection serializes writers the way row locks do on Postgres.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	cfg := gormConfig()
	cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

package db

import (
	"fmt"
	"sync"

	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/pkg/env"
	"github.com/snapngo/snapngo/pkg/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	conn     *gorm.DB
	connOnce sync.Once
)

// Connection returns the process-wide database handle, opening it on
// first use according to SNAPNGO_DATABASE_TYPE.
func Connection() *gorm.DB {
	connOnce.Do(func() {
		vars := env.Variables()

		gdb, err := Open(vars.DatabaseType, vars.DatabaseDSN)
		if err != nil {
			log.Fatal("failed to connect to database", "type", vars.DatabaseType, "error", err)
		}

		conn = gdb
	})

	return conn
}

// Open opens a gorm handle for the given database type and DSN.
func Open(dbType, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch dbType {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite", "":
		gdb, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer at a time.
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
		return gdb, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}

// Migrate creates or updates the ledger tables.
func Migrate() error {
	return Connection().AutoMigrate(models.All...)
}

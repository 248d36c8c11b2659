package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"taskpanel/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the database selected by cfg.DBDriver. Driver errors for
// unique violations are translated to gorm.ErrDuplicatedKey.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DBPath + "?_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}

	if cfg.DBDriver == DriverSQLite {
		// SQLite allows a single writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Printf("✅ Connected to %s database", cfg.DBDriver)
	return db, nil
}

// Ping checks that the connection pool can still reach the database.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("⚠️  Error closing database: %v", err)
	}
}

func waitForDatabase(db *sql.DB, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := db.Ping(); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			log.Printf("⏳ Database not ready, retrying in %v... (attempt %d/%d)", retryDelay, i+1, maxRetries)
			time.Sleep(retryDelay)
		}
	}
	return fmt.Errorf("database not ready after %d attempts", maxRetries)
}

package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"taskpanel/internal/model"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationFiles exposes the embedded SQL migrations.
func MigrationFiles() fs.FS {
	return migrationFiles
}

type MigrationConfig struct {
	DBName     string
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultMigrationConfig(dbName string) *MigrationConfig {
	return &MigrationConfig{
		DBName:     dbName,
		MaxRetries: 5,
		RetryDelay: 2 * time.Second,
	}
}

// Migrate brings the schema up to date. Postgres runs the versioned SQL
// migrations; SQLite, used for local runs and tests, is auto-migrated from the
// models.
func Migrate(db *gorm.DB, driver string, cfg *MigrationConfig) error {
	if driver == DriverSQLite {
		if err := db.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
		log.Println("✅ SQLite schema migrated")
		return nil
	}
	return runMigrations(db, cfg)
}

func runMigrations(db *gorm.DB, cfg *MigrationConfig) error {
	if cfg == nil {
		cfg = DefaultMigrationConfig("taskpanel")
	}

	log.Println("🔄 Starting database migrations")

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := waitForDatabase(sqlDB, cfg.MaxRetries, cfg.RetryDelay); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		DatabaseName:    cfg.DBName,
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, cfg.DBName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("✅ Database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	log.Printf("✅ Database migrated to version %d (dirty: %v)", version, dirty)
	return nil
}

package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ananth-NQI/choptime-backend/internal/config"
	"github.com/Ananth-NQI/choptime-backend/internal/models"
)

// DB is the shared connection, set by Connect
var DB *gorm.DB

// Connect opens the database described by cfg and stores it in DB.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	DB = db
	slog.Info("✅ Database connected", "driver", cfg.Driver)
	return db, nil
}

// Migrate creates or updates the tables for all persisted models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.MenuItem{},
		&models.PartnerApplication{},
	)
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		path := cfg.URL
		if path == "" {
			path = "choptime.db"
		}
		if !strings.HasPrefix(path, "file:") && path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		slog.Debug("Opening SQLite database", "path", path)
		return sqlite.Open(path), nil
	case config.DriverPostgres:
		return postgres.Open(PostgresDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// PostgresDSN builds the PostgreSQL DSN. DATABASE_URL wins; otherwise Cloud Run
// connects over the Cloud SQL unix socket and local development over TCP.
func PostgresDSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	if cfg.InstanceConnectionName != "" {
		slog.Info("Connecting to Cloud SQL via socket", "instance", cfg.InstanceConnectionName)
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.InstanceConnectionName, cfg.User, cfg.Password, cfg.Name)
	}

	slog.Info("Connecting to PostgreSQL over TCP", "host", cfg.Host)
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable",
		cfg.Host, cfg.User, cfg.Password, cfg.Name)
}

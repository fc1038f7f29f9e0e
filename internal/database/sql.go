package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"easemyday/internal/models"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

var dialects = map[string]goose.Dialect{
	"postgres": goose.DialectPostgres,
	"sqlite":   goose.DialectSQLite3,
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func dialector(config models.DatabaseConfiguration) gorm.Dialector {
	if config.Type == "sqlite" {
		separator := "?"
		if strings.Contains(config.Path, "?") {
			separator = "&"
		}
		return sqlite.Open("file:" + config.Path + separator + "_foreign_keys=on&_busy_timeout=5000")
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		config.Host,
		config.User,
		config.Password,
		config.Name,
		config.Port,
		config.SSLMode,
	)
	return postgres.Open(dsn)
}

// Open connects and migrates the configured database.
func Open(ctx context.Context, config models.DatabaseConfiguration) (*gorm.DB, error) {
	db, err := gorm.Open(dialector(config), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.Type == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// One writer at a time; concurrent sqlite writers fail with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	if err = Migrate(ctx, db, config.Type); err != nil {
		return nil, err
	}
	return db, nil
}

func InitDB(config models.DatabaseConfiguration) *gorm.DB {
	db, err := Open(context.Background(), config)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.String("type", config.Type), zap.Error(err))
	}
	return db
}

// Migrate applies the embedded migrations of the given database type.
func Migrate(ctx context.Context, db *gorm.DB, dbType string) error {
	dialect, ok := dialects[dbType]
	if !ok {
		return fmt.Errorf("unsupported database type %q", dbType)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}

	fsys, err := fs.Sub(migrationsFS, "migrations/"+dbType)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, result := range results {
		zap.L().Info("Applied migration",
			zap.String("source", result.Source.Path),
			zap.Duration("duration", result.Duration))
	}
	return nil
}

// OpenSQLiteMemory returns a migrated private in-memory database.
func OpenSQLiteMemory(name string) (*gorm.DB, error) {
	return Open(context.Background(), models.DatabaseConfiguration{
		Type: "sqlite",
		Path: fmt.Sprintf("%s?mode=memory&cache=shared", name),
	})
}

package database

import (
	"context"
	"testing"
	"time"

	"easemyday/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func TestOpenSQLiteMemoryMigrates(t *testing.T) {
	db, err := OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)

	for _, table := range []string{
		"users", "action_codes", "courses", "assignments", "personal_tasks", "study_plans",
		"study_sessions", "notifications", "progress_logs", "stress_indicators",
		"study_groups", "group_members", "group_tasks",
	} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	user := models.User{Email: "ada@uni.edu", ProviderType: models.LocalProviderType, ProviderKey: "local"}
	require.NoError(t, db.Create(&user).Error)

	duplicate := models.User{Email: "ada@uni.edu", ProviderType: models.LocalProviderType, ProviderKey: "local"}
	assert.ErrorIs(t, db.Create(&duplicate).Error, gorm.ErrDuplicatedKey)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)

	assert.NoError(t, Migrate(context.Background(), db, "sqlite"))
}

func TestMigrateRejectsUnknownType(t *testing.T) {
	db, err := OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)

	assert.Error(t, Migrate(context.Background(), db, "oracle"))
}

func TestPostgresMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("easemyday"),
		tcpostgres.WithUsername("easemyday"),
		tcpostgres.WithPassword("easemyday"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := Open(ctx, models.DatabaseConfiguration{
		Type:     "postgres",
		Host:     host,
		Port:     int32(port.Int()),
		User:     "easemyday",
		Password: "easemyday",
		Name:     "easemyday",
		SSLMode:  "disable",
	})
	require.NoError(t, err)

	log := models.ProgressLog{UserID: "u1", LogDate: "2026-03-01", HoursStudied: 2}
	require.NoError(t, db.Create(&log).Error)
	assert.True(t, db.Migrator().HasTable("group_tasks"))
}

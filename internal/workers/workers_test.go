package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"easemyday/internal/cache"
	"easemyday/internal/database"
	"easemyday/internal/identity"
	"easemyday/internal/identity/identitytest"
	"easemyday/internal/models"
	"easemyday/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunCycle(t *testing.T) {
	var order []string
	tasks := []WorkerTask{
		{Name: "first", Fn: func(context.Context) (int, error) {
			order = append(order, "first")
			return 0, errors.New("boom")
		}},
		{Name: "second", Fn: func(context.Context) (int, error) {
			order = append(order, "second")
			return 4, nil
		}},
	}

	counts := RunCycle(context.Background(), "test", tasks)

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, map[string]int{"first": 0, "second": 4}, counts)
}

func TestRunCycleStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	counts := RunCycle(ctx, "test", []WorkerTask{{Name: "task", Fn: func(context.Context) (int, error) {
		called = true
		return 1, nil
	}}})

	assert.False(t, called)
	assert.Empty(t, counts)
}

func TestStartPeriodicWorkerReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{}, 8)
	done := make(chan struct{})

	go func() {
		StartPeriodicWorker(ctx, "test", 5*time.Millisecond, []WorkerTask{{Name: "tick", Fn: func(context.Context) (int, error) {
			runs <- struct{}{}
			return 0, nil
		}}})
		close(done)
	}()

	<-runs
	<-runs
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestActionCodeCleanup(t *testing.T) {
	db, err := database.OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)

	user := models.User{Email: "ada@uni.edu", ProviderType: models.LocalProviderType, ProviderKey: "local"}
	require.NoError(t, db.Create(&user).Error)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	codes := []models.ActionCode{
		{Type: models.ActionCodeVerifyEmail, UserID: user.ID, HashedSecret: "x", ExpiresAt: now.Add(-time.Minute), AttemptsLeft: 3},
		{Type: models.ActionCodePasswordReset, UserID: user.ID, HashedSecret: "x", ExpiresAt: now.Add(time.Hour), AttemptsLeft: 0},
		{Type: models.ActionCodePasswordReset, UserID: user.ID, HashedSecret: "x", ExpiresAt: now.Add(time.Hour), AttemptsLeft: 2},
	}
	require.NoError(t, db.Create(&codes).Error)

	worker := &ActionCodeCleanupWorker{DB: db, Now: func() time.Time { return now }}
	counts := RunCycle(context.Background(), "action_code_cleanup", worker.Tasks())

	assert.Equal(t, 1, counts["expired_codes"])
	assert.Equal(t, 1, counts["exhausted_codes"])

	var remaining []models.ActionCode
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, codes[2].ID, remaining[0].ID)
}

func TestVisitorSweeper(t *testing.T) {
	manager := session.NewManager(context.Background(), session.Options{
		Provider: identitytest.New(),
		Store:    session.NewCacheCredentialStore(cache.NewMemoryCache(), time.Hour),
		Policy:   identity.DefaultPasswordPolicy(),
		Logger:   zap.NewNop(),
	})
	t.Cleanup(manager.Close)

	manager.Get("idle")
	time.Sleep(20 * time.Millisecond)
	manager.Get("active")

	sweeper := &VisitorSweeper{Sessions: manager, IdleTimeout: 10 * time.Millisecond}
	counts := RunCycle(context.Background(), "visitor_sweeper", sweeper.Tasks())

	assert.Equal(t, 1, counts["idle_visitors"])
	_, ok := manager.Lookup("idle")
	assert.False(t, ok)
	_, ok = manager.Lookup("active")
	assert.True(t, ok)
}

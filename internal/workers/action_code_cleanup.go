package workers

import (
	"context"
	"time"

	"easemyday/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActionCodeCleanupWorker deletes action codes that can no longer be consumed.
// Consumption already rejects them, so this only keeps the table small.
type ActionCodeCleanupWorker struct {
	DB          *gorm.DB
	RunInterval time.Duration
	Now         func() time.Time
}

func (w *ActionCodeCleanupWorker) Start(ctx context.Context) {
	StartPeriodicWorker(ctx, "action_code_cleanup", w.RunInterval, w.Tasks())
}

func (w *ActionCodeCleanupWorker) Tasks() []WorkerTask {
	return []WorkerTask{
		{Name: "expired_codes", Fn: w.cleanupExpiredCodes},
		{Name: "exhausted_codes", Fn: w.cleanupExhaustedCodes},
	}
}

func (w *ActionCodeCleanupWorker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *ActionCodeCleanupWorker) cleanupExpiredCodes(ctx context.Context) (int, error) {
	result := w.DB.WithContext(ctx).
		Where("expires_at < ?", w.now()).
		Delete(&models.ActionCode{})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		zap.L().Debug("Deleted expired action codes", zap.Int64("count", result.RowsAffected))
	}
	return int(result.RowsAffected), nil
}

func (w *ActionCodeCleanupWorker) cleanupExhaustedCodes(ctx context.Context) (int, error) {
	result := w.DB.WithContext(ctx).
		Where("attempts_left <= ?", 0).
		Delete(&models.ActionCode{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

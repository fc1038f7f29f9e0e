package sql

import (
	"net/http"

	apierrors "easemyday/internal/errors"
	"easemyday/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const notificationsLimit = 50

func ListNotifications(db *gorm.DB, userID string) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(notificationsLimit).
		Find(&notifications).Error
	return notifications, err
}

func MarkNotificationRead(db *gorm.DB, userID string, id uuid.UUID) error {
	result := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead returns how many notifications changed.
func MarkAllNotificationsRead(db *gorm.DB, userID string) (int64, error) {
	result := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

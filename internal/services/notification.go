package services

import (
	"context"

	"easemyday/internal/handlers"
	"easemyday/internal/models"
	"easemyday/internal/sql"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func (s NotificationService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", handlers.GetListHandler(s.GetNotificationList))
	r.Post("/read", handlers.GetOneHandler(s.MarkAllRead))
	r.Post("/{id0}/read", handlers.ActionHandler(s.MarkRead))

	return r
}

func (s NotificationService) GetNotificationList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
) ([]models.Notification, error) {
	return sql.ListNotifications(s.DB.WithContext(ctx), claims.UserID)
}

func (s NotificationService) MarkRead(ctx context.Context, _ *zap.Logger, claims models.UserClaims, ids uuid.UUIDs) error {
	return sql.MarkNotificationRead(s.DB.WithContext(ctx), claims.UserID, ids[0])
}

func (s NotificationService) MarkAllRead(
	ctx context.Context,
	logger *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
) (models.MarkAllReadResponse, error) {
	updated, err := sql.MarkAllNotificationsRead(s.DB.WithContext(ctx), claims.UserID)
	if err != nil {
		return models.MarkAllReadResponse{}, err
	}
	logger.Debug("Notifications marked read", zap.Int64("updated", updated))
	return models.MarkAllReadResponse{Updated: updated}, nil
}

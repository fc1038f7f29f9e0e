package services

import (
	"context"
	"time"

	"easemyday/internal/handlers"
	"easemyday/internal/models"
	"easemyday/internal/sql"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DashboardService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s DashboardService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handlers.GetOneHandler(s.GetStats))
	return r
}

func (s DashboardService) GetStats(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
) (models.DashboardStats, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return sql.GetDashboardStats(s.DB.WithContext(ctx), claims.UserID, now())
}

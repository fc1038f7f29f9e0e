package services

import (
	"context"

	"easemyday/internal/handlers"
	m "easemyday/internal/middlewares"
	"easemyday/internal/models"
	"easemyday/internal/sql"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService serves the daily progress logs. Posting a log for a day
// that already has one replaces it.
type ProgressService struct {
	DB *gorm.DB
}

func (s ProgressService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(m.ValidateQuery[models.DateWindowParams]).
		Get("/", handlers.GetListWithQueryHandler(s.GetProgressLogList))
	r.With(m.Validate[models.ProgressLogBody]).Put("/", handlers.UpdateHandler(s.UpsertProgressLog))

	return r
}

func (s ProgressService) GetProgressLogList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	window models.DateWindowParams,
) ([]models.ProgressLog, error) {
	return sql.ListProgressLogs(s.DB.WithContext(ctx), claims.UserID, window)
}

func (s ProgressService) UpsertProgressLog(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.ProgressLogBody,
) (models.ProgressLog, error) {
	return sql.UpsertProgressLog(s.DB.WithContext(ctx), claims.UserID, body)
}

type StressIndicatorService struct {
	DB *gorm.DB
}

func (s StressIndicatorService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handlers.GetListHandler(s.GetStressIndicatorList))
	return r
}

func (s StressIndicatorService) GetStressIndicatorList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
) ([]models.StressIndicator, error) {
	return sql.ListStressIndicators(s.DB.WithContext(ctx), claims.UserID)
}

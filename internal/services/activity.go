package services

import (
	"context"

	"easemyday/internal/activity"
	"easemyday/internal/handlers"
	m "easemyday/internal/middlewares"
	"easemyday/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultActivityDays = 30

// ActivityService lists the caller's own auth activity. It sits behind the
// access gate, which supplies the claims.
type ActivityService struct {
	ActivityLogger activity.IActivityLogger
}

func (s ActivityService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(m.ValidateQuery[models.ActivityQueryParams]).
		Get("/", handlers.GetOneWithQueryHandler(s.GetActivity))

	return r
}

func (s ActivityService) GetActivity(
	_ context.Context,
	logger *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	queryParams models.ActivityQueryParams,
) (models.ActivityResponse, error) {
	criteria := map[string][]string{"user_id": {claims.UserID}}
	if queryParams.Action != "" {
		criteria["action"] = []string{queryParams.Action}
	}

	days := queryParams.Days
	if days == 0 {
		days = defaultActivityDays
	}

	activities, err := s.ActivityLogger.Search(criteria, days)
	if err != nil {
		logger.Error("Failed to search activity", zap.Error(err))
		return models.ActivityResponse{}, err
	}

	perDay, err := s.ActivityLogger.CountByDay(criteria, days)
	if err != nil {
		logger.Error("Failed to count activity", zap.Error(err))
		return models.ActivityResponse{}, err
	}

	return models.ActivityResponse{Activities: activities, PerDay: perDay}, nil
}

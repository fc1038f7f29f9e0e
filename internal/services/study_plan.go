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

type StudyPlanService struct {
	DB *gorm.DB
}

func (s StudyPlanService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", handlers.GetListHandler(s.GetStudyPlanList))
	r.With(m.Validate[models.StudyPlanBody]).Post("/", handlers.CreateHandler(s.CreateStudyPlan))

	r.Route("/{id0}/sessions", func(r chi.Router) {
		r.Get("/", handlers.GetListHandler(s.GetStudySessionList))
		r.With(m.Validate[models.StudySessionBody]).Post("/", handlers.CreateHandler(s.CreateStudySession))
	})

	return r
}

func (s StudyPlanService) GetStudyPlanList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
) ([]models.StudyPlan, error) {
	return sql.ListActiveStudyPlans(s.DB.WithContext(ctx), claims.UserID)
}

func (s StudyPlanService) CreateStudyPlan(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.StudyPlanBody,
) (models.StudyPlan, error) {
	return sql.CreateStudyPlan(s.DB.WithContext(ctx), claims.UserID, body)
}

func (s StudyPlanService) GetStudySessionList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
) ([]models.StudySession, error) {
	return sql.ListStudySessions(s.DB.WithContext(ctx), claims.UserID, ids[0])
}

func (s StudyPlanService) CreateStudySession(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
	body models.StudySessionBody,
) (models.StudySession, error) {
	return sql.CreateStudySession(s.DB.WithContext(ctx), claims.UserID, ids[0], body)
}

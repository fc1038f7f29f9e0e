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

type CourseService struct {
	DB *gorm.DB
}

func (s CourseService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", handlers.GetListHandler(s.GetCourseList))
	r.With(m.Validate[models.CourseBody]).Post("/", handlers.CreateHandler(s.CreateCourse))

	r.Route("/{id0}", func(r chi.Router) {
		r.With(m.Validate[models.CourseBody]).Put("/", handlers.UpdateHandler(s.UpdateCourse))
		r.Delete("/", handlers.DeleteHandler(s.DeleteCourse))
	})

	return r
}

func (s CourseService) GetCourseList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
) ([]models.Course, error) {
	return sql.ListCourses(s.DB.WithContext(ctx), claims.UserID)
}

func (s CourseService) CreateCourse(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.CourseBody,
) (models.Course, error) {
	return sql.CreateCourse(s.DB.WithContext(ctx), claims.UserID, body)
}

func (s CourseService) UpdateCourse(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
	body models.CourseBody,
) (models.Course, error) {
	return sql.UpdateCourse(s.DB.WithContext(ctx), claims.UserID, ids[0], body)
}

func (s CourseService) DeleteCourse(ctx context.Context, _ *zap.Logger, claims models.UserClaims, ids uuid.UUIDs) error {
	return sql.DeleteCourse(s.DB.WithContext(ctx), claims.UserID, ids[0])
}

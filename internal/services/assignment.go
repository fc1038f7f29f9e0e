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

type AssignmentService struct {
	DB *gorm.DB
}

func (s AssignmentService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(m.ValidateQuery[models.DateWindowParams]).
		Get("/", handlers.GetListWithQueryHandler(s.GetAssignmentList))
	r.With(m.Validate[models.AssignmentBody]).Post("/", handlers.CreateHandler(s.CreateAssignment))

	r.Route("/{id0}", func(r chi.Router) {
		r.With(m.Validate[models.AssignmentBody]).Put("/", handlers.UpdateHandler(s.UpdateAssignment))
		r.Delete("/", handlers.DeleteHandler(s.DeleteAssignment))
	})

	return r
}

func (s AssignmentService) GetAssignmentList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	window models.DateWindowParams,
) ([]models.Assignment, error) {
	return sql.ListAssignments(s.DB.WithContext(ctx), claims.UserID, window)
}

func (s AssignmentService) CreateAssignment(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.AssignmentBody,
) (models.Assignment, error) {
	return sql.CreateAssignment(s.DB.WithContext(ctx), claims.UserID, body)
}

func (s AssignmentService) UpdateAssignment(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
	body models.AssignmentBody,
) (models.Assignment, error) {
	return sql.UpdateAssignment(s.DB.WithContext(ctx), claims.UserID, ids[0], body)
}

func (s AssignmentService) DeleteAssignment(ctx context.Context, _ *zap.Logger, claims models.UserClaims, ids uuid.UUIDs) error {
	return sql.DeleteAssignment(s.DB.WithContext(ctx), claims.UserID, ids[0])
}

// TaskService serves personal tasks, the to-dos that belong to no course.
type TaskService struct {
	DB *gorm.DB
}

func (s TaskService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(m.ValidateQuery[models.DateWindowParams]).
		Get("/", handlers.GetListWithQueryHandler(s.GetTaskList))
	r.With(m.Validate[models.PersonalTaskBody]).Post("/", handlers.CreateHandler(s.CreateTask))

	r.Route("/{id0}", func(r chi.Router) {
		r.With(m.Validate[models.PersonalTaskBody]).Put("/", handlers.UpdateHandler(s.UpdateTask))
		r.Delete("/", handlers.DeleteHandler(s.DeleteTask))
	})

	return r
}

func (s TaskService) GetTaskList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	window models.DateWindowParams,
) ([]models.PersonalTask, error) {
	return sql.ListPersonalTasks(s.DB.WithContext(ctx), claims.UserID, window)
}

func (s TaskService) CreateTask(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.PersonalTaskBody,
) (models.PersonalTask, error) {
	return sql.CreatePersonalTask(s.DB.WithContext(ctx), claims.UserID, body)
}

func (s TaskService) UpdateTask(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
	body models.PersonalTaskBody,
) (models.PersonalTask, error) {
	return sql.UpdatePersonalTask(s.DB.WithContext(ctx), claims.UserID, ids[0], body)
}

func (s TaskService) DeleteTask(ctx context.Context, _ *zap.Logger, claims models.UserClaims, ids uuid.UUIDs) error {
	return sql.DeletePersonalTask(s.DB.WithContext(ctx), claims.UserID, ids[0])
}

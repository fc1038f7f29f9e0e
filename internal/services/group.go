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

type GroupService struct {
	DB *gorm.DB
}

func (s GroupService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", handlers.GetListHandler(s.GetGroupList))
	r.With(m.Validate[models.StudyGroupBody]).Post("/", handlers.CreateHandler(s.CreateGroup))
	r.With(m.Validate[models.JoinGroupBody]).Post("/join", handlers.UpdateHandler(s.JoinGroup))
	r.Get("/{id0}/tasks", handlers.GetListHandler(s.GetGroupTaskList))

	return r
}

func (s GroupService) GetGroupList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
) ([]models.StudyGroupWithRole, error) {
	return sql.ListStudyGroups(s.DB.WithContext(ctx), claims.UserID)
}

func (s GroupService) CreateGroup(
	ctx context.Context,
	logger *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.StudyGroupBody,
) (models.StudyGroupWithRole, error) {
	group, err := sql.CreateStudyGroup(s.DB.WithContext(ctx), claims.UserID, body)
	if err != nil {
		return models.StudyGroupWithRole{}, err
	}
	logger.Info("Study group created", zap.String("group_id", group.ID.String()))
	return group, nil
}

func (s GroupService) JoinGroup(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.JoinGroupBody,
) (models.StudyGroupWithRole, error) {
	return sql.JoinStudyGroup(s.DB.WithContext(ctx), claims.UserID, body.InviteCode)
}

func (s GroupService) GetGroupTaskList(
	ctx context.Context,
	_ *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
) ([]models.GroupTask, error) {
	return sql.ListGroupTasks(s.DB.WithContext(ctx), claims.UserID, ids[0])
}

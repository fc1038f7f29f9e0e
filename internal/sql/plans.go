package sql

import (
	"easemyday/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ListActiveStudyPlans(db *gorm.DB, userID string) ([]models.StudyPlan, error) {
	plans := []models.StudyPlan{}
	err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("start_date ASC").
		Find(&plans).Error
	return plans, err
}

func CreateStudyPlan(db *gorm.DB, userID string, body models.StudyPlanBody) (models.StudyPlan, error) {
	plan := models.StudyPlan{
		UserID:    userID,
		Title:     body.Title,
		StartDate: body.StartDate.UTC(),
		EndDate:   body.EndDate.UTC(),
		IsActive:  true,
	}
	err := db.Create(&plan).Error
	return plan, err
}

// ListStudySessions returns the sessions of a plan owned by userID.
func ListStudySessions(db *gorm.DB, userID string, planID uuid.UUID) ([]models.StudySession, error) {
	if _, err := getOwned[models.StudyPlan](db, planID, userID); err != nil {
		return nil, err
	}

	sessions := []models.StudySession{}
	err := db.Preload("Assignment", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "title")
	}).Preload("PersonalTask", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "title")
	}).Where("study_plan_id = ?", planID).
		Order("scheduled_date ASC").
		Find(&sessions).Error
	return sessions, err
}

func CreateStudySession(
	db *gorm.DB,
	userID string,
	planID uuid.UUID,
	body models.StudySessionBody,
) (models.StudySession, error) {
	if _, err := getOwned[models.StudyPlan](db, planID, userID); err != nil {
		return models.StudySession{}, err
	}
	if body.AssignmentID != nil {
		if _, err := getOwned[models.Assignment](db, *body.AssignmentID, userID); err != nil {
			return models.StudySession{}, err
		}
	}
	if body.PersonalTaskID != nil {
		if _, err := getOwned[models.PersonalTask](db, *body.PersonalTaskID, userID); err != nil {
			return models.StudySession{}, err
		}
	}

	session := models.StudySession{
		StudyPlanID:     planID,
		AssignmentID:    body.AssignmentID,
		PersonalTaskID:  body.PersonalTaskID,
		ScheduledDate:   body.ScheduledDate.UTC(),
		DurationMinutes: body.DurationMinutes,
	}
	err := db.Create(&session).Error
	return session, err
}

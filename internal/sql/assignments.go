package sql

import (
	"easemyday/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ListAssignments(db *gorm.DB, userID string, window models.DateWindowParams) ([]models.Assignment, error) {
	assignments := []models.Assignment{}

	query := db.Preload("Course", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "course_code", "course_name", "color")
	}).Where("user_id = ?", userID)
	if window.Enabled() {
		query = query.Where("due_date >= ? AND due_date <= ?", window.Start.UTC(), window.End.UTC())
	}

	err := query.Order("due_date ASC").Find(&assignments).Error
	return assignments, err
}

func CreateAssignment(db *gorm.DB, userID string, body models.AssignmentBody) (models.Assignment, error) {
	assignment := models.Assignment{UserID: userID}
	if err := applyAssignment(db, userID, &assignment, body); err != nil {
		return models.Assignment{}, err
	}
	err := db.Create(&assignment).Error
	return assignment, err
}

func UpdateAssignment(
	db *gorm.DB,
	userID string,
	id uuid.UUID,
	body models.AssignmentBody,
) (models.Assignment, error) {
	assignment, err := getOwned[models.Assignment](db, id, userID)
	if err != nil {
		return models.Assignment{}, err
	}
	if err = applyAssignment(db, userID, &assignment, body); err != nil {
		return models.Assignment{}, err
	}
	err = db.Omit("Course").Save(&assignment).Error
	return assignment, err
}

func DeleteAssignment(db *gorm.DB, userID string, id uuid.UUID) error {
	return deleteOwned[models.Assignment](db, id, userID)
}

// applyAssignment refuses to attach the assignment to another user's course.
func applyAssignment(db *gorm.DB, userID string, assignment *models.Assignment, body models.AssignmentBody) error {
	if body.CourseID != nil {
		if _, err := getOwned[models.Course](db, *body.CourseID, userID); err != nil {
			return err
		}
	}

	assignment.CourseID = body.CourseID
	assignment.Course = nil
	assignment.Title = body.Title
	assignment.Description = body.Description
	assignment.DueDate = body.DueDate.UTC()
	assignment.Status = body.Status
	assignment.Priority = body.Priority
	assignment.EstimatedHours = body.EstimatedHours
	return nil
}

func ListPersonalTasks(db *gorm.DB, userID string, window models.DateWindowParams) ([]models.PersonalTask, error) {
	tasks := []models.PersonalTask{}

	query := db.Where("user_id = ?", userID)
	if window.Enabled() {
		query = query.Where("due_date >= ? AND due_date <= ?", window.Start.UTC(), window.End.UTC())
	}

	err := query.Order("due_date ASC").Find(&tasks).Error
	return tasks, err
}

func CreatePersonalTask(db *gorm.DB, userID string, body models.PersonalTaskBody) (models.PersonalTask, error) {
	task := models.PersonalTask{UserID: userID}
	applyPersonalTask(&task, body)
	err := db.Create(&task).Error
	return task, err
}

func UpdatePersonalTask(
	db *gorm.DB,
	userID string,
	id uuid.UUID,
	body models.PersonalTaskBody,
) (models.PersonalTask, error) {
	task, err := getOwned[models.PersonalTask](db, id, userID)
	if err != nil {
		return models.PersonalTask{}, err
	}
	applyPersonalTask(&task, body)
	err = db.Save(&task).Error
	return task, err
}

func DeletePersonalTask(db *gorm.DB, userID string, id uuid.UUID) error {
	return deleteOwned[models.PersonalTask](db, id, userID)
}

func applyPersonalTask(task *models.PersonalTask, body models.PersonalTaskBody) {
	task.Title = body.Title
	task.Description = body.Description
	task.DueDate = nil
	if body.DueDate != nil {
		due := body.DueDate.UTC()
		task.DueDate = &due
	}
	task.Priority = body.Priority
	task.Completed = body.Completed
}

package sql

import (
	"easemyday/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ListCourses(db *gorm.DB, userID string) ([]models.Course, error) {
	courses := []models.Course{}
	err := db.Where("user_id = ?", userID).Order("course_code ASC").Find(&courses).Error
	return courses, err
}

func CreateCourse(db *gorm.DB, userID string, body models.CourseBody) (models.Course, error) {
	course := models.Course{UserID: userID}
	applyCourse(&course, body)
	err := db.Create(&course).Error
	return course, err
}

func UpdateCourse(db *gorm.DB, userID string, id uuid.UUID, body models.CourseBody) (models.Course, error) {
	course, err := getOwned[models.Course](db, id, userID)
	if err != nil {
		return models.Course{}, err
	}
	applyCourse(&course, body)
	err = db.Save(&course).Error
	return course, err
}

func DeleteCourse(db *gorm.DB, userID string, id uuid.UUID) error {
	return deleteOwned[models.Course](db, id, userID)
}

func applyCourse(course *models.Course, body models.CourseBody) {
	course.CourseCode = body.CourseCode
	course.CourseName = body.CourseName
	course.Instructor = body.Instructor
	course.Credits = body.Credits
	course.Color = body.Color
}

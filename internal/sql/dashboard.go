package sql

import (
	"time"

	"easemyday/internal/models"

	"gorm.io/gorm"
)

const upcomingWindow = 7 * 24 * time.Hour

// GetDashboardStats counts assignments relative to now. Days are UTC days.
func GetDashboardStats(db *gorm.DB, userID string, now time.Time) (models.DashboardStats, error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var stats models.DashboardStats
	assignments := func() *gorm.DB {
		return db.Model(&models.Assignment{}).Where("user_id = ?", userID)
	}

	if err := assignments().
		Where("due_date >= ? AND due_date < ?", dayStart, dayEnd).
		Count(&stats.TodayTasks).Error; err != nil {
		return stats, err
	}
	if err := assignments().
		Where("due_date < ? AND status <> ?", now, models.AssignmentStatusCompleted).
		Count(&stats.Overdue).Error; err != nil {
		return stats, err
	}
	if err := assignments().
		Where("due_date >= ? AND due_date < ? AND status <> ?", now, now.Add(upcomingWindow), models.AssignmentStatusCompleted).
		Count(&stats.Upcoming).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&models.Course{}).Where("user_id = ?", userID).Count(&stats.TotalCourses).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

package sql

import (
	"easemyday/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	dateLayout           = "2006-01-02"
	stressIndicatorLimit = 10
)

func ListProgressLogs(db *gorm.DB, userID string, window models.DateWindowParams) ([]models.ProgressLog, error) {
	logs := []models.ProgressLog{}

	query := db.Where("user_id = ?", userID)
	if window.Enabled() {
		query = query.Where("log_date >= ? AND log_date <= ?",
			window.Start.UTC().Format(dateLayout), window.End.UTC().Format(dateLayout))
	}

	err := query.Order("log_date DESC").Find(&logs).Error
	return logs, err
}

// UpsertProgressLog keeps a single log per user and day.
func UpsertProgressLog(db *gorm.DB, userID string, body models.ProgressLogBody) (models.ProgressLog, error) {
	log := models.ProgressLog{
		UserID:         userID,
		LogDate:        body.LogDate,
		HoursStudied:   body.HoursStudied,
		TasksCompleted: body.TasksCompleted,
		Mood:           body.Mood,
		Notes:          body.Notes,
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "log_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"hours_studied", "tasks_completed", "mood", "notes", "updated_at"}),
	}).Create(&log).Error
	if err != nil {
		return models.ProgressLog{}, err
	}

	// On conflict the generated id was discarded; read back the stored row.
	var stored models.ProgressLog
	err = db.Where("user_id = ? AND log_date = ?", userID, body.LogDate).First(&stored).Error
	return stored, err
}

func ListStressIndicators(db *gorm.DB, userID string) ([]models.StressIndicator, error) {
	indicators := []models.StressIndicator{}
	err := db.Where("user_id = ?", userID).
		Order("week_start DESC").
		Limit(stressIndicatorLimit).
		Find(&indicators).Error
	return indicators, err
}

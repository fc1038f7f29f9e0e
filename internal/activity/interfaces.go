package activity

import "easemyday/internal/models"

// IActivityLogger records auth activity and reads it back over a window of days.
type IActivityLogger interface {
	Send(activity models.Activity) error
	Search(criteria map[string][]string, days int) ([]map[string]any, error)
	CountByDay(criteria map[string][]string, days int) ([]models.TimeSeriesPoint, error)
	Close() error
}

package activity

import (
	"strconv"
	"strings"
	"time"

	"easemyday/internal/models"

	"go.uber.org/zap"
)

const (
	ObjectTypeUser       = "user"
	ObjectTypeActionLink = "action_link"
)

func NewLogFilter(fields map[string]string) models.LogFilter {
	return models.LogFilter{
		Fields:    fields,
		Timestamp: strconv.FormatInt(time.Now().UnixNano(), 10),
	}
}

// Only principal snapshots are stored with the entry. Action links carry codes.
func isAuthorizedObject(objectType string) bool {
	return objectType == ObjectTypeUser
}

// EmailDomain is what gets indexed instead of the full address.
func EmailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return strings.ToLower(email[at+1:])
	}
	return ""
}

// Record sends one entry. A failing activity log is logged and otherwise ignored.
func Record(
	logger *zap.Logger,
	activityLogger IActivityLogger,
	action models.ActivityAction,
	message string,
	fields map[string]string,
	object any,
) {
	if activityLogger == nil {
		return
	}

	if fields == nil {
		fields = map[string]string{}
	}
	fields["action"] = string(action)
	if _, ok := fields["object_type"]; !ok {
		fields["object_type"] = ObjectTypeUser
	}

	err := activityLogger.Send(models.Activity{
		Message: message,
		Filter:  NewLogFilter(fields),
		Object:  object,
	})
	if err != nil {
		logger.Error("Failed to record activity", zap.String("action", string(action)), zap.Error(err))
	}
}

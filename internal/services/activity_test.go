package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"easemyday/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchingActivityLogger struct {
	MockActivityLogger
	criteria   map[string][]string
	searchDays int
	days       int
}

func (l *searchingActivityLogger) Search(criteria map[string][]string, days int) ([]map[string]any, error) {
	l.criteria = criteria
	l.searchDays = days
	return []map[string]any{{"action": "login"}}, nil
}

func (l *searchingActivityLogger) CountByDay(_ map[string][]string, days int) ([]models.TimeSeriesPoint, error) {
	l.days = days
	return []models.TimeSeriesPoint{{Date: "2026-03-10", Count: 1}}, nil
}

func TestActivityService(t *testing.T) {
	logger := &searchingActivityLogger{}
	router := ActivityService{ActivityLogger: logger}.Routes()

	serve := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req = req.WithContext(context.WithValue(req.Context(), models.UserClaimKey{}, models.UserClaims{UserID: "uid-1"}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("should search the caller's own entries", func(t *testing.T) {
		rec := serve("/")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, map[string][]string{"user_id": {"uid-1"}}, logger.criteria)
		assert.Equal(t, defaultActivityDays, logger.days)
		assert.Equal(t, defaultActivityDays, logger.searchDays)
		response := decode[models.ActivityResponse](t, rec)
		assert.Len(t, response.Activities, 1)
		assert.Len(t, response.PerDay, 1)
	})

	t.Run("should filter by action", func(t *testing.T) {
		rec := serve("/?action=login&days=7")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"login"}, logger.criteria["action"])
		assert.Equal(t, 7, logger.days)
		assert.Equal(t, 7, logger.searchDays)
	})

	t.Run("should bound the window", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, serve("/?days=365").Code)
	})
}

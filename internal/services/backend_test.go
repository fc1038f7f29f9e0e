package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"easemyday/internal/database"
	"easemyday/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type listBody[T any] struct {
	Data []T `json:"data"`
}

// backend mounts the data services the way the server does, with the claims
// the access gate would have set.
func backend(t *testing.T, db *gorm.DB, now time.Time) func(userID, method, target, payload string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Mount("/courses", CourseService{DB: db}.Routes())
	r.Mount("/assignments", AssignmentService{DB: db}.Routes())
	r.Mount("/tasks", TaskService{DB: db}.Routes())
	r.Mount("/study-plans", StudyPlanService{DB: db}.Routes())
	r.Mount("/notifications", NotificationService{DB: db}.Routes())
	r.Mount("/progress-logs", ProgressService{DB: db}.Routes())
	r.Mount("/stress-indicators", StressIndicatorService{DB: db}.Routes())
	r.Mount("/groups", GroupService{DB: db}.Routes())
	r.Mount("/dashboard", DashboardService{DB: db, Now: func() time.Time { return now }}.Routes())

	return func(userID, method, target, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(payload))
		claims := models.UserClaims{UserID: userID, EmailVerified: true}
		req = req.WithContext(context.WithValue(req.Context(), models.UserClaimKey{}, claims))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
}

func newBackendDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	return db
}

func TestCourseRoutes(t *testing.T) {
	serve := backend(t, newBackendDB(t), time.Now())

	rec := serve("alice", http.MethodPost, "/courses", `{"course_code":"CS101","course_name":"Intro","credits":3,"color":"#00ff00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	course := decode[models.Course](t, rec)
	assert.Equal(t, "alice", course.UserID)

	t.Run("should validate the body", func(t *testing.T) {
		rec := serve("alice", http.MethodPost, "/courses", `{"course_code":"CS102","course_name":"Intro","color":"green"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"COLOR_HEXCOLOR"}, decode[errorBody](t, rec).Error)
	})

	t.Run("should hide other users' rows", func(t *testing.T) {
		rec := serve("bob", http.MethodPut, "/courses/"+course.ID.String(), `{"course_code":"HACK","course_name":"Hacked"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = serve("bob", http.MethodGet, "/courses", "")
		assert.Empty(t, decode[listBody[models.Course]](t, rec).Data)
	})

	rec = serve("alice", http.MethodPut, "/courses/"+course.ID.String(), `{"course_code":"CS102","course_name":"Intro II"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CS102", decode[models.Course](t, rec).CourseCode)

	assert.Equal(t, http.StatusNoContent, serve("alice", http.MethodDelete, "/courses/"+course.ID.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, serve("alice", http.MethodDelete, "/courses/"+course.ID.String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, serve("alice", http.MethodDelete, "/courses/not-a-uuid", "").Code)
}

func TestAssignmentWindow(t *testing.T) {
	serve := backend(t, newBackendDB(t), time.Now())

	for _, due := range []string{"2026-03-01T09:00:00Z", "2026-03-15T09:00:00Z"} {
		rec := serve("alice", http.MethodPost, "/assignments",
			`{"title":"Essay","due_date":"`+due+`","status":"pending","priority":"high"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := serve("alice", http.MethodGet, "/assignments?start=2026-03-10T00:00:00Z&end=2026-03-20T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listBody[models.Assignment]](t, rec).Data, 1)

	rec = serve("alice", http.MethodGet, "/assignments", "")
	assert.Len(t, decode[listBody[models.Assignment]](t, rec).Data, 2)

	rec = serve("alice", http.MethodPost, "/assignments", `{"title":"Essay","due_date":"2026-03-01T09:00:00Z","status":"done","priority":"high"}`)
	assert.Equal(t, []string{"STATUS_ONEOF"}, decode[errorBody](t, rec).Error)
}

func TestStudyPlanSessions(t *testing.T) {
	serve := backend(t, newBackendDB(t), time.Now())

	rec := serve("alice", http.MethodPost, "/study-plans",
		`{"title":"Finals","start_date":"2026-05-01T00:00:00Z","end_date":"2026-05-20T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plan := decode[models.StudyPlan](t, rec)

	rec = serve("alice", http.MethodPost, "/study-plans/"+plan.ID.String()+"/sessions",
		`{"scheduled_date":"2026-05-02T18:00:00Z","duration_minutes":90}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve("alice", http.MethodGet, "/study-plans/"+plan.ID.String()+"/sessions", "")
	assert.Len(t, decode[listBody[models.StudySession]](t, rec).Data, 1)

	rec = serve("bob", http.MethodGet, "/study-plans/"+plan.ID.String()+"/sessions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationRoutes(t *testing.T) {
	db := newBackendDB(t)
	serve := backend(t, db, time.Now())

	for _, title := range []string{"Due soon", "New member"} {
		require.NoError(t, db.Create(&models.Notification{UserID: "alice", Title: title, Message: "m", Type: "reminder"}).Error)
	}
	var first models.Notification
	require.NoError(t, db.Where("user_id = ?", "alice").First(&first).Error)

	assert.Equal(t, http.StatusNoContent, serve("alice", http.MethodPost, "/notifications/"+first.ID.String()+"/read", "").Code)
	assert.Equal(t, http.StatusNotFound, serve("bob", http.MethodPost, "/notifications/"+first.ID.String()+"/read", "").Code)

	rec := serve("alice", http.MethodPost, "/notifications/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[models.MarkAllReadResponse](t, rec).Updated)
}

func TestProgressUpsert(t *testing.T) {
	serve := backend(t, newBackendDB(t), time.Now())

	for _, hours := range []string{"2", "3.5"} {
		rec := serve("alice", http.MethodPut, "/progress-logs", `{"log_date":"2026-03-10","hours_studied":`+hours+`}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := serve("alice", http.MethodGet, "/progress-logs", "")
	logs := decode[listBody[models.ProgressLog]](t, rec).Data
	require.Len(t, logs, 1)
	assert.InDelta(t, 3.5, logs[0].HoursStudied, 0.001)

	rec = serve("alice", http.MethodPut, "/progress-logs", `{"log_date":"10/03/2026"}`)
	assert.Equal(t, []string{"LOG_DATE_DATETIME"}, decode[errorBody](t, rec).Error)

	rec = serve("alice", http.MethodGet, "/stress-indicators", "")
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestGroupRoutes(t *testing.T) {
	serve := backend(t, newBackendDB(t), time.Now())

	rec := serve("alice", http.MethodPost, "/groups", `{"name":"Algebra crew"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	group := decode[models.StudyGroupWithRole](t, rec)
	assert.Equal(t, models.GroupRoleOwner, group.MemberRole)
	assert.Len(t, group.InviteCode, 8)

	join := `{"invite_code":"` + group.InviteCode + `"}`
	rec = serve("bob", http.MethodPost, "/groups/join", join)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.GroupRoleMember, decode[models.StudyGroupWithRole](t, rec).MemberRole)

	rec = serve("bob", http.MethodPost, "/groups/join", join)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []string{"ALREADY_MEMBER"}, decode[errorBody](t, rec).Error)

	rec = serve("carol", http.MethodPost, "/groups/join", `{"invite_code":"ZZZZ9999"}`)
	assert.Equal(t, []string{"INVALID_INVITE_CODE"}, decode[errorBody](t, rec).Error)

	assert.Equal(t, http.StatusOK, serve("bob", http.MethodGet, "/groups/"+group.ID.String()+"/tasks", "").Code)
	assert.Equal(t, http.StatusNotFound, serve("carol", http.MethodGet, "/groups/"+group.ID.String()+"/tasks", "").Code)
}

func TestDashboardRoute(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	serve := backend(t, newBackendDB(t), now)

	require.Equal(t, http.StatusCreated, serve("alice", http.MethodPost, "/courses", `{"course_code":"CS101","course_name":"Intro"}`).Code)

	rec := serve("alice", http.MethodGet, "/dashboard", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DashboardStats{TotalCourses: 1}, decode[models.DashboardStats](t, rec))
}

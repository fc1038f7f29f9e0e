package sql

import (
	"net/http"
	"testing"
	"time"

	"easemyday/internal/database"
	apierrors "easemyday/internal/errors"
	"easemyday/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	return db
}

func assertAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.Code)
	assert.Equal(t, []string{code}, apiErr.Errors)
}

func TestCourseOwnership(t *testing.T) {
	db := newSQLiteDB(t)

	course, err := CreateCourse(db, "alice", models.CourseBody{CourseCode: "CS101", CourseName: "Intro", Credits: 3})
	require.NoError(t, err)

	_, err = UpdateCourse(db, "bob", course.ID, models.CourseBody{CourseCode: "HACK", CourseName: "Hacked"})
	assertAPIError(t, err, http.StatusNotFound, apierrors.ErrNotFound)

	updated, err := UpdateCourse(db, "alice", course.ID, models.CourseBody{CourseCode: "CS102", CourseName: "Intro II"})
	require.NoError(t, err)
	assert.Equal(t, "CS102", updated.CourseCode)

	assertAPIError(t, DeleteCourse(db, "bob", course.ID), http.StatusNotFound, apierrors.ErrNotFound)
	require.NoError(t, DeleteCourse(db, "alice", course.ID))

	courses, err := ListCourses(db, "alice")
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestAssignmentsWindowAndCourse(t *testing.T) {
	db := newSQLiteDB(t)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	course, err := CreateCourse(db, "alice", models.CourseBody{CourseCode: "CS101", CourseName: "Intro", Color: "#ff0000"})
	require.NoError(t, err)

	for i, title := range []string{"Essay", "Lab", "Exam"} {
		_, err = CreateAssignment(db, "alice", models.AssignmentBody{
			CourseID: &course.ID,
			Title:    title,
			DueDate:  base.Add(time.Duration(i*48) * time.Hour),
			Status:   models.AssignmentStatusPending,
			Priority: models.PriorityMedium,
		})
		require.NoError(t, err)
	}

	all, err := ListAssignments(db, "alice", models.DateWindowParams{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Essay", all[0].Title)
	require.NotNil(t, all[0].Course)
	assert.Equal(t, "CS101", all[0].Course.CourseCode)

	start, end := base.Add(24*time.Hour), base.Add(72*time.Hour)
	windowed, err := ListAssignments(db, "alice", models.DateWindowParams{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "Lab", windowed[0].Title)

	_, err = CreateAssignment(db, "bob", models.AssignmentBody{
		CourseID: &course.ID, Title: "Sneaky", DueDate: base,
		Status: models.AssignmentStatusPending, Priority: models.PriorityLow,
	})
	assertAPIError(t, err, http.StatusNotFound, apierrors.ErrNotFound)
}

func TestStudySessionsRequireOwnedPlan(t *testing.T) {
	db := newSQLiteDB(t)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	plan, err := CreateStudyPlan(db, "alice", models.StudyPlanBody{Title: "Finals", StartDate: start, EndDate: start.Add(14 * 24 * time.Hour)})
	require.NoError(t, err)
	task, err := CreatePersonalTask(db, "alice", models.PersonalTaskBody{Title: "Flashcards", Priority: models.PriorityHigh})
	require.NoError(t, err)

	_, err = CreateStudySession(db, "alice", plan.ID, models.StudySessionBody{
		PersonalTaskID: &task.ID, ScheduledDate: start.Add(48 * time.Hour), DurationMinutes: 45,
	})
	require.NoError(t, err)
	_, err = CreateStudySession(db, "alice", plan.ID, models.StudySessionBody{
		ScheduledDate: start.Add(24 * time.Hour), DurationMinutes: 30,
	})
	require.NoError(t, err)

	sessions, err := ListStudySessions(db, "alice", plan.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, 30, sessions[0].DurationMinutes)
	require.NotNil(t, sessions[1].PersonalTask)
	assert.Equal(t, "Flashcards", sessions[1].PersonalTask.Title)

	_, err = ListStudySessions(db, "bob", plan.ID)
	assertAPIError(t, err, http.StatusNotFound, apierrors.ErrNotFound)

	plans, err := ListActiveStudyPlans(db, "alice")
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestNotificationsMarkRead(t *testing.T) {
	db := newSQLiteDB(t)

	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, db.Create(&models.Notification{UserID: "alice", Title: title, Message: title, Type: "info"}).Error)
	}
	notifications, err := ListNotifications(db, "alice")
	require.NoError(t, err)
	require.Len(t, notifications, 3)

	require.NoError(t, MarkNotificationRead(db, "alice", notifications[0].ID))
	assertAPIError(t, MarkNotificationRead(db, "bob", notifications[1].ID), http.StatusNotFound, apierrors.ErrNotFound)

	changed, err := MarkAllNotificationsRead(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)
}

func TestUpsertProgressLog(t *testing.T) {
	db := newSQLiteDB(t)

	first, err := UpsertProgressLog(db, "alice", models.ProgressLogBody{LogDate: "2026-03-01", HoursStudied: 2, Mood: "ok"})
	require.NoError(t, err)

	second, err := UpsertProgressLog(db, "alice", models.ProgressLogBody{LogDate: "2026-03-01", HoursStudied: 5, Mood: "great"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5.0, second.HoursStudied)
	assert.Equal(t, "great", second.Mood)

	_, err = UpsertProgressLog(db, "alice", models.ProgressLogBody{LogDate: "2026-03-03", HoursStudied: 1})
	require.NoError(t, err)

	logs, err := ListProgressLogs(db, "alice", models.DateWindowParams{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "2026-03-03", logs[0].LogDate)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	logs, err = ListProgressLogs(db, "alice", models.DateWindowParams{Start: &start, End: &end})
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestStressIndicatorsNewestFirst(t *testing.T) {
	db := newSQLiteDB(t)

	for i := 0; i < 12; i++ {
		week := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*i).Format(dateLayout)
		require.NoError(t, db.Create(&models.StressIndicator{UserID: "alice", WeekStart: week, StressLevel: i % 5}).Error)
	}

	indicators, err := ListStressIndicators(db, "alice")
	require.NoError(t, err)
	require.Len(t, indicators, stressIndicatorLimit)
	assert.Equal(t, "2026-03-23", indicators[0].WeekStart)
}

func TestStudyGroups(t *testing.T) {
	db := newSQLiteDB(t)

	group, err := CreateStudyGroup(db, "alice", models.StudyGroupBody{Name: "Algorithms"})
	require.NoError(t, err)
	assert.Equal(t, models.GroupRoleOwner, group.MemberRole)
	assert.Len(t, group.InviteCode, 8)

	_, err = JoinStudyGroup(db, "bob", "NOPE1234")
	assertAPIError(t, err, http.StatusNotFound, apierrors.ErrInvalidInviteCode)

	joined, err := JoinStudyGroup(db, "bob", group.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, models.GroupRoleMember, joined.MemberRole)

	_, err = JoinStudyGroup(db, "bob", group.InviteCode)
	assertAPIError(t, err, http.StatusConflict, apierrors.ErrAlreadyMember)

	groups, err := ListStudyGroups(db, "bob")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Algorithms", groups[0].Name)
	assert.Equal(t, models.GroupRoleMember, groups[0].MemberRole)

	require.NoError(t, db.Create(&models.GroupTask{GroupID: group.ID, Title: "Read chapter 3", Status: "open"}).Error)
	tasks, err := ListGroupTasks(db, "bob", group.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	_, err = ListGroupTasks(db, "carol", group.ID)
	assertAPIError(t, err, http.StatusNotFound, apierrors.ErrNotFound)
}

func TestCreateStudyGroupRedrawsTakenInviteCode(t *testing.T) {
	db := newSQLiteDB(t)

	codes := []string{"ABCD2345", "ABCD2345", "WXYZ6789"}
	original := newInviteCode
	newInviteCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}
	t.Cleanup(func() { newInviteCode = original })

	first, err := CreateStudyGroup(db, "alice", models.StudyGroupBody{Name: "Algorithms"})
	require.NoError(t, err)
	assert.Equal(t, "ABCD2345", first.InviteCode)

	second, err := CreateStudyGroup(db, "bob", models.StudyGroupBody{Name: "Databases"})
	require.NoError(t, err)
	assert.Equal(t, "WXYZ6789", second.InviteCode)
	assert.Empty(t, codes)

	var count int64
	require.NoError(t, db.Model(&models.StudyGroup{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDashboardStats(t *testing.T) {
	db := newSQLiteDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	create := func(due time.Time, status models.AssignmentStatus) {
		_, err := CreateAssignment(db, "alice", models.AssignmentBody{
			Title: "x", DueDate: due, Status: status, Priority: models.PriorityLow,
		})
		require.NoError(t, err)
	}
	create(now.Add(2*time.Hour), models.AssignmentStatusPending)       // today, upcoming
	create(now.Add(-2*time.Hour), models.AssignmentStatusPending)      // today, overdue
	create(now.Add(-48*time.Hour), models.AssignmentStatusCompleted)   // done
	create(now.Add(3*24*time.Hour), models.AssignmentStatusInProgress) // upcoming
	create(now.Add(10*24*time.Hour), models.AssignmentStatusPending)   // later
	_, err := CreateCourse(db, "alice", models.CourseBody{CourseCode: "CS101", CourseName: "Intro"})
	require.NoError(t, err)

	stats, err := GetDashboardStats(db, "alice", now)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{TodayTasks: 2, Overdue: 1, Upcoming: 2, TotalCourses: 1}, stats)
}

package sql

import (
	"database/sql"
	"net/http"
	"regexp"
	"testing"

	apierrors "easemyday/internal/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestListCourses(t *testing.T) {
	gormDB, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "course_code", "course_name"}).
		AddRow(uuid.New().String(), "uid-1", "CS101", "Intro").
		AddRow(uuid.New().String(), "uid-1", "MA201", "Algebra")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "courses" WHERE user_id = $1 ORDER BY course_code ASC`)).
		WithArgs("uid-1").
		WillReturnRows(rows)

	courses, err := ListCourses(gormDB, "uid-1")
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.Equal(t, "CS101", courses[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCourse(t *testing.T) {
	t.Run("should delete only rows owned by the caller", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "courses" WHERE id = $1 AND user_id = $2`)).
			WithArgs(id, "uid-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, DeleteCourse(gormDB, "uid-1", id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should answer not found when nothing matched", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "courses" WHERE id = $1 AND user_id = $2`)).
			WithArgs(id, "uid-2").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := DeleteCourse(gormDB, "uid-2", id)
		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListNotificationsIsCapped(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "notifications" WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`)).
		WithArgs("uid-1", notificationsLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title"}))

	notifications, err := ListNotifications(gormDB, "uid-1")
	require.NoError(t, err)
	assert.Empty(t, notifications)
	assert.NotNil(t, notifications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrorsAreReturned(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "stress_indicators"`)).
		WillReturnError(sql.ErrConnDone)

	_, err := ListStressIndicators(gormDB, "uid-1")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}


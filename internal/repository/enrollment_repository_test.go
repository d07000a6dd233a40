package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/microcourses/lms-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindByUserAndCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "progress", "completed", "enrolled_at", "updated_at"}).
		AddRow("e1", "u1", "c1", 50, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, course_id, progress, completed, enrolled_at, updated_at")).
		WithArgs("u1", "c1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT lesson_id FROM lesson_completions WHERE enrollment_id = $1")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"lesson_id"}).AddRow("l1"))

	enrollment, err := repo.FindByUserAndCourse(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.Equal(t, 50, enrollment.Progress)
	require.Equal(t, []string{"l1"}, enrollment.CompletedLessons)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByUserAndCourseMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, course_id, progress, completed, enrolled_at, updated_at")).
		WithArgs("u1", "c1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserAndCourse(context.Background(), "u1", "c1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{UserID: "u1", CourseID: "c1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkLessonComplete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lesson_completions (enrollment_id, lesson_id, completed_at)")).
		WithArgs("e1", "l1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkLessonComplete(context.Background(), "e1", "l1"))

	// the conflict path reports success with zero rows affected
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lesson_completions (enrollment_id, lesson_id, completed_at)")).
		WithArgs("e1", "l1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkLessonComplete(context.Background(), "e1", "l1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateProgress(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET progress = $2, completed = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("e1", 100, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateProgress(context.Background(), "e1", 100, true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountCompletedLessons(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lesson_completions WHERE enrollment_id = $1")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.CountCompletedLessons(context.Background(), "e1")
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/microcourses/lms-api/internal/models"
)

func TestCourseRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	courseRows := sqlmock.NewRows([]string{"id", "title", "description", "creator_id", "status", "lesson_seq", "created_at", "updated_at"}).
		AddRow("c1", "Go", "Basics", "u1", models.CourseStatusPublished, 2, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, creator_id, status, lesson_seq, created_at, updated_at FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnRows(courseRows)

	lessonRows := sqlmock.NewRows([]string{"id", "course_id", "title", "content", "video_url", "order_index", "duration", "transcript", "created_at"}).
		AddRow("l1", "c1", "Intro", "Welcome", "", 0, 5, "", now).
		AddRow("l2", "c1", "Next", "More", "", 1, 7, "", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons WHERE course_id = $1 ORDER BY order_index ASC")).
		WithArgs("c1").
		WillReturnRows(lessonRows)

	course, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, course.Lessons, 2)
	require.Equal(t, 0, course.Lessons[0].OrderIndex)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryAddLesson(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET lesson_seq = lesson_seq + 1, updated_at = $2 WHERE id = $1 RETURNING lesson_seq")).
		WithArgs("c1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"lesson_seq"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lessons")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	lesson := &models.Lesson{Title: "Intro", Content: "Welcome"}
	require.NoError(t, repo.AddLesson(context.Background(), "c1", lesson))
	require.Equal(t, 2, lesson.OrderIndex)
	require.Equal(t, "c1", lesson.CourseID)
	require.NotEmpty(t, lesson.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryAddLessonMissingCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE courses SET lesson_seq = lesson_seq + 1, updated_at = $2 WHERE id = $1 RETURNING lesson_seq")).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.AddLesson(context.Background(), "missing", &models.Lesson{Title: "Intro", Content: "Welcome"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryLessonExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM lessons WHERE id = $1 AND course_id = $2")).
		WithArgs("l1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.LessonExists(context.Background(), "c1", "l1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM lessons WHERE id = $1 AND course_id = $2")).
		WithArgs("other", "c1").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.LessonExists(context.Background(), "c1", "other")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("c1", models.CourseStatusPublished, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "c1", models.CourseStatusPublished))
	require.NoError(t, mock.ExpectationsWereMet())
}

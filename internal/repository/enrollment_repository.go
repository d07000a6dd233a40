package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/microcourses/lms-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments and their
// completed-lesson sets.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByUserAndCourse returns the enrollment for a (user, course) pair.
func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, course_id, progress, completed, enrolled_at, updated_at
        FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}

	completed, err := r.CompletedLessons(ctx, enrollment.ID)
	if err != nil {
		return nil, err
	}
	enrollment.CompletedLessons = completed
	return &enrollment, nil
}

// ListByUser returns a learner's enrollments with course info.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.EnrollmentDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.course_id, e.progress, e.completed, e.enrolled_at, e.updated_at,
        COALESCE(c.title, '') AS course_title, COALESCE(c.description, '') AS course_description
        FROM enrollments e
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.user_id = $1
        ORDER BY e.enrolled_at DESC LIMIT %d OFFSET %d`, limit, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	const countQuery = `SELECT COUNT(*) FROM enrollments WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// Create persists a new enrollment record. The unique index on
// (user_id, course_id) rejects racing duplicates at write time.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, user_id, course_id, progress, completed, enrolled_at, updated_at)
        VALUES (:id, :user_id, :course_id, :progress, :completed, :enrolled_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// MarkLessonComplete records a lesson in the completion set. Repeated
// completion of the same lesson is a no-op.
func (r *EnrollmentRepository) MarkLessonComplete(ctx context.Context, enrollmentID, lessonID string) error {
	const query = `INSERT INTO lesson_completions (enrollment_id, lesson_id, completed_at)
        VALUES ($1, $2, $3) ON CONFLICT (enrollment_id, lesson_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, lessonID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark lesson complete: %w", err)
	}
	return nil
}

// CompletedLessons returns the lesson ids completed for an enrollment.
func (r *EnrollmentRepository) CompletedLessons(ctx context.Context, enrollmentID string) ([]string, error) {
	const query = `SELECT lesson_id FROM lesson_completions WHERE enrollment_id = $1 ORDER BY completed_at ASC`
	lessons := []string{}
	if err := r.db.SelectContext(ctx, &lessons, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list completed lessons: %w", err)
	}
	return lessons, nil
}

// CountCompletedLessons returns the size of the completion set.
func (r *EnrollmentRepository) CountCompletedLessons(ctx context.Context, enrollmentID string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM lesson_completions WHERE enrollment_id = $1`
	if err := r.db.GetContext(ctx, &total, query, enrollmentID); err != nil {
		return 0, fmt.Errorf("count completed lessons: %w", err)
	}
	return total, nil
}

// UpdateProgress saves the derived progress. Completed only ever moves
// from false to true here; callers never pass a reverted value.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id string, progress int, completed bool) error {
	const query = `UPDATE enrollments SET progress = $2, completed = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, progress, completed, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return nil
}

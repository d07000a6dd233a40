package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/microcourses/lms-api/internal/models"
)

// CourseRepository handles persistence of the course/lesson aggregate.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, title, description, creator_id, status, lesson_seq, created_at, updated_at`

// FindByID returns a course with its lessons ordered by order_index.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}

	lessons, err := r.lessonsByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Lessons = lessons
	return &course, nil
}

// FindDetailByID returns a course with creator info and lessons.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	const query = `SELECT c.id, c.title, c.description, c.creator_id, c.status, c.lesson_seq, c.created_at, c.updated_at,
        u.email AS creator_email
        FROM courses c
        LEFT JOIN users u ON u.id = c.creator_id
        WHERE c.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course detail: %w", err)
	}

	lessons, err := r.lessonsByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Lessons = lessons
	return &detail, nil
}

// List returns courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM courses c LEFT JOIN users u ON u.id = c.creator_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CreatorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.creator_id = $%d", len(args)+1))
		args = append(args, filter.CreatorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.title ILIKE $%d OR c.description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.title, c.description, c.creator_id, c.status, c.lesson_seq, c.created_at, c.updated_at,
        COALESCE(u.email, '') AS creator_email
        %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}
	const query = `INSERT INTO courses (id, title, description, creator_id, status, lesson_seq, created_at, updated_at)
        VALUES (:id, :title, :description, :creator_id, :status, :lesson_seq, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update saves title, description and status for a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET title = $2, description = $3, status = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, course.ID, course.Title, course.Description, course.Status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// UpdateStatus sets the publication status for a course.
func (r *CourseRepository) UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error {
	const query = `UPDATE courses SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update course status: %w", err)
	}
	return nil
}

// AddLesson appends a lesson to a course. The order index is reserved by
// atomically incrementing the course's lesson_seq counter inside the
// same transaction, so concurrent appends cannot observe the same index.
func (r *CourseRepository) AddLesson(ctx context.Context, courseID string, lesson *models.Lesson) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add lesson: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var seq int
	const reserve = `UPDATE courses SET lesson_seq = lesson_seq + 1, updated_at = $2 WHERE id = $1 RETURNING lesson_seq`
	if err := tx.GetContext(ctx, &seq, reserve, courseID, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("reserve lesson index: %w", err)
	}

	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	lesson.CourseID = courseID
	lesson.OrderIndex = seq - 1
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now().UTC()
	}

	const insert = `INSERT INTO lessons (id, course_id, title, content, video_url, order_index, duration, transcript, created_at)
        VALUES (:id, :course_id, :title, :content, :video_url, :order_index, :duration, :transcript, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, lesson); err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add lesson: %w", err)
	}
	return nil
}

// CountLessons returns the live lesson count for a course.
func (r *CourseRepository) CountLessons(ctx context.Context, courseID string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM lessons WHERE course_id = $1`
	if err := r.db.GetContext(ctx, &total, query, courseID); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return total, nil
}

// LessonExists reports whether a lesson belongs to the given course.
func (r *CourseRepository) LessonExists(ctx context.Context, courseID, lessonID string) (bool, error) {
	var exists int
	const query = `SELECT 1 FROM lessons WHERE id = $1 AND course_id = $2 LIMIT 1`
	if err := r.db.GetContext(ctx, &exists, query, lessonID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check lesson: %w", err)
	}
	return true, nil
}

func (r *CourseRepository) lessonsByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	const query = `SELECT id, course_id, title, content, video_url, order_index, duration, transcript, created_at
        FROM lessons WHERE course_id = $1 ORDER BY order_index ASC`
	lessons := []models.Lesson{}
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

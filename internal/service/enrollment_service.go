package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/microcourses/lms-api/internal/models"
	"github.com/microcourses/lms-api/internal/repository"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]models.EnrollmentDetail, int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	MarkLessonComplete(ctx context.Context, enrollmentID, lessonID string) error
	CompletedLessons(ctx context.Context, enrollmentID string) ([]string, error)
	CountCompletedLessons(ctx context.Context, enrollmentID string) (int, error)
	UpdateProgress(ctx context.Context, id string, progress int, completed bool) error
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	CountLessons(ctx context.Context, courseID string) (int, error)
	LessonExists(ctx context.Context, courseID, lessonID string) (bool, error)
}

// UpdateProgressRequest carries the course reference for a lesson
// completion.
type UpdateProgressRequest struct {
	CourseID string `json:"courseId"`
}

// EnrollmentService drives the enrollment state machine: enroll on a
// published course, accumulate an idempotent lesson completion set, and
// derive progress from the course's live lesson count.
type EnrollmentService struct {
	repo    enrollmentRepository
	courses enrollmentCourseReader
	logger  *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseReader, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, logger: logger}
}

// Enroll registers the learner on a published course. A second attempt
// for the same pair fails at the existence check, or at the unique index
// when two requests race past it.
func (s *EnrollmentService) Enroll(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if course.Status != models.CourseStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrCourseNotPublished, "")
	}

	if _, err := s.repo.FindByUserAndCourse(ctx, actor.UserID, courseID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	enrollment := &models.Enrollment{
		UserID:           actor.UserID,
		CourseID:         courseID,
		Progress:         0,
		Completed:        false,
		CompletedLessons: []string{},
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if _, ok := repository.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// UpdateProgress marks a lesson complete for the learner's enrollment.
// Completion is idempotent set insertion; progress is recomputed from
// the course's current lesson count on every call, and the completed
// flag latches true at 100 and never reverts.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor *models.JWTClaims, lessonID string, req UpdateProgressRequest) (*models.Enrollment, error) {
	if req.CourseID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingFields, "please provide courseId")
	}

	enrollment, err := s.repo.FindByUserAndCourse(ctx, actor.UserID, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	exists, err := s.courses.LessonExists(ctx, req.CourseID, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lesson")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}

	if err := s.repo.MarkLessonComplete(ctx, enrollment.ID, lessonID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record lesson completion")
	}

	completedCount, err := s.repo.CountCompletedLessons(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count completed lessons")
	}
	totalLessons, err := s.courses.CountLessons(ctx, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lessons")
	}

	enrollment.Progress = computeProgress(completedCount, totalLessons)
	if enrollment.Progress == 100 {
		enrollment.Completed = true
	}

	if err := s.repo.UpdateProgress(ctx, enrollment.ID, enrollment.Progress, enrollment.Completed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save progress")
	}

	completedLessons, err := s.repo.CompletedLessons(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed lessons")
	}
	enrollment.CompletedLessons = completedLessons
	return enrollment, nil
}

// ListProgress returns the learner's enrollments with pagination.
func (s *EnrollmentService) ListProgress(ctx context.Context, actor *models.JWTClaims, page, limit int) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.ListByUser(ctx, actor.UserID, page, limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, models.NewPagination(page, limit, total), nil
}

// computeProgress derives the percentage from the completion set size
// against the live lesson count. A course without lessons reads as 0.
func computeProgress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

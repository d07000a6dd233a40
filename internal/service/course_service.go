package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/microcourses/lms-api/internal/models"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

// transcriptLimit bounds the auto-derived transcript excerpt, counted
// in runes so truncation never splits a multibyte character.
const transcriptLimit = 800

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error
	AddLesson(ctx context.Context, courseID string, lesson *models.Lesson) error
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// UpdateCourseRequest describes the owner-facing course update payload.
// Status may only move between draft and pending here; publication is an
// admin transition.
type UpdateCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=draft pending"`
}

// AddLessonRequest describes the lesson append payload.
type AddLessonRequest struct {
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
	VideoURL   string `json:"video_url"`
	Duration   int    `json:"duration" validate:"omitempty,min=0"`
	Transcript string `json:"transcript"`
}

// CourseService orchestrates the course/lesson aggregate and its
// publication workflow.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// ListPublished returns the public catalog with pagination metadata.
func (s *CourseService) ListPublished(ctx context.Context, search string, page, limit int) ([]models.CourseDetail, *models.Pagination, error) {
	filter := models.CourseFilter{Status: models.CourseStatusPublished, Search: search, Page: page, PageSize: limit}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, models.NewPagination(page, limit, total), nil
}

// ListByCreator returns the creator's own courses.
func (s *CourseService) ListByCreator(ctx context.Context, creatorID string, page, limit int) ([]models.CourseDetail, *models.Pagination, error) {
	filter := models.CourseFilter{CreatorID: creatorID, Page: page, PageSize: limit}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list creator courses")
	}
	return courses, models.NewPagination(page, limit, total), nil
}

// ListForReview returns courses by status for the admin review queue.
// An empty status lists everything.
func (s *CourseService) ListForReview(ctx context.Context, status models.CourseStatus, page, limit int) ([]models.CourseDetail, *models.Pagination, error) {
	if status != "" && !status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown course status")
	}
	filter := models.CourseFilter{Status: status, Page: page, PageSize: limit}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses for review")
	}
	return courses, models.NewPagination(page, limit, total), nil
}

// Get returns a course with its lessons and creator info.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a draft course owned by the acting creator. Role and
// creator-approval gating happens before this is reached.
func (s *CourseService) Create(ctx context.Context, actor *models.JWTClaims, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingFields.Code, appErrors.ErrMissingFields.Status, "please provide title and description")
	}

	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   actor.UserID,
		Status:      models.CourseStatusDraft,
		Lessons:     []models.Lesson{},
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update edits a course the actor owns (admins may edit any). Status is
// limited to the draft/pending half of the workflow.
func (s *CourseService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.ownedCourse(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		course.Title = req.Title
	}
	if req.Description != "" {
		course.Description = req.Description
	}
	if req.Status != "" {
		course.Status = models.CourseStatus(req.Status)
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// AddLesson appends a lesson to a course the actor owns. When no
// transcript is supplied one is derived from the content's leading
// excerpt and marked as auto-generated.
func (s *CourseService) AddLesson(ctx context.Context, actor *models.JWTClaims, courseID string, req AddLessonRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingFields.Code, appErrors.ErrMissingFields.Status, "please provide title and content")
	}

	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		Title:      req.Title,
		Content:    req.Content,
		VideoURL:   req.VideoURL,
		Duration:   req.Duration,
		Transcript: req.Transcript,
	}
	if lesson.Transcript == "" {
		lesson.Transcript = autoTranscript(req.Content)
	}

	if err := s.repo.AddLesson(ctx, courseID, lesson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add lesson")
	}

	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload course")
	}
	return course, nil
}

// SetStatus is the admin review transition: only published or rejected
// are accepted, so a course can never jump from draft to published
// without passing through the review queue.
func (s *CourseService) SetStatus(ctx context.Context, id string, status models.CourseStatus) (*models.Course, error) {
	if status != models.CourseStatusPublished && status != models.CourseStatusRejected {
		return nil, appErrors.WithField(appErrors.Clone(appErrors.ErrInvalidStatus, ""), "status")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	course.Status = status
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course status")
	}
	return course, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, actor *models.JWTClaims, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.CreatorID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to update this course")
	}
	return course, nil
}

func autoTranscript(content string) string {
	if content == "" {
		return ""
	}
	excerpt := content
	if runes := []rune(excerpt); len(runes) > transcriptLimit {
		excerpt = string(runes[:transcriptLimit]) + "..."
	}
	return excerpt + "\n\n[Auto-generated transcript]"
}

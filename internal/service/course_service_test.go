package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/microcourses/lms-api/internal/models"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

type mockCourseRepo struct {
	courses   map[string]models.Course
	lessons   map[string][]models.Lesson
	created   *models.Course
	statusSet map[string]models.CourseStatus
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		c.Lessons = m.lessons[id]
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if c, ok := m.courses[id]; ok {
		c.Lessons = m.lessons[id]
		return &models.CourseDetail{Course: c, CreatorEmail: "creator@mail.com"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var list []models.CourseDetail
	for _, c := range m.courses {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.CreatorID != "" && c.CreatorID != filter.CreatorID {
			continue
		}
		list = append(list, models.CourseDetail{Course: c})
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = *course
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error {
	c, ok := m.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Status = status
	m.courses[id] = c
	if m.statusSet == nil {
		m.statusSet = make(map[string]models.CourseStatus)
	}
	m.statusSet[id] = status
	return nil
}

func (m *mockCourseRepo) AddLesson(ctx context.Context, courseID string, lesson *models.Lesson) error {
	if _, ok := m.courses[courseID]; !ok {
		return sql.ErrNoRows
	}
	if m.lessons == nil {
		m.lessons = make(map[string][]models.Lesson)
	}
	lesson.ID = "new-lesson"
	lesson.CourseID = courseID
	lesson.OrderIndex = len(m.lessons[courseID])
	m.lessons[courseID] = append(m.lessons[courseID], *lesson)
	return nil
}

func creatorClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleCreator, ApprovedCreator: true}
}

func TestCourseServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	course, err := svc.Create(context.Background(), creatorClaims("u1"), CreateCourseRequest{Title: "Go", Description: "Basics"})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusDraft, course.Status)
	assert.Equal(t, "u1", course.CreatorID)
}

func TestCourseServiceCreateMissingFields(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), creatorClaims("u1"), CreateCourseRequest{Title: "Go"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingFields.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceUpdateOwnership(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {ID: "c1", Title: "Go", CreatorID: "u1", Status: models.CourseStatusDraft},
	}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), creatorClaims("u2"), "c1", UpdateCourseRequest{Title: "Stolen"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	course, err := svc.Update(context.Background(), creatorClaims("u1"), "c1", UpdateCourseRequest{Title: "Go 2", Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, "Go 2", course.Title)
	assert.Equal(t, models.CourseStatusPending, course.Status)
}

func TestCourseServiceUpdateRejectsPublishedStatus(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {ID: "c1", CreatorID: "u1", Status: models.CourseStatusDraft},
	}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), creatorClaims("u1"), "c1", UpdateCourseRequest{Status: "published"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceAddLesson(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {ID: "c1", CreatorID: "u1", Status: models.CourseStatusDraft},
	}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	course, err := svc.AddLesson(context.Background(), creatorClaims("u1"), "c1", AddLessonRequest{Title: "Intro", Content: "Welcome"})
	require.NoError(t, err)
	require.Len(t, course.Lessons, 1)
	assert.Equal(t, 0, course.Lessons[0].OrderIndex)

	course, err = svc.AddLesson(context.Background(), creatorClaims("u1"), "c1", AddLessonRequest{Title: "Next", Content: "More"})
	require.NoError(t, err)
	require.Len(t, course.Lessons, 2)
	assert.Equal(t, 1, course.Lessons[1].OrderIndex)
}

func TestCourseServiceAddLessonAutoTranscript(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {ID: "c1", CreatorID: "u1", Status: models.CourseStatusDraft},
	}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	course, err := svc.AddLesson(context.Background(), creatorClaims("u1"), "c1", AddLessonRequest{Title: "Intro", Content: "Welcome"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome\n\n[Auto-generated transcript]", course.Lessons[0].Transcript)

	// supplied transcripts pass through untouched
	course, err = svc.AddLesson(context.Background(), creatorClaims("u1"), "c1", AddLessonRequest{Title: "Next", Content: "More", Transcript: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", course.Lessons[1].Transcript)
}

func TestAutoTranscriptTruncation(t *testing.T) {
	long := strings.Repeat("a", transcriptLimit+100)
	got := autoTranscript(long)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", transcriptLimit)+"..."))
	assert.True(t, strings.HasSuffix(got, "\n\n[Auto-generated transcript]"))

	assert.Equal(t, "", autoTranscript(""))
}

func TestAutoTranscriptTruncationMultibyte(t *testing.T) {
	long := strings.Repeat("é", transcriptLimit+100)
	got := autoTranscript(long)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasPrefix(got, strings.Repeat("é", transcriptLimit)+"..."))
	assert.Equal(t, transcriptLimit, utf8.RuneCountInString(strings.TrimSuffix(strings.TrimSuffix(got, "\n\n[Auto-generated transcript]"), "...")))
}

func TestCourseServiceSetStatus(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {ID: "c1", CreatorID: "u1", Status: models.CourseStatusPending},
	}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	course, err := svc.SetStatus(context.Background(), "c1", models.CourseStatusPublished)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPublished, course.Status)
	assert.Equal(t, models.CourseStatusPublished, repo.statusSet["c1"])
}

func TestCourseServiceSetStatusInvalid(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {ID: "c1", Status: models.CourseStatusPending},
	}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	for _, status := range []models.CourseStatus{models.CourseStatusDraft, models.CourseStatusPending, "archived"} {
		_, err := svc.SetStatus(context.Background(), "c1", status)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErr.Code)
		assert.Equal(t, "status", appErr.Field)
	}
}

func TestCourseServiceSetStatusMissingCourse(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, validator.New(), zap.NewNop())

	_, err := svc.SetStatus(context.Background(), "missing", models.CourseStatusPublished)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

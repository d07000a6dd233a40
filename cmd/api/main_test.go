package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microcourses/lms-api/internal/handler"
	"github.com/microcourses/lms-api/internal/middleware"
	"github.com/microcourses/lms-api/internal/models"
	"github.com/microcourses/lms-api/internal/repository"
	"github.com/microcourses/lms-api/internal/service"
	"github.com/microcourses/lms-api/pkg/config"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

type routerUserRepo struct {
	users map[string]*models.User
}

func (r *routerUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *routerUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *routerUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = fmt.Sprintf("u%d", len(r.users)+1)
	r.users[user.Email] = user
	return nil
}

type routerEnrollmentRepo struct {
	created int
}

func (r *routerEnrollmentRepo) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (r *routerEnrollmentRepo) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (r *routerEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	r.created++
	enrollment.ID = fmt.Sprintf("e%d", r.created)
	enrollment.EnrolledAt = time.Now().UTC()
	return nil
}

func (r *routerEnrollmentRepo) MarkLessonComplete(ctx context.Context, enrollmentID, lessonID string) error {
	return nil
}

func (r *routerEnrollmentRepo) CompletedLessons(ctx context.Context, enrollmentID string) ([]string, error) {
	return nil, nil
}

func (r *routerEnrollmentRepo) CountCompletedLessons(ctx context.Context, enrollmentID string) (int, error) {
	return 0, nil
}

func (r *routerEnrollmentRepo) UpdateProgress(ctx context.Context, id string, progress int, completed bool) error {
	return nil
}

type routerCourseReader struct{}

func (routerCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return &models.Course{ID: id, Status: models.CourseStatusPublished}, nil
}

func (routerCourseReader) CountLessons(ctx context.Context, courseID string) (int, error) {
	return 0, nil
}

func (routerCourseReader) LessonExists(ctx context.Context, courseID, lessonID string) (bool, error) {
	return false, nil
}

type routerEnv struct {
	router      *gin.Engine
	enrollments *routerEnrollmentRepo
	users       *routerUserRepo
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &routerUserRepo{users: map[string]*models.User{}}
	enrollments := &routerEnrollmentRepo{}

	authSvc := service.NewAuthService(users, nil, nil, service.AuthConfig{
		TokenSecret: "router-test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "microcourses-test",
	})
	enrollmentSvc := service.NewEnrollmentService(enrollments, routerCourseReader{}, nil)

	store := repository.NewMemoryIdempotencyRepository(time.Minute)
	t.Cleanup(func() { store.Close() })
	idempotencySvc := service.NewIdempotencyService(store, time.Hour, service.NewMetricsService(), nil)

	r := gin.New()
	registerRoutes(r, &config.Config{APIPrefix: "/api"}, authSvc, idempotencySvc,
		handler.NewAuthHandler(authSvc),
		handler.NewCourseHandler(nil),
		handler.NewEnrollmentHandler(enrollmentSvc),
		handler.NewCertificateHandler(nil),
		handler.NewAdminHandler(nil, nil),
	)

	return &routerEnv{router: r, enrollments: enrollments, users: users}
}

func (e *routerEnv) do(t *testing.T, method, path, token, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if key != "" {
		req.Header.Set(middleware.IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *routerEnv) register(t *testing.T, email, role, key string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"secret1","role":%q}`, email, role)
	w := e.do(t, http.MethodPost, "/api/auth/register", "", key, body)
	require.Equal(t, http.StatusCreated, w.Code)
	var env struct {
		Data models.AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Token)
	return env.Data.Token
}

func TestRouterEnrollRequiresLearnerRole(t *testing.T) {
	env := newRouterEnv(t)
	creatorToken := env.register(t, "creator@example.com", "creator", "reg-creator")
	learnerToken := env.register(t, "learner@example.com", "learner", "reg-learner")

	w := env.do(t, http.MethodPost, "/api/enroll/c1", creatorToken, "enroll-creator", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, env.enrollments.created)

	w = env.do(t, http.MethodPost, "/api/enroll/c1", learnerToken, "enroll-learner", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, env.enrollments.created)
}

func TestRouterCertificateRequiresLearnerRole(t *testing.T) {
	env := newRouterEnv(t)
	creatorToken := env.register(t, "creator@example.com", "creator", "reg-creator")

	w := env.do(t, http.MethodPost, "/api/certificate/c1", creatorToken, "cert-creator", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/progress", creatorToken, "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouterMissingIdempotencyKeyOnAnyPost(t *testing.T) {
	env := newRouterEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", "", `{"email":"x@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var env1 struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env1))
	require.NotNil(t, env1.Error)
	assert.Equal(t, appErrors.ErrMissingIdempotencyKey.Code, env1.Error.Code)
	assert.Empty(t, env.users.users)

	// The key check runs ahead of auth, so a keyless unauthenticated
	// POST is a 400, not a 401.
	w = env.do(t, http.MethodPost, "/api/enroll/c1", "", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterReplaysRecordedResponse(t *testing.T) {
	env := newRouterEnv(t)
	learnerToken := env.register(t, "learner@example.com", "learner", "reg-learner")

	first := env.do(t, http.MethodPost, "/api/enroll/c1", learnerToken, "enroll-once", "")
	require.Equal(t, http.StatusCreated, first.Code)

	second := env.do(t, http.MethodPost, "/api/enroll/c1", learnerToken, "enroll-once", "")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, env.enrollments.created)
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/microcourses/lms-api/internal/models"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

type mockAdminUserRepo struct {
	mockUserRepo
	applications []models.User
	approved     []string
}

func (m *mockAdminUserRepo) ListCreatorApplications(ctx context.Context, page, limit int) ([]models.User, int, error) {
	return m.applications, len(m.applications), nil
}

func (m *mockAdminUserRepo) ApproveCreator(ctx context.Context, id string, approvedAt time.Time) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	m.approved = append(m.approved, id)
	return nil
}

func TestUserServiceApproveCreator(t *testing.T) {
	repo := &mockAdminUserRepo{mockUserRepo: mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "c@mail.com", Role: models.RoleCreator},
	}}}
	svc := NewUserService(repo, &mockCourseRepo{}, zap.NewNop())

	info, err := svc.ApproveCreator(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, info.ApprovedCreator)
	assert.Contains(t, repo.approved, "u1")
}

func TestUserServiceApproveCreatorMissing(t *testing.T) {
	svc := NewUserService(&mockAdminUserRepo{}, &mockCourseRepo{}, zap.NewNop())

	_, err := svc.ApproveCreator(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceApproveCreatorWrongRole(t *testing.T) {
	repo := &mockAdminUserRepo{mockUserRepo: mockUserRepo{users: map[string]models.User{
		"u1": {ID: "u1", Email: "l@mail.com", Role: models.RoleLearner},
	}}}
	svc := NewUserService(repo, &mockCourseRepo{}, zap.NewNop())

	_, err := svc.ApproveCreator(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRole.Code, appErrors.FromError(err).Code)
}

func TestUserServiceEnsureAdmin(t *testing.T) {
	repo := &mockAdminUserRepo{}
	svc := NewUserService(repo, &mockCourseRepo{}, zap.NewNop())

	svc.EnsureAdmin(context.Background(), "admin@mail.com", "admin123")
	require.NotNil(t, repo.created)
	assert.Equal(t, models.RoleAdmin, repo.created.Role)

	// a second call is a no-op
	created := repo.created
	svc.EnsureAdmin(context.Background(), "admin@mail.com", "admin123")
	assert.Equal(t, created, repo.created)
}

func TestUserServiceSeedDemo(t *testing.T) {
	repo := &mockAdminUserRepo{mockUserRepo: mockUserRepo{users: map[string]models.User{
		"admin": {ID: "admin", Email: "admin@mail.com", Role: models.RoleAdmin},
	}}}
	courses := &mockCourseRepo{}
	svc := NewUserService(repo, courses, zap.NewNop())

	svc.SeedDemo(context.Background(), "admin@mail.com")
	require.NotNil(t, courses.created)
	assert.Equal(t, models.CourseStatusPublished, courses.created.Status)
	assert.Len(t, courses.lessons[courses.created.ID], 2)

	// seeding is skipped once the catalog has courses
	created := courses.created
	svc.SeedDemo(context.Background(), "admin@mail.com")
	assert.Equal(t, created, courses.created)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/microcourses/lms-api/internal/models"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

type adminUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	ListCreatorApplications(ctx context.Context, page, limit int) ([]models.User, int, error)
	ApproveCreator(ctx context.Context, id string, approvedAt time.Time) error
}

type seedCourseWriter interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	Create(ctx context.Context, course *models.Course) error
	AddLesson(ctx context.Context, courseID string, lesson *models.Lesson) error
}

// UserService covers the admin-facing user workflows: reviewing and
// approving creator applications, plus startup bootstrap.
type UserService struct {
	repo    adminUserRepository
	courses seedCourseWriter
	logger  *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo adminUserRepository, courses seedCourseWriter, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, courses: courses, logger: logger}
}

// ListCreatorApplications returns unapproved creators for admin review.
func (s *UserService) ListCreatorApplications(ctx context.Context, page, limit int) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.ListCreatorApplications(ctx, page, limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list creator applications")
	}
	return users, models.NewPagination(page, limit, total), nil
}

// ApproveCreator grants authoring access to a creator account.
func (s *UserService) ApproveCreator(ctx context.Context, id string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.Role != models.RoleCreator {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "")
	}

	if err := s.repo.ApproveCreator(ctx, id, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve creator")
	}

	return &models.UserInfo{
		ID:              user.ID,
		Email:           user.Email,
		Role:            user.Role,
		ApprovedCreator: true,
	}, nil
}

// EnsureAdmin creates the bootstrap admin account when absent. Failures
// are logged, not fatal; the service still starts.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		s.logger.Info("admin user already exists", zap.String("email", email))
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("failed to check admin user", zap.Error(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash admin password", zap.Error(err))
		return
	}

	admin := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		s.logger.Error("failed to create admin user", zap.Error(err))
		return
	}
	s.logger.Info("admin user created", zap.String("email", email))
}

// SeedDemo creates a sample published course when the catalog is empty.
// Like EnsureAdmin, failures are logged and do not abort startup.
func (s *UserService) SeedDemo(ctx context.Context, adminEmail string) {
	_, total, err := s.courses.List(ctx, models.CourseFilter{Page: 1, PageSize: 1})
	if err != nil {
		s.logger.Error("demo seed: failed to count courses", zap.Error(err))
		return
	}
	if total > 0 {
		return
	}

	admin, err := s.repo.FindByEmail(ctx, adminEmail)
	if err != nil {
		s.logger.Error("demo seed: admin not found", zap.Error(err))
		return
	}

	course := &models.Course{
		Title:       "Intro to MicroCourses",
		Description: "A quick sample course to demonstrate the LMS workflow.",
		CreatorID:   admin.ID,
		Status:      models.CourseStatusPublished,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		s.logger.Error("demo seed: failed to create course", zap.Error(err))
		return
	}

	lessons := []models.Lesson{
		{
			Title:      "Welcome",
			Content:    "Welcome to the MicroCourses LMS demo! This lesson explains the basics.",
			Duration:   5,
			Transcript: "Auto-generated transcript: Welcome to the MicroCourses LMS demo!",
		},
		{
			Title:      "Your First Steps",
			Content:    "Enroll, complete lessons, and generate your certificate when done.",
			Duration:   7,
			Transcript: "Auto-generated transcript: Enroll, complete lessons, and generate your certificate.",
		},
	}
	for i := range lessons {
		if err := s.courses.AddLesson(ctx, course.ID, &lessons[i]); err != nil {
			s.logger.Error("demo seed: failed to add lesson", zap.Error(err))
			return
		}
	}
	s.logger.Info("seeded demo course", zap.String("course_id", course.ID))
}

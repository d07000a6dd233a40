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

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, role, approved_creator, active, created_at, updated_at`

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create persists a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, email, password_hash, role, approved_creator, active, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :role, :approved_creator, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ListCreatorApplications returns unapproved creators with a total count.
func (r *UserRepository) ListCreatorApplications(ctx context.Context, page, limit int) ([]models.User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1 AND approved_creator = FALSE
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, userColumns, limit, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.RoleCreator); err != nil {
		return nil, 0, fmt.Errorf("list creator applications: %w", err)
	}

	var total int
	const countQuery = `SELECT COUNT(*) FROM users WHERE role = $1 AND approved_creator = FALSE`
	if err := r.db.GetContext(ctx, &total, countQuery, models.RoleCreator); err != nil {
		return nil, 0, fmt.Errorf("count creator applications: %w", err)
	}
	return users, total, nil
}

// ApproveCreator flips the approved_creator flag for a user.
func (r *UserRepository) ApproveCreator(ctx context.Context, id string, approvedAt time.Time) error {
	const query = `UPDATE users SET approved_creator = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, approvedAt); err != nil {
		return fmt.Errorf("approve creator: %w", err)
	}
	return nil
}

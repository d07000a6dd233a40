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

// CertificateRepository handles persistence of certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// FindByUserAndCourse returns the certificate for a (user, course) pair.
func (r *CertificateRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
	const query = `SELECT id, user_id, course_id, certificate_hash, issued_at
        FROM certificates WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &cert, nil
}

// FindDetailByID returns a certificate with user and course info.
func (r *CertificateRepository) FindDetailByID(ctx context.Context, id string) (*models.CertificateDetail, error) {
	const query = `SELECT ce.id, ce.user_id, ce.course_id, ce.certificate_hash, ce.issued_at,
        COALESCE(u.email, '') AS user_email,
        COALESCE(co.title, '') AS course_title, COALESCE(co.description, '') AS course_description
        FROM certificates ce
        LEFT JOIN users u ON u.id = ce.user_id
        LEFT JOIN courses co ON co.id = ce.course_id
        WHERE ce.id = $1`
	var detail models.CertificateDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate detail: %w", err)
	}
	return &detail, nil
}

// ListByUser returns a learner's certificates with course info.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.CertificateDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT ce.id, ce.user_id, ce.course_id, ce.certificate_hash, ce.issued_at,
        COALESCE(u.email, '') AS user_email,
        COALESCE(co.title, '') AS course_title, COALESCE(co.description, '') AS course_description
        FROM certificates ce
        LEFT JOIN users u ON u.id = ce.user_id
        LEFT JOIN courses co ON co.id = ce.course_id
        WHERE ce.user_id = $1
        ORDER BY ce.issued_at DESC LIMIT %d OFFSET %d`, limit, offset)

	var certificates []models.CertificateDetail
	if err := r.db.SelectContext(ctx, &certificates, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}

	var total int
	const countQuery = `SELECT COUNT(*) FROM certificates WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}
	return certificates, total, nil
}

// Create persists a new certificate. The unique indexes on
// (user_id, course_id) and certificate_hash reject duplicates raced past
// the existence check; callers translate those into conflicts.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates (id, user_id, course_id, certificate_hash, issued_at)
        VALUES (:id, :user_id, :course_id, :certificate_hash, :issued_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/microcourses/lms-api/internal/models"
	"github.com/microcourses/lms-api/internal/repository"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

type certificateRepository interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error)
	FindDetailByID(ctx context.Context, id string) (*models.CertificateDetail, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]models.CertificateDetail, int, error)
	Create(ctx context.Context, cert *models.Certificate) error
}

type certificateEnrollmentReader interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
}

// CertificateService performs the one-shot conversion of a completed
// enrollment into an immutable certificate. Preconditions run in order:
// enrollment exists, enrollment completed, no prior certificate. The
// store's unique indexes catch requests that race past the last check.
type CertificateService struct {
	repo        certificateRepository
	enrollments certificateEnrollmentReader
	logger      *zap.Logger
	now         func() time.Time
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(repo certificateRepository, enrollments certificateEnrollmentReader, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{repo: repo, enrollments: enrollments, logger: logger, now: time.Now}
}

// Issue generates a certificate for the learner's completed enrollment.
func (s *CertificateService) Issue(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.CertificateDetail, error) {
	enrollment, err := s.enrollments.FindByUserAndCourse(ctx, actor.UserID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if !enrollment.Completed || enrollment.Progress < 100 {
		return nil, appErrors.Clone(appErrors.ErrIncompleteCourse, "")
	}

	if _, err := s.repo.FindByUserAndCourse(ctx, actor.UserID, courseID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrCertificateExists, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check certificate")
	}

	cert := &models.Certificate{
		UserID:          actor.UserID,
		CourseID:        courseID,
		CertificateHash: certificateHash(actor.UserID, courseID, s.now()),
	}
	if err := s.repo.Create(ctx, cert); err != nil {
		if field, ok := repository.UniqueViolation(err); ok {
			return nil, appErrors.WithField(appErrors.Clone(appErrors.ErrCertificateExists, ""), field)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create certificate")
	}

	detail, err := s.repo.FindDetailByID(ctx, cert.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate detail")
	}
	return detail, nil
}

// List returns the learner's certificates with pagination.
func (s *CertificateService) List(ctx context.Context, actor *models.JWTClaims, page, limit int) ([]models.CertificateDetail, *models.Pagination, error) {
	certificates, total, err := s.repo.ListByUser(ctx, actor.UserID, page, limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certificates, models.NewPagination(page, limit, total), nil
}

// RenderPDF produces a printable certificate document for a certificate
// owned by the actor.
func (s *CertificateService) RenderPDF(ctx context.Context, actor *models.JWTClaims, id string) ([]byte, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	if detail.UserID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to download this certificate")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 30, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 20, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 10, "This certifies that", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, detail.UserEmail, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 10, "has completed the course", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, detail.CourseTitle, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, fmt.Sprintf("Issued %s", detail.IssuedAt.Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Verification: %s", detail.CertificateHash), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return buf.Bytes(), nil
}

// certificateHash derives the collision-resistant, non-reversible
// identifier from the pair and the issuance instant.
func certificateHash(userID, courseID string, issuedAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%d", userID, courseID, issuedAt.UnixMilli())))
	return hex.EncodeToString(sum[:])
}

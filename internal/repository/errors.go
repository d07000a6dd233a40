package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// UniqueViolation reports whether err is a unique constraint violation
// and, when it is, the field the constraint guards. Services translate
// these into conflict errors instead of letting them surface as 500s.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if string(pqErr.Code) != uniqueViolation {
		return "", false
	}
	return fieldFromConstraint(pqErr.Constraint), true
}

func fieldFromConstraint(constraint string) string {
	switch {
	case strings.Contains(constraint, "certificate_hash"):
		return "certificateHash"
	case strings.Contains(constraint, "certificates_user"):
		return "certificate"
	case strings.Contains(constraint, "enrollments_user"):
		return "enrollment"
	case strings.Contains(constraint, "email"):
		return "email"
	default:
		return constraint
	}
}

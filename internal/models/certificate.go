package models

import "time"

// Certificate is the immutable completion record for a (user, course)
// pair. Both the pair and the hash carry unique constraints; they are
// the final backstop against duplicate issuance under racing requests.
type Certificate struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	CourseID        string    `db:"course_id" json:"course_id"`
	CertificateHash string    `db:"certificate_hash" json:"certificate_hash"`
	IssuedAt        time.Time `db:"issued_at" json:"issued_at"`
}

// CertificateDetail enriches Certificate with user and course info.
type CertificateDetail struct {
	Certificate
	UserEmail         string `db:"user_email" json:"user_email"`
	CourseTitle       string `db:"course_title" json:"course_title"`
	CourseDescription string `db:"course_description" json:"course_description"`
}

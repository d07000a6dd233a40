package models

import "time"

// Enrollment is the per-learner-per-course progress record. The
// (user_id, course_id) pair is unique; Progress is derived from the
// completed lesson set against the course's live lesson count, and
// Completed latches true when progress reaches 100.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	Progress   int       `db:"progress" json:"progress"`
	Completed  bool      `db:"completed" json:"completed"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	CompletedLessons []string `db:"-" json:"completed_lessons"`
}

// EnrollmentDetail enriches Enrollment with course info for listings.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle       string `db:"course_title" json:"course_title"`
	CourseDescription string `db:"course_description" json:"course_description"`
}

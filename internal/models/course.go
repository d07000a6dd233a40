package models

import "time"

// CourseStatus is the publication state of a course.
type CourseStatus string

// Publication workflow states. Only an admin moves a course to published
// or rejected; creators move their own courses between draft and pending.
const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPending   CourseStatus = "pending"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusRejected  CourseStatus = "rejected"
)

// Valid reports whether s is a known course status.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusDraft, CourseStatusPending, CourseStatusPublished, CourseStatusRejected:
		return true
	}
	return false
}

// Course is the aggregate owning an ordered sequence of lessons.
// LessonSeq is a monotonic counter used to reserve order indices at
// append time; it never decreases, even if the count-based length would.
type Course struct {
	ID          string       `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	CreatorID   string       `db:"creator_id" json:"creator_id"`
	Status      CourseStatus `db:"status" json:"status"`
	LessonSeq   int          `db:"lesson_seq" json:"-"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`

	Lessons []Lesson `db:"-" json:"lessons"`
}

// Lesson is owned by its course and addressed through it. OrderIndex is
// assigned once at append time and never reassigned.
type Lesson struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"-"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	VideoURL   string    `db:"video_url" json:"video_url"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	Duration   int       `db:"duration" json:"duration"`
	Transcript string    `db:"transcript" json:"transcript"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CourseDetail enriches Course with the creator's email for catalog views.
type CourseDetail struct {
	Course
	CreatorEmail string `db:"creator_email" json:"creator_email"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Status    CourseStatus
	CreatorID string
	Search    string
	Page      int
	PageSize  int
}

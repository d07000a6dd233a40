package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleLearner UserRole = "learner"
	RoleCreator UserRole = "creator"
	RoleAdmin   UserRole = "admin"
)

// User represents an application user stored in the users table.
type User struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	Role            UserRole  `db:"role" json:"role"`
	ApprovedCreator bool      `db:"approved_creator" json:"approved_creator"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, limit, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

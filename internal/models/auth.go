package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest holds the registration payload. Role may only select
// learner or creator; admins are bootstrapped, never registered.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=learner creator"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse returns the issued token and user info.
type AuthResponse struct {
	Token    string    `json:"token"`
	User     UserInfo  `json:"user"`
	IssuedAt time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	Role            UserRole `json:"role"`
	ApprovedCreator bool     `json:"approved_creator"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID          string   `json:"user_id"`
	Role            UserRole `json:"role"`
	ApprovedCreator bool     `json:"approved_creator"`
	jwt.RegisteredClaims
}

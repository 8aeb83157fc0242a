package models

import (
	"time"
)

// Roles
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleTeknisi   = "teknisi"
	RoleFrontdesk = "frontdesk"
)

// ValidRoles defines the available roles in the system
var ValidRoles = []string{RoleAdmin, RoleManager, RoleTeknisi, RoleFrontdesk}

// User represents a user in the system
type User struct {
	ID           int64      `json:"user_id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateUserRequest represents the request body for creating a new user
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Role     string `json:"role" validate:"required,oneof=admin manager teknisi frontdesk"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// UpdateUserRequest names the fields an admin may change on another user.
type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=100"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin manager teknisi frontdesk"`
	IsActive *bool   `json:"is_active,omitempty"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// ChangePasswordRequest represents the request body for changing password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// UpdateProfileRequest represents the request body for updating user profile
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=100"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	for _, validRole := range ValidRoles {
		if role == validRole {
			return true
		}
	}
	return false
}

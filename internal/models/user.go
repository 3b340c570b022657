// Package models - User accounts and role-based permissions.
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role determines which operations a user may perform.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Permission represents a single operation class on catalog data.
type Permission string

const (
	PermissionCreate Permission = "create"
	PermissionRead   Permission = "read"
	PermissionUpdate Permission = "update"
	PermissionDelete Permission = "delete"
)

// User represents an account. The raw password is never persisted; only
// its bcrypt hash is stored.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates an active user with a fresh UUID and timestamps.
func NewUser(username, email, passwordHash string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// HasPermission reports whether an active user of this role may perform
// the given operation. Admins can do everything, managers everything but
// delete, and plain users are read-only.
func (u *User) HasPermission(p Permission) bool {
	if u == nil || !u.Active {
		return false
	}

	switch u.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return p != PermissionDelete
	case RoleUser:
		return p == PermissionRead
	}
	return false
}

// Validate checks user invariants before persistence.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user ID is required")
	}

	username := strings.TrimSpace(u.Username)
	if len(username) < 3 || len(username) > 100 {
		return errors.New("username must be between 3 and 100 characters")
	}

	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email format")
	}

	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}

	if !ValidRole(u.Role) {
		return errors.New("invalid role")
	}

	return nil
}

// NewUserID generates a new UUID v4 for use as a User ID.
func NewUserID() string {
	return uuid.New().String()
}

// Package models - API response types and error handling.
// This file defines all outgoing API response structures with consistent formatting.
//
// Response Design Principles:
// - Consistent JSON structure across all endpoints
// - Optional fields use omitempty to reduce response size
// - Rich error information with codes and details for debugging
// - Standardized pagination with metadata
// - RFC3339 timestamps for international compatibility
package models

import (
	"time"
)

// ProductResponse is the wire representation of a catalog entry.
type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Quantity    int       `json:"quantity"`
	InStock     bool      `json:"in_stock"`
	Category    string    `json:"category,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromProduct populates the response from a stored product.
func (pr *ProductResponse) FromProduct(p *Product) {
	pr.ID = p.ID
	pr.Name = p.Name
	pr.Description = p.Description
	pr.PriceCents = p.PriceCents
	pr.Quantity = p.Quantity
	pr.InStock = p.InStock()
	pr.Category = p.Category
	pr.CreatedBy = p.CreatedBy
	pr.CreatedAt = p.CreatedAt
	pr.UpdatedAt = p.UpdatedAt
}

type ListProductsResponse struct {
	Products   []ProductResponse `json:"products"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	HasMore    bool              `json:"has_more"`
}

// UserResponse is the public view of an account. The password hash never
// leaves the server.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// FromUser populates the response from a stored user.
func (ur *UserResponse) FromUser(u *User) {
	ur.ID = u.ID
	ur.Username = u.Username
	ur.Email = u.Email
	ur.Role = u.Role
	ur.Active = u.Active
	ur.CreatedAt = u.CreatedAt
}

// AuthResponse is returned by login and registration. The token is shown
// once in full; only its hash is persisted.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"` // Always "Bearer"
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	User      UserResponse `json:"user"`
}

// ErrorResponse provides structured error information with debugging context.
//
// Error Handling Design:
// - Consistent error structure across all endpoints
// - Machine-readable error codes for programmatic handling
// - Human-readable messages for user interfaces
// - Details map for field-specific validation errors
// - Timestamps for debugging and audit trails
type ErrorResponse struct {
	Error     string            `json:"error"`             // Error type (always "error")
	Message   string            `json:"message"`           // Human-readable error description
	Code      string            `json:"code,omitempty"`    // Machine-readable error code
	Details   map[string]string `json:"details,omitempty"` // Field-specific error details
	Timestamp time.Time         `json:"timestamp"`         // Error occurrence time
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors"`
}

// Health Status Constants
const (
	StatusHealthy   = "healthy"   // All systems operational
	StatusUnhealthy = "unhealthy" // Major system issues
	StatusDegraded  = "degraded"  // Partial functionality
)

// Standard HTTP Error Codes
//
// Error Code Strategy:
// - Upper-case with underscores for consistency
// - Maps to standard HTTP status codes
// - Machine-readable for client error handling
const (
	ErrorCodeNotFound       = "NOT_FOUND"           // 404: Resource doesn't exist
	ErrorCodeBadRequest     = "BAD_REQUEST"         // 400: Invalid request format
	ErrorCodeInvalidRequest = "INVALID_REQUEST"     // 400: Invalid request data
	ErrorCodeValidation     = "VALIDATION_ERROR"    // 422: Input validation failed
	ErrorCodeInternalError  = "INTERNAL_ERROR"      // 500: Server-side error
	ErrorCodeUnauthorized   = "UNAUTHORIZED"        // 401: Authentication required
	ErrorCodeForbidden      = "FORBIDDEN"           // 403: Permission denied
	ErrorCodeConflict       = "CONFLICT"            // 409: Resource conflict
	ErrorCodeRateLimited    = "RATE_LIMITED"        // 429: Too many requests
	ErrorCodeUnavailable    = "SERVICE_UNAVAILABLE" // 503: Service temporarily down
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewValidationErrorResponse(errors map[string]string) *ValidationErrorResponse {
	return &ValidationErrorResponse{
		Error:  "validation_error",
		Errors: errors,
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

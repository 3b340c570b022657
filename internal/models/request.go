// Package models - Incoming API request types.
// Each request type carries its own Validate method so handlers can reject
// malformed input before it reaches the service layer, and a Normalize
// method where defaults or canonical forms apply.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// CreateProductRequest creates a new catalog entry.
type CreateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Quantity    int    `json:"quantity"`
	Category    string `json:"category,omitempty"`
}

// Validate checks the request for required fields and value ranges.
func (r *CreateProductRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 255 {
		return fmt.Errorf("name must be at most 255 characters, got %d", len(name))
	}
	if r.PriceCents < 0 {
		return errors.New("price cannot be negative")
	}
	if r.Quantity < 0 {
		return errors.New("quantity cannot be negative")
	}
	return nil
}

// Normalize trims whitespace from free-text fields.
func (r *CreateProductRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.TrimSpace(r.Category)
}

// UpdateProductRequest partially updates a catalog entry. Nil fields are
// left unchanged.
type UpdateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// Validate checks that any provided fields have acceptable values.
func (r *UpdateProductRequest) Validate() error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return errors.New("name cannot be empty")
		}
		if len(name) > 255 {
			return fmt.Errorf("name must be at most 255 characters, got %d", len(name))
		}
	}
	if r.PriceCents != nil && *r.PriceCents < 0 {
		return errors.New("price cannot be negative")
	}
	if r.Quantity != nil && *r.Quantity < 0 {
		return errors.New("quantity cannot be negative")
	}
	if r.Name == nil && r.Description == nil && r.PriceCents == nil && r.Quantity == nil && r.Category == nil {
		return errors.New("at least one field must be provided")
	}
	return nil
}

// ProductSearchRequest filters and pages the catalog listing.
type ProductSearchRequest struct {
	Query         string `json:"query,omitempty"`     // Matches name or description
	Category      string `json:"category,omitempty"`  // Exact category filter
	MinPriceCents *int64 `json:"min_price_cents,omitempty"`
	MaxPriceCents *int64 `json:"max_price_cents,omitempty"`
	InStock       *bool  `json:"in_stock,omitempty"`
	SortBy        string `json:"sort_by,omitempty"`    // name, price, created_at
	SortOrder     string `json:"sort_order,omitempty"` // asc, desc
	Page          int    `json:"page,omitempty"`
	PerPage       int    `json:"per_page,omitempty"`
}

// Validate checks filter and pagination parameters.
func (r *ProductSearchRequest) Validate() error {
	if r.MinPriceCents != nil && *r.MinPriceCents < 0 {
		return errors.New("min price cannot be negative")
	}
	if r.MaxPriceCents != nil && *r.MaxPriceCents < 0 {
		return errors.New("max price cannot be negative")
	}
	if r.MinPriceCents != nil && r.MaxPriceCents != nil && *r.MinPriceCents > *r.MaxPriceCents {
		return errors.New("min price cannot exceed max price")
	}
	if r.SortBy != "" && r.SortBy != "name" && r.SortBy != "price" && r.SortBy != "created_at" {
		return fmt.Errorf("invalid sort field: %s", r.SortBy)
	}
	if r.SortOrder != "" && r.SortOrder != "asc" && r.SortOrder != "desc" {
		return fmt.Errorf("invalid sort order: %s", r.SortOrder)
	}
	if r.Page < 0 {
		return errors.New("page cannot be negative")
	}
	if r.PerPage < 0 || r.PerPage > 100 {
		return errors.New("per_page must be between 0 and 100")
	}
	return nil
}

// Normalize applies pagination and sorting defaults.
func (r *ProductSearchRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	r.Category = strings.TrimSpace(r.Category)
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PerPage <= 0 {
		r.PerPage = 20
	}
	if r.SortBy == "" {
		r.SortBy = "created_at"
	}
	if r.SortOrder == "" {
		r.SortOrder = "desc"
	}
}

// RegisterRequest creates a new user account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// Role is optional and defaults to "user". Only admins may create
	// other admins or managers; enforcement happens in the auth service.
	Role Role `json:"role,omitempty"`
}

// Validate checks account creation parameters.
func (r *RegisterRequest) Validate() error {
	username := strings.TrimSpace(r.Username)
	if len(username) < 3 || len(username) > 100 {
		return errors.New("username must be between 3 and 100 characters")
	}
	if !strings.Contains(r.Email, "@") {
		return errors.New("invalid email format")
	}
	if len(r.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if r.Role != "" && !ValidRole(r.Role) {
		return fmt.Errorf("invalid role: %s", r.Role)
	}
	return nil
}

// Normalize trims the username and defaults the role.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if r.Role == "" {
		r.Role = RoleUser
	}
}

// LoginRequest exchanges credentials for an access token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks that both credentials are present.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// Package models - Product catalog entities.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product represents a single catalog entry. Price is stored in cents to
// avoid floating-point drift in arithmetic and comparisons.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProduct creates a Product with a fresh UUID and timestamps.
func NewProduct(name, description string, priceCents int64, quantity int, category string) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		PriceCents:  priceCents,
		Quantity:    quantity,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks product invariants before persistence.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("product ID is required")
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return errors.New("product name is required")
	}
	if len(name) > 255 {
		return fmt.Errorf("product name must be at most 255 characters, got %d", len(name))
	}

	if p.PriceCents < 0 {
		return errors.New("price cannot be negative")
	}

	if p.Quantity < 0 {
		return errors.New("quantity cannot be negative")
	}

	return nil
}

// InStock reports whether the product has any quantity available.
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

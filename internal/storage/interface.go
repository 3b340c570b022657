package storage

import (
	"context"
	"time"

	"productapi/internal/models"
)

// Storage defines the interface for product, user and token persistence.
// It provides a clean abstraction that can be implemented by different
// backends such as in-memory maps, SQLite, or PostgreSQL.
//
// All lookups return ErrNotFound for missing records and all creates return
// ErrDuplicate on uniqueness violations, so callers can branch with
// errors.Is regardless of the backend.
type Storage interface {
	// CreateProduct stores a new product
	CreateProduct(ctx context.Context, product *models.Product) error

	// GetProduct retrieves a product by its ID
	GetProduct(ctx context.Context, id string) (*models.Product, error)

	// UpdateProduct replaces an existing product
	UpdateProduct(ctx context.Context, product *models.Product) error

	// DeleteProduct removes a product by its ID
	DeleteProduct(ctx context.Context, id string) error

	// SearchProducts returns the page of products matching the request
	// filters along with the total match count before pagination
	SearchProducts(ctx context.Context, req *models.ProductSearchRequest) ([]*models.Product, int, error)

	// CreateUser stores a new user account
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id string) (*models.User, error)

	// GetUserByUsername retrieves a user by username
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// UpdateUser replaces an existing user
	UpdateUser(ctx context.Context, user *models.User) error

	// CreateToken stores a new access token
	CreateToken(ctx context.Context, token *models.Token) error

	// GetTokenByHash retrieves a token by its SHA-256 hash
	GetTokenByHash(ctx context.Context, hash string) (*models.Token, error)

	// DeleteToken removes a token by its ID
	DeleteToken(ctx context.Context, id string) error

	// DeleteExpiredTokens removes tokens expired as of the given time and
	// reports how many were removed
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	// Ping verifies the storage backend is reachable and operational
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

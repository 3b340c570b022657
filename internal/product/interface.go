package product

import (
	"context"

	"productapi/internal/models"
)

// ServiceInterface defines the interface for product catalog operations
type ServiceInterface interface {
	// Create stores a new product on behalf of the acting user
	Create(ctx context.Context, req *models.CreateProductRequest, actor *models.User) (*models.Product, error)

	// Get retrieves a single product by ID
	Get(ctx context.Context, id string) (*models.Product, error)

	// Update applies a partial update to an existing product
	Update(ctx context.Context, id string, req *models.UpdateProductRequest, actor *models.User) (*models.Product, error)

	// Delete removes a product by ID
	Delete(ctx context.Context, id string) error

	// Search returns a paginated, filtered listing of the catalog
	Search(ctx context.Context, req *models.ProductSearchRequest) (*models.ListProductsResponse, error)

	// LowStock returns products whose quantity is at or below the threshold
	LowStock(ctx context.Context, threshold int) ([]*models.Product, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

// Package product implements the catalog business logic on top of the
// storage layer: request validation, audit stamping and error mapping.
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"productapi/internal/models"
	"productapi/internal/storage"
)

// Service handles product catalog business logic
type Service struct {
	storage storage.Storage
}

// NewService creates a new product service with the given storage backend
func NewService(storage storage.Storage) *Service {
	return &Service{
		storage: storage,
	}
}

// Create validates the request and stores a new product. The acting user,
// when known, is recorded as the creator.
func (s *Service) Create(ctx context.Context, req *models.CreateProductRequest, actor *models.User) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid product", err)
	}
	req.Normalize()

	p := models.NewProduct(req.Name, req.Description, req.PriceCents, req.Quantity, req.Category)
	if actor != nil {
		p.CreatedBy = actor.ID
		p.UpdatedBy = actor.ID
	}

	if err := s.storage.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, NewConflictError(fmt.Sprintf("product '%s' already exists", p.ID))
		}
		return nil, NewInternalError("failed to create product", err)
	}

	return p, nil
}

// Get retrieves a single product by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewInvalidRequestError("product ID is required", nil)
	}

	p, err := s.storage.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewProductNotFoundError(id)
		}
		return nil, NewInternalError("failed to get product", err)
	}

	return p, nil
}

// Update applies a partial update to an existing product. Only fields set
// in the request change; the acting user is recorded as the updater.
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateProductRequest, actor *models.User) (*models.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewInvalidRequestError("product ID is required", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid update", err)
	}

	p, err := s.storage.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewProductNotFoundError(id)
		}
		return nil, NewInternalError("failed to get product", err)
	}

	applyUpdate(p, req)
	if actor != nil {
		p.UpdatedBy = actor.ID
	}
	p.UpdatedAt = time.Now().UTC()

	if err := p.Validate(); err != nil {
		return nil, NewValidationError("invalid update", err)
	}

	if err := s.storage.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewProductNotFoundError(id)
		}
		return nil, NewInternalError("failed to update product", err)
	}

	return p, nil
}

// Delete removes a product by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return NewInvalidRequestError("product ID is required", nil)
	}

	if err := s.storage.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NewProductNotFoundError(id)
		}
		return NewInternalError("failed to delete product", err)
	}

	return nil
}

// Search returns a paginated, filtered listing of the catalog.
func (s *Service) Search(ctx context.Context, req *models.ProductSearchRequest) (*models.ListProductsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid search", err)
	}
	req.Normalize()

	products, total, err := s.storage.SearchProducts(ctx, req)
	if err != nil {
		return nil, NewInternalError("failed to search products", err)
	}

	resp := &models.ListProductsResponse{
		Products:   make([]models.ProductResponse, 0, len(products)),
		TotalCount: total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		HasMore:    req.Page*req.PerPage < total,
	}
	for _, p := range products {
		var pr models.ProductResponse
		pr.FromProduct(p)
		resp.Products = append(resp.Products, pr)
	}

	return resp, nil
}

// LowStock returns products whose quantity is at or below the threshold,
// for restocking reports. It pages through the whole catalog, so it is
// meant for operator tooling rather than the hot path.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]*models.Product, error) {
	if threshold < 0 {
		return nil, NewInvalidRequestError("threshold cannot be negative", nil)
	}

	var low []*models.Product
	req := &models.ProductSearchRequest{Page: 1, PerPage: 100}
	req.Normalize()

	for {
		products, total, err := s.storage.SearchProducts(ctx, req)
		if err != nil {
			return nil, NewInternalError("failed to list products", err)
		}

		for _, p := range products {
			if p.Quantity <= threshold {
				low = append(low, p)
			}
		}

		if req.Page*req.PerPage >= total || len(products) == 0 {
			return low, nil
		}
		req.Page++
	}
}

func applyUpdate(p *models.Product, req *models.UpdateProductRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.PriceCents != nil {
		p.PriceCents = *req.PriceCents
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
}

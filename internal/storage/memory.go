package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"productapi/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data
// structures. This provider is ideal for development, testing, and scenarios
// where data persistence is not required. It provides fast access but data
// is lost on restart.
type MemoryStorage struct {
	mu          sync.RWMutex
	products    map[string]*models.Product
	users       map[string]*models.User
	usernames   map[string]string // username -> user ID
	tokens      map[string]*models.Token
	tokenHashes map[string]string // hash -> token ID
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		products:    make(map[string]*models.Product),
		users:       make(map[string]*models.User),
		usernames:   make(map[string]string),
		tokens:      make(map[string]*models.Token),
		tokenHashes: make(map[string]string),
	}
}

// CreateProduct stores a new product
func (m *MemoryStorage) CreateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[product.ID]; exists {
		return ErrDuplicate
	}

	// Store a copy to prevent external modification
	productCopy := *product
	m.products[product.ID] = &productCopy

	return nil
}

// GetProduct retrieves a product by its ID
func (m *MemoryStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	product, exists := m.products[id]
	if !exists {
		return nil, ErrNotFound
	}

	// Return a copy
	productCopy := *product
	return &productCopy, nil
}

// UpdateProduct replaces an existing product
func (m *MemoryStorage) UpdateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[product.ID]; !exists {
		return ErrNotFound
	}

	productCopy := *product
	m.products[product.ID] = &productCopy

	return nil
}

// DeleteProduct removes a product by its ID
func (m *MemoryStorage) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[id]; !exists {
		return ErrNotFound
	}

	delete(m.products, id)
	return nil
}

// SearchProducts returns the page of products matching the request filters
// along with the total match count before pagination
func (m *MemoryStorage) SearchProducts(ctx context.Context, req *models.ProductSearchRequest) ([]*models.Product, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Product
	for _, product := range m.products {
		if productMatches(product, req) {
			productCopy := *product
			matched = append(matched, &productCopy)
		}
	}

	sortProducts(matched, req.SortBy, req.SortOrder)

	total := len(matched)
	return pageProducts(matched, req.Page, req.PerPage), total, nil
}

// productMatches applies the search request's filters to a single product.
func productMatches(p *models.Product, req *models.ProductSearchRequest) bool {
	if req.Query != "" {
		q := strings.ToLower(req.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if req.Category != "" && p.Category != req.Category {
		return false
	}
	if req.MinPriceCents != nil && p.PriceCents < *req.MinPriceCents {
		return false
	}
	if req.MaxPriceCents != nil && p.PriceCents > *req.MaxPriceCents {
		return false
	}
	if req.InStock != nil && p.InStock() != *req.InStock {
		return false
	}
	return true
}

func sortProducts(products []*models.Product, sortBy, sortOrder string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "name":
			return products[i].Name < products[j].Name
		case "price":
			return products[i].PriceCents < products[j].PriceCents
		default:
			return products[i].CreatedAt.Before(products[j].CreatedAt)
		}
	}

	if sortOrder == "desc" {
		sort.SliceStable(products, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(products, less)
}

func pageProducts(products []*models.Product, page, perPage int) []*models.Product {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	start := (page - 1) * perPage
	if start >= len(products) {
		return []*models.Product{}
	}
	end := start + perPage
	if end > len(products) {
		end = len(products)
	}
	return products[start:end]
}

// CreateUser stores a new user account
func (m *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; exists {
		return ErrDuplicate
	}
	if _, taken := m.usernames[user.Username]; taken {
		return ErrDuplicate
	}

	userCopy := *user
	m.users[user.ID] = &userCopy
	m.usernames[user.Username] = user.ID

	return nil
}

// GetUser retrieves a user by ID
func (m *MemoryStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, ErrNotFound
	}

	userCopy := *user
	return &userCopy, nil
}

// GetUserByUsername retrieves a user by username
func (m *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.usernames[username]
	if !exists {
		return nil, ErrNotFound
	}

	userCopy := *m.users[id]
	return &userCopy, nil
}

// UpdateUser replaces an existing user
func (m *MemoryStorage) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.users[user.ID]
	if !exists {
		return ErrNotFound
	}

	if existing.Username != user.Username {
		if _, taken := m.usernames[user.Username]; taken {
			return ErrDuplicate
		}
		delete(m.usernames, existing.Username)
		m.usernames[user.Username] = user.ID
	}

	userCopy := *user
	m.users[user.ID] = &userCopy

	return nil
}

// CreateToken stores a new access token
func (m *MemoryStorage) CreateToken(ctx context.Context, token *models.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tokens[token.ID]; exists {
		return ErrDuplicate
	}

	tokenCopy := *token
	m.tokens[token.ID] = &tokenCopy
	m.tokenHashes[token.TokenHash] = token.ID

	return nil
}

// GetTokenByHash retrieves a token by its SHA-256 hash
func (m *MemoryStorage) GetTokenByHash(ctx context.Context, hash string) (*models.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.tokenHashes[hash]
	if !exists {
		return nil, ErrNotFound
	}

	tokenCopy := *m.tokens[id]
	return &tokenCopy, nil
}

// DeleteToken removes a token by its ID
func (m *MemoryStorage) DeleteToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, exists := m.tokens[id]
	if !exists {
		return ErrNotFound
	}

	delete(m.tokenHashes, token.TokenHash)
	delete(m.tokens, id)
	return nil
}

// DeleteExpiredTokens removes tokens expired as of the given time
func (m *MemoryStorage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, token := range m.tokens {
		if token.Expired(now) {
			delete(m.tokenHashes, token.TokenHash)
			delete(m.tokens, id)
			removed++
		}
	}
	return removed, nil
}

// Ping verifies the storage backend is reachable and operational.
func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close closes the storage connection and cleans up resources
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Clear all data
	m.products = make(map[string]*models.Product)
	m.users = make(map[string]*models.User)
	m.usernames = make(map[string]string)
	m.tokens = make(map[string]*models.Token)
	m.tokenHashes = make(map[string]string)

	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"productapi/internal/models"
)

// PostgresStorage implements the Storage interface using PostgreSQL.
// It is the production backend; the schema is created on startup so a fresh
// database needs no separate migration step.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price_cents BIGINT NOT NULL,
	quantity INTEGER NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT '',
	updated_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tokens (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	token_hash TEXT NOT NULL UNIQUE,
	prefix TEXT NOT NULL,
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tokens_user_id ON tokens(user_id);
`

// NewPostgresStorage creates a new PostgreSQL storage instance.
func NewPostgresStorage(ctx context.Context, cfg models.DatabaseConfig) (*PostgresStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("DSN is required for PostgreSQL storage")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// CreateProduct stores a new product
func (ps *PostgresStorage) CreateProduct(ctx context.Context, product *models.Product) error {
	_, err := ps.pool.Exec(ctx,
		`INSERT INTO products (id, name, description, price_cents, quantity, category, created_by, updated_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		product.ID, product.Name, product.Description, product.PriceCents, product.Quantity,
		product.Category, product.CreatedBy, product.UpdatedBy, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by its ID
func (ps *PostgresStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, name, description, price_cents, quantity, category, created_by, updated_by, created_at, updated_at
		 FROM products WHERE id = $1`, id)

	var product models.Product
	err := row.Scan(&product.ID, &product.Name, &product.Description, &product.PriceCents,
		&product.Quantity, &product.Category, &product.CreatedBy, &product.UpdatedBy,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// UpdateProduct replaces an existing product
func (ps *PostgresStorage) UpdateProduct(ctx context.Context, product *models.Product) error {
	tag, err := ps.pool.Exec(ctx,
		`UPDATE products SET name = $2, description = $3, price_cents = $4, quantity = $5, category = $6, updated_by = $7, updated_at = $8
		 WHERE id = $1`,
		product.ID, product.Name, product.Description, product.PriceCents, product.Quantity,
		product.Category, product.UpdatedBy, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product by its ID
func (ps *PostgresStorage) DeleteProduct(ctx context.Context, id string) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchProducts returns the page of products matching the request filters
// along with the total match count before pagination
func (ps *PostgresStorage) SearchProducts(ctx context.Context, req *models.ProductSearchRequest) ([]*models.Product, int, error) {
	where, args := buildPgProductFilter(req)

	var total int
	if err := ps.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page, perPage := normalizePage(req.Page, req.PerPage)
	query := fmt.Sprintf(
		`SELECT id, name, description, price_cents, quantity, category, created_by, updated_by, created_at, updated_at
		 FROM products%s%s LIMIT $%d OFFSET $%d`,
		where, productOrderClause(req.SortBy, req.SortOrder), len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := ps.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		var product models.Product
		err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.PriceCents,
			&product.Quantity, &product.Category, &product.CreatedBy, &product.UpdatedBy,
			&product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read products: %w", err)
	}

	return products, total, nil
}

func buildPgProductFilter(req *models.ProductSearchRequest) (string, []any) {
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if req.Query != "" {
		pattern := "%" + req.Query + "%"
		p1, p2 := arg(pattern), arg(pattern)
		clauses = append(clauses, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p1, p2))
	}
	if req.Category != "" {
		clauses = append(clauses, "category = "+arg(req.Category))
	}
	if req.MinPriceCents != nil {
		clauses = append(clauses, "price_cents >= "+arg(*req.MinPriceCents))
	}
	if req.MaxPriceCents != nil {
		clauses = append(clauses, "price_cents <= "+arg(*req.MaxPriceCents))
	}
	if req.InStock != nil {
		if *req.InStock {
			clauses = append(clauses, "quantity > 0")
		} else {
			clauses = append(clauses, "quantity = 0")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}

	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// CreateUser stores a new user account
func (ps *PostgresStorage) CreateUser(ctx context.Context, user *models.User) error {
	_, err := ps.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
		user.Active, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (ps *PostgresStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	return ps.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByUsername retrieves a user by username
func (ps *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return ps.getUser(ctx, `WHERE username = $1`, username)
}

func (ps *PostgresStorage) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, active, created_at, updated_at FROM users `+where, arg)

	var user models.User
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&role, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Role = models.Role(role)
	return &user, nil
}

// UpdateUser replaces an existing user
func (ps *PostgresStorage) UpdateUser(ctx context.Context, user *models.User) error {
	tag, err := ps.pool.Exec(ctx,
		`UPDATE users SET username = $2, email = $3, password_hash = $4, role = $5, active = $6, updated_at = $7
		 WHERE id = $1`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
		user.Active, user.UpdatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateToken stores a new access token
func (ps *PostgresStorage) CreateToken(ctx context.Context, token *models.Token) error {
	var expiresAt *time.Time
	if !token.ExpiresAt.IsZero() {
		expiresAt = &token.ExpiresAt
	}

	_, err := ps.pool.Exec(ctx,
		`INSERT INTO tokens (id, user_id, token_hash, prefix, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.TokenHash, token.Prefix, expiresAt, token.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetTokenByHash retrieves a token by its SHA-256 hash
func (ps *PostgresStorage) GetTokenByHash(ctx context.Context, hash string) (*models.Token, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, user_id, token_hash, prefix, expires_at, created_at FROM tokens WHERE token_hash = $1`, hash)

	var token models.Token
	var expiresAt *time.Time
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.Prefix, &expiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if expiresAt != nil {
		token.ExpiresAt = *expiresAt
	}
	return &token, nil
}

// DeleteToken removes a token by its ID
func (ps *PostgresStorage) DeleteToken(ctx context.Context, id string) error {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredTokens removes tokens expired as of the given time
func (ps *PostgresStorage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := ps.pool.Exec(ctx,
		`DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies the storage backend is reachable and operational.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the storage connection.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

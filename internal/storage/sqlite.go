package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"productapi/internal/models"
)

// SQLiteStorage implements the Storage interface using an embedded SQLite
// database. It is suitable for single-node deployments where a standalone
// database server would be overkill. The schema is created on first open.
//
// Timestamps are stored as RFC 3339 strings with nanosecond precision; a
// NULL expires_at marks a non-expiring token.
type SQLiteStorage struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price_cents INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT '',
	updated_by TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tokens (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	token_hash TEXT NOT NULL UNIQUE,
	prefix TEXT NOT NULL,
	expires_at TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tokens_user_id ON tokens(user_id);
`

// NewSQLiteStorage creates a new SQLite storage instance and bootstraps the
// schema if it does not exist yet.
func NewSQLiteStorage(dsn string) (*SQLiteStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DSN is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// CreateProduct stores a new product
func (ss *SQLiteStorage) CreateProduct(ctx context.Context, product *models.Product) error {
	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO products (id, name, description, price_cents, quantity, category, created_by, updated_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.Description, product.PriceCents, product.Quantity,
		product.Category, product.CreatedBy, product.UpdatedBy,
		formatTime(product.CreatedAt), formatTime(product.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by its ID
func (ss *SQLiteStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, name, description, price_cents, quantity, category, created_by, updated_by, created_at, updated_at
		 FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

// UpdateProduct replaces an existing product
func (ss *SQLiteStorage) UpdateProduct(ctx context.Context, product *models.Product) error {
	res, err := ss.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price_cents = ?, quantity = ?, category = ?, updated_by = ?, updated_at = ?
		 WHERE id = ?`,
		product.Name, product.Description, product.PriceCents, product.Quantity,
		product.Category, product.UpdatedBy, formatTime(product.UpdatedAt), product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireRows(res)
}

// DeleteProduct removes a product by its ID
func (ss *SQLiteStorage) DeleteProduct(ctx context.Context, id string) error {
	res, err := ss.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return requireRows(res)
}

// SearchProducts returns the page of products matching the request filters
// along with the total match count before pagination
func (ss *SQLiteStorage) SearchProducts(ctx context.Context, req *models.ProductSearchRequest) ([]*models.Product, int, error) {
	where, args := buildProductFilter(req)

	var total int
	countQuery := "SELECT COUNT(*) FROM products" + where
	if err := ss.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT id, name, description, price_cents, quantity, category, created_by, updated_by, created_at, updated_at
		 FROM products` + where + productOrderClause(req.SortBy, req.SortOrder) + " LIMIT ? OFFSET ?"

	page, perPage := normalizePage(req.Page, req.PerPage)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := ss.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read products: %w", err)
	}

	return products, total, nil
}

// buildProductFilter converts the search request into a WHERE clause with
// positional arguments. An empty request produces no clause at all.
func buildProductFilter(req *models.ProductSearchRequest) (string, []any) {
	var clauses []string
	var args []any

	if req.Query != "" {
		clauses = append(clauses, "(name LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE)")
		pattern := "%" + req.Query + "%"
		args = append(args, pattern, pattern)
	}
	if req.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, req.Category)
	}
	if req.MinPriceCents != nil {
		clauses = append(clauses, "price_cents >= ?")
		args = append(args, *req.MinPriceCents)
	}
	if req.MaxPriceCents != nil {
		clauses = append(clauses, "price_cents <= ?")
		args = append(args, *req.MaxPriceCents)
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
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// productOrderClause maps the request's sort parameters onto a whitelisted
// ORDER BY clause. Sort fields never reach the SQL text unchecked.
func productOrderClause(sortBy, sortOrder string) string {
	column := "created_at"
	switch sortBy {
	case "name":
		column = "name"
	case "price":
		column = "price_cents"
	}

	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

func normalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	return page, perPage
}

// CreateUser stores a new user account
func (ss *SQLiteStorage) CreateUser(ctx context.Context, user *models.User) error {
	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
		boolToInt(user.Active), formatTime(user.CreatedAt), formatTime(user.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (ss *SQLiteStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, active, created_at, updated_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username
func (ss *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, active, created_at, updated_at
		 FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// UpdateUser replaces an existing user
func (ss *SQLiteStorage) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := ss.db.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, password_hash = ?, role = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username, user.Email, user.PasswordHash, string(user.Role),
		boolToInt(user.Active), formatTime(user.UpdatedAt), user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRows(res)
}

// CreateToken stores a new access token
func (ss *SQLiteStorage) CreateToken(ctx context.Context, token *models.Token) error {
	var expiresAt any
	if !token.ExpiresAt.IsZero() {
		expiresAt = formatTime(token.ExpiresAt)
	}

	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO tokens (id, user_id, token_hash, prefix, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.TokenHash, token.Prefix, expiresAt, formatTime(token.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetTokenByHash retrieves a token by its SHA-256 hash
func (ss *SQLiteStorage) GetTokenByHash(ctx context.Context, hash string) (*models.Token, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, prefix, expires_at, created_at
		 FROM tokens WHERE token_hash = ?`, hash)

	var token models.Token
	var expiresAt sql.NullString
	var createdAt string
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.Prefix, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if expiresAt.Valid {
		if token.ExpiresAt, err = parseTime(expiresAt.String); err != nil {
			return nil, err
		}
	}
	if token.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &token, nil
}

// DeleteToken removes a token by its ID
func (ss *SQLiteStorage) DeleteToken(ctx context.Context, id string) error {
	res, err := ss.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return requireRows(res)
}

// DeleteExpiredTokens removes tokens expired as of the given time
func (ss *SQLiteStorage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := ss.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}

// Ping verifies the storage backend is reachable and operational.
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*models.Product, error) {
	var product models.Product
	var createdAt, updatedAt string
	err := s.Scan(&product.ID, &product.Name, &product.Description, &product.PriceCents,
		&product.Quantity, &product.Category, &product.CreatedBy, &product.UpdatedBy,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if product.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if product.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &product, nil
}

func scanUser(s scanner) (*models.User, error) {
	var user models.User
	var role string
	var active int
	var createdAt, updatedAt string
	err := s.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&role, &active, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.Role = models.Role(role)
	user.Active = active != 0
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

func requireRows(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// there is no exported sentinel to match against.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

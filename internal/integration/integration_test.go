package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"productapi/internal/api"
	"productapi/internal/auth"
	"productapi/internal/config"
	"productapi/internal/models"
	"productapi/internal/product"
	"productapi/internal/ratelimit"
	"productapi/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests that exercise the entire system end-to-end

type env struct {
	server *httptest.Server
	store  storage.Storage
	client *http.Client
}

func setupEnv(t *testing.T, cfg *models.Config, limiter *ratelimit.Limiter) *env {
	t.Helper()

	store, err := storage.Create(context.Background(), cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	authService := auth.NewService(store, cfg.Security.TokenTTL)
	productService := product.NewService(store)
	handlers := api.NewHandlers(productService, authService, store)

	var opts []api.RouteOption
	if limiter != nil {
		t.Cleanup(limiter.Close)
		opts = append(opts, api.WithRateLimiter(ratelimit.Middleware(limiter, nil)))
	}

	router := api.SetupRoutes(handlers, cfg, opts...)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &env{server: server, store: store, client: server.Client()}
}

func (e *env) post(t *testing.T, path, token string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", e.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *env) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", e.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestIntegration_FullCatalogFlow(t *testing.T) {
	cfg := models.NewDefaultConfig()
	cfg.Security.EnableAuth = true
	cfg.Security.TokenTTL = time.Hour
	cfg.Storage.Type = "sqlite"
	cfg.Storage.Database.DSN = filepath.Join(t.TempDir(), "catalog.db")

	e := setupEnv(t, cfg, nil)

	// Seed an admin directly; registration of privileged roles needs one.
	adminUser, err := auth.NewService(e.store, time.Hour).Register(context.Background(), &models.RegisterRequest{
		Username: "root",
		Email:    "root@example.com",
		Password: "secret123",
		Role:     models.RoleAdmin,
	}, &models.User{Role: models.RoleAdmin, Active: true})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, adminUser.Role)

	// Step 1: log in as the admin.
	resp := e.post(t, "/api/v1/auth/login", "", &models.LoginRequest{
		Username: "root",
		Password: "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var authResp models.AuthResponse
	decode(t, resp, &authResp)
	require.NotEmpty(t, authResp.Token)
	token := authResp.Token

	// Step 2: create products.
	var created models.ProductResponse
	resp = e.post(t, "/api/v1/products", token, &models.CreateProductRequest{
		Name:        "Mechanical Keyboard",
		Description: "Tactile switches",
		PriceCents:  8999,
		Quantity:    5,
		Category:    "input",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, adminUser.ID, created.CreatedBy)

	resp = e.post(t, "/api/v1/products", token, &models.CreateProductRequest{
		Name:       "Laptop Stand",
		PriceCents: 4999,
		Quantity:   0,
		Category:   "accessories",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Step 3: anonymous search still works and sees both.
	resp = e.get(t, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list models.ListProductsResponse
	decode(t, resp, &list)
	assert.Equal(t, 2, list.TotalCount)

	// Filtered search.
	resp = e.get(t, "/api/v1/products?q=keyboard&in_stock=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	require.Equal(t, 1, list.TotalCount)
	assert.Equal(t, "Mechanical Keyboard", list.Products[0].Name)

	// Step 4: update the product.
	newPrice := int64(7999)
	putReq, err := http.NewRequest("PUT", e.server.URL+"/api/v1/products/"+created.ID,
		bytes.NewReader(mustMarshal(t, &models.UpdateProductRequest{PriceCents: &newPrice})))
	require.NoError(t, err)
	putReq.Header.Set("Authorization", "Bearer "+token)
	putResp, err := e.client.Do(putReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	var updated models.ProductResponse
	decode(t, putResp, &updated)
	assert.Equal(t, int64(7999), updated.PriceCents)

	// Step 5: low-stock report picks up the empty item.
	resp = e.get(t, "/api/v1/products/low-stock?threshold=0", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lowStock []models.ProductResponse
	decode(t, resp, &lowStock)
	require.Len(t, lowStock, 1)
	assert.Equal(t, "Laptop Stand", lowStock[0].Name)

	// Step 6: delete.
	delReq, err := http.NewRequest("DELETE", e.server.URL+"/api/v1/products/"+created.ID, nil)
	require.NoError(t, err)
	delReq.Header.Set("Authorization", "Bearer "+token)
	delResp, err := e.client.Do(delReq)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp = e.get(t, "/api/v1/products/"+created.ID, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Step 7: health check.
	resp = e.get(t, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	decode(t, resp, &health)
	assert.Equal(t, "healthy", health["status"])
}

func TestIntegration_AnonymousRateLimiting(t *testing.T) {
	cfg := models.NewDefaultConfig()

	limiter := ratelimit.New(3, 10, time.Minute, ratelimit.WithSweepInterval(0))
	e := setupEnv(t, cfg, limiter)

	var lastResp *http.Response
	for i := 0; i < 3; i++ {
		lastResp = e.get(t, "/api/v1/products", "")
		require.Equal(t, http.StatusOK, lastResp.StatusCode, "request %d should be admitted", i+1)
		assert.Equal(t, "3", lastResp.Header.Get("X-RateLimit-Limit"))
		lastResp.Body.Close()
	}

	resp := e.get(t, "/api/v1/products", "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	var errResp models.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, models.ErrorCodeRateLimited, errResp.Code)

	// Health is exempt even while the IP is saturated.
	resp = e.get(t, "/health", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_UserKeyedRateLimiting(t *testing.T) {
	cfg := models.NewDefaultConfig()
	cfg.Security.EnableAuth = true
	cfg.Security.TokenTTL = time.Hour

	// IP table would deny after 2; the user table allows 5. An
	// authenticated caller must be counted against the user table only.
	limiter := ratelimit.New(2, 5, time.Minute, ratelimit.WithSweepInterval(0))
	e := setupEnv(t, cfg, limiter)

	_, err := auth.NewService(e.store, time.Hour).Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	}, nil)
	require.NoError(t, err)

	resp := e.post(t, "/api/v1/auth/login", "", &models.LoginRequest{
		Username: "alice",
		Password: "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var authResp models.AuthResponse
	decode(t, resp, &authResp)
	token := authResp.Token

	// The login itself consumed IP admissions; authenticated requests now
	// ride the user table and get the full 5.
	for i := 0; i < 4; i++ {
		resp = e.get(t, "/api/v1/products", token)
		require.Equal(t, http.StatusOK, resp.StatusCode, "authenticated request %d", i+1)
		assert.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))
		resp.Body.Close()
	}

	resp = e.get(t, "/api/v1/products", token)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "fifth user admission")

	resp = e.get(t, "/api/v1/products", token)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "sixth user request is over the limit")
}

func TestIntegration_ConcurrentRequests(t *testing.T) {
	cfg := models.NewDefaultConfig()
	e := setupEnv(t, cfg, nil)

	productService := product.NewService(e.store)
	_, err := productService.Create(context.Background(), &models.CreateProductRequest{
		Name:       "Widget",
		PriceCents: 100,
		Quantity:   1,
	}, nil)
	require.NoError(t, err)

	const numRequests = 10
	results := make(chan error, numRequests)

	for i := 0; i < numRequests; i++ {
		go func(id int) {
			resp, err := e.client.Get(e.server.URL + "/api/v1/products")
			if err != nil {
				results <- fmt.Errorf("request %d failed: %v", id, err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				results <- fmt.Errorf("request %d got status %d", id, resp.StatusCode)
				return
			}

			var list models.ListProductsResponse
			if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
				results <- fmt.Errorf("request %d decode error: %v", id, err)
				return
			}
			if list.TotalCount != 1 {
				results <- fmt.Errorf("request %d got unexpected count %d", id, list.TotalCount)
				return
			}
			results <- nil
		}(i)
	}

	for i := 0; i < numRequests; i++ {
		assert.NoError(t, <-results, "Concurrent request failed")
	}
}

func TestIntegration_ConfigLoading(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "integration_config.yaml")

	configContent := `
server:
  port: 8081
  host: "127.0.0.1"
  read_timeout: 45s
  write_timeout: 45s
  idle_timeout: 90s

storage:
  type: "memory"

security:
  enable_auth: true
  token_ttl: 12h
  rate_limit:
    enabled: true
    ip_requests_per_minute: 120
    user_requests_per_minute: 240
    window: 60s

logging:
  level: "debug"
  format: "text"

metrics:
  enabled: true
  port: 9091
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := config.Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 90*time.Second, cfg.Server.IdleTimeout)

	assert.Equal(t, "memory", cfg.Storage.Type)

	assert.True(t, cfg.Security.EnableAuth)
	assert.Equal(t, 12*time.Hour, cfg.Security.TokenTTL)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, 120, cfg.Security.RateLimit.IPRequestsPerMinute)
	assert.Equal(t, 240, cfg.Security.RateLimit.UserRequestsPerMinute)
	assert.Equal(t, time.Minute, cfg.Security.RateLimit.Window)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9091, cfg.Metrics.Port)

	assert.NoError(t, cfg.Validate())
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"productapi/internal/auth"
	"productapi/internal/models"
	"productapi/internal/product"
	"productapi/internal/storage"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router  *mux.Router
	store   storage.Storage
	auth    *auth.Service
	product *product.Service
}

func setupTestEnv(t *testing.T, enableAuth bool) *testEnv {
	t.Helper()

	store := storage.NewMemoryStorage()
	authService := auth.NewService(store, time.Hour)
	productService := product.NewService(store)
	handlers := NewHandlers(productService, authService, store)

	config := models.NewDefaultConfig()
	config.Security.EnableAuth = enableAuth

	return &testEnv{
		router:  SetupRoutes(handlers, config),
		store:   store,
		auth:    authService,
		product: productService,
	}
}

// loginAs registers a user with the given role and returns a bearer token.
func (env *testEnv) loginAs(t *testing.T, username string, role models.Role) string {
	t.Helper()

	_, err := env.auth.Register(context.Background(), &models.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
		Role:     role,
	}, &models.User{Role: models.RoleAdmin, Active: true})
	require.NoError(t, err)

	resp, err := env.auth.Login(context.Background(), &models.LoginRequest{
		Username: username,
		Password: "secret123",
	})
	require.NoError(t, err)
	return resp.Token
}

func (env *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t, false)

	rr := env.do("GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.HealthCheckResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusHealthy, resp.Status)
	assert.Contains(t, resp.Components, "storage")
	assert.Contains(t, resp.Components, "api")
}

func TestHealthCheck_APIPath(t *testing.T) {
	env := setupTestEnv(t, false)

	rr := env.do("GET", "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateProduct(t *testing.T) {
	env := setupTestEnv(t, false)

	rr := env.do("POST", "/api/v1/products", "", &models.CreateProductRequest{
		Name:       "Laptop Stand",
		PriceCents: 4999,
		Quantity:   12,
		Category:   "accessories",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp models.ProductResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Laptop Stand", resp.Name)
	assert.Equal(t, int64(4999), resp.PriceCents)
	assert.True(t, resp.InStock)
}

func TestCreateProduct_InvalidJSON(t *testing.T) {
	env := setupTestEnv(t, false)

	req := httptest.NewRequest("POST", "/api/v1/products", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateProduct_ValidationError(t *testing.T) {
	env := setupTestEnv(t, false)

	rr := env.do("POST", "/api/v1/products", "", &models.CreateProductRequest{
		PriceCents: -5,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrorCodeValidation, resp.Code)
}

func TestGetProduct(t *testing.T) {
	env := setupTestEnv(t, false)

	created, err := env.product.Create(context.Background(), &models.CreateProductRequest{
		Name:       "Monitor Arm",
		PriceCents: 12999,
	}, nil)
	require.NoError(t, err)

	rr := env.do("GET", "/api/v1/products/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ProductResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := setupTestEnv(t, false)

	rr := env.do("GET", "/api/v1/products/nonexistent", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrorCodeNotFound, resp.Code)
}

func TestListProducts(t *testing.T) {
	env := setupTestEnv(t, false)

	for i := 0; i < 3; i++ {
		_, err := env.product.Create(context.Background(), &models.CreateProductRequest{
			Name:       fmt.Sprintf("Widget %d", i),
			PriceCents: int64(1000 * (i + 1)),
			Quantity:   i,
		}, nil)
		require.NoError(t, err)
	}

	rr := env.do("GET", "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ListProductsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalCount)
	assert.Len(t, resp.Products, 3)
}

func TestListProducts_Filtered(t *testing.T) {
	env := setupTestEnv(t, false)

	_, err := env.product.Create(context.Background(), &models.CreateProductRequest{
		Name: "Keyboard", PriceCents: 8999, Quantity: 5, Category: "input",
	}, nil)
	require.NoError(t, err)
	_, err = env.product.Create(context.Background(), &models.CreateProductRequest{
		Name: "Stand", PriceCents: 4999, Quantity: 2, Category: "accessories",
	}, nil)
	require.NoError(t, err)

	rr := env.do("GET", "/api/v1/products?category=input", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ListProductsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "Keyboard", resp.Products[0].Name)

	rr = env.do("GET", "/api/v1/products?min_price_cents=5000", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
}

func TestListProducts_BadQuery(t *testing.T) {
	env := setupTestEnv(t, false)

	rr := env.do("GET", "/api/v1/products?min_price_cents=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do("GET", "/api/v1/products?in_stock=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateProduct(t *testing.T) {
	env := setupTestEnv(t, false)

	created, err := env.product.Create(context.Background(), &models.CreateProductRequest{
		Name:       "Keyboard",
		PriceCents: 8999,
		Quantity:   5,
	}, nil)
	require.NoError(t, err)

	newPrice := int64(7999)
	rr := env.do("PUT", "/api/v1/products/"+created.ID, "", &models.UpdateProductRequest{
		PriceCents: &newPrice,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ProductResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(7999), resp.PriceCents)
	assert.Equal(t, "Keyboard", resp.Name)
}

func TestDeleteProduct(t *testing.T) {
	env := setupTestEnv(t, false)

	created, err := env.product.Create(context.Background(), &models.CreateProductRequest{
		Name:       "Widget",
		PriceCents: 100,
	}, nil)
	require.NoError(t, err)

	rr := env.do("DELETE", "/api/v1/products/"+created.ID, "", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do("GET", "/api/v1/products/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLowStockProducts(t *testing.T) {
	env := setupTestEnv(t, false)

	quantities := []int{0, 3, 50}
	for i, qty := range quantities {
		_, err := env.product.Create(context.Background(), &models.CreateProductRequest{
			Name:       fmt.Sprintf("Widget %d", i),
			PriceCents: 100,
			Quantity:   qty,
		}, nil)
		require.NoError(t, err)
	}

	rr := env.do("GET", "/api/v1/products/low-stock?threshold=5", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp []models.ProductResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestLowStockProducts_BadThreshold(t *testing.T) {
	env := setupTestEnv(t, false)

	rr := env.do("GET", "/api/v1/products/low-stock?threshold=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t, false)

	// Routes registered on the /api/v1 subrouter and on the root router
	// must both answer 405, not fall through to 404.
	for _, tc := range []struct {
		method string
		path   string
	}{
		{"PATCH", "/api/v1/products"},
		{"POST", "/health"},
	} {
		rr := env.do(tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusMethodNotAllowed, rr.Code, "%s %s", tc.method, tc.path)

		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, models.ErrorCodeInvalidRequest, resp.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t, true)

	rr := env.do("POST", "/api/v1/auth/register", "", &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var userResp models.UserResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &userResp))
	assert.Equal(t, "alice", userResp.Username)
	assert.Equal(t, models.RoleUser, userResp.Role)

	rr = env.do("POST", "/api/v1/auth/login", "", &models.LoginRequest{
		Username: "alice",
		Password: "secret123",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var authResp models.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &authResp))
	assert.Equal(t, "Bearer", authResp.TokenType)
	assert.NotEmpty(t, authResp.Token)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := setupTestEnv(t, true)
	env.loginAs(t, "alice", models.RoleUser)

	rr := env.do("POST", "/api/v1/auth/login", "", &models.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe(t *testing.T) {
	env := setupTestEnv(t, true)
	token := env.loginAs(t, "alice", models.RoleUser)

	rr := env.do("GET", "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.UserResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
}

func TestMe_Unauthenticated(t *testing.T) {
	env := setupTestEnv(t, true)

	rr := env.do("GET", "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogout(t *testing.T) {
	env := setupTestEnv(t, true)
	token := env.loginAs(t, "alice", models.RoleUser)

	rr := env.do("POST", "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do("GET", "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "token must be dead after logout")
}

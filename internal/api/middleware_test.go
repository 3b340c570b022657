package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"productapi/internal/auth"
	"productapi/internal/models"
	"productapi/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*auth.Service, string, *models.User) {
	t.Helper()

	store := storage.NewMemoryStorage()
	authService := auth.NewService(store, time.Hour)

	user, err := authService.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	}, nil)
	require.NoError(t, err)

	resp, err := authService.Login(context.Background(), &models.LoginRequest{
		Username: "alice",
		Password: "secret123",
	})
	require.NoError(t, err)

	return authService, resp.Token, user
}

func echoUserHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r) != nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	authService, token, user := newAuthService(t)

	var got *models.User
	handler := authMiddleware(authService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUser(r)
	}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	authService, _, _ := newAuthService(t)
	handler := authMiddleware(authService)(echoUserHandler())

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "unknown token", header: "Bearer pa_bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	authService, token, _ := newAuthService(t)
	handler := OptionalAuth(authService)(echoUserHandler())

	// Valid token resolves the user.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// No token continues anonymously.
	req = httptest.NewRequest("GET", "/", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	// Bad token also continues anonymously rather than failing.
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer pa_bogus")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name       string
		user       *models.User
		permission models.Permission
		wantStatus int
	}{
		{
			name:       "admin can delete",
			user:       &models.User{Role: models.RoleAdmin, Active: true},
			permission: models.PermissionDelete,
			wantStatus: http.StatusOK,
		},
		{
			name:       "manager can update",
			user:       &models.User{Role: models.RoleManager, Active: true},
			permission: models.PermissionUpdate,
			wantStatus: http.StatusOK,
		},
		{
			name:       "manager cannot delete",
			user:       &models.User{Role: models.RoleManager, Active: true},
			permission: models.PermissionDelete,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "user can read",
			user:       &models.User{Role: models.RoleUser, Active: true},
			permission: models.PermissionRead,
			wantStatus: http.StatusOK,
		},
		{
			name:       "user cannot create",
			user:       &models.User{Role: models.RoleUser, Active: true},
			permission: models.PermissionCreate,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "inactive admin denied",
			user:       &models.User{Role: models.RoleAdmin, Active: false},
			permission: models.PermissionRead,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no user denied",
			user:       nil,
			permission: models.PermissionRead,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequirePermission(tt.permission)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/", nil)
			if tt.user != nil {
				req = req.WithContext(context.WithValue(req.Context(), "user", tt.user))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"productapi/internal/auth"
	"productapi/internal/models"

	"github.com/gorilla/mux"
)

// GetUser extracts the authenticated user from the request context, or nil
// when the request is anonymous.
func GetUser(r *http.Request) *models.User {
	if user, ok := r.Context().Value("user").(*models.User); ok {
		return user
	}
	return nil
}

// authMiddleware handles bearer-token authentication using the auth
// service. On success the resolved user is stored under the "user" context
// key for handlers and the rate limiter.
func authMiddleware(authService auth.ServiceInterface) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeMiddlewareError(w, http.StatusUnauthorized, "Authorization required", models.ErrorCodeUnauthorized)
				return
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				writeMiddlewareError(w, http.StatusUnauthorized, "Invalid authorization format", models.ErrorCodeUnauthorized)
				return
			}

			user, err := authService.VerifyToken(r.Context(), authHeader[len(prefix):])
			if err != nil {
				writeMiddlewareError(w, http.StatusUnauthorized, "Invalid or expired token", models.ErrorCodeUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), "user", user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves a bearer token when one is present but never
// rejects the request. Anonymous and invalid-token requests continue
// without a user in context, so they fall into the IP rate-limit table.
func OptionalAuth(authService auth.ServiceInterface) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.VerifyToken(r.Context(), authHeader[len(prefix):])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), "user", user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission creates middleware that enforces a role-based
// permission. It must run after authMiddleware.
func RequirePermission(required models.Permission) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if !user.HasPermission(required) {
				writeMiddlewareError(w, http.StatusForbidden,
					"Insufficient permissions for this operation", models.ErrorCodeForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeMiddlewareError(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.NewErrorResponse(message, code))
}

package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"productapi/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// routeConfig collects optional middleware so SetupRoutes can apply it in
// a fixed order: instrumentation, CORS, logging, recovery, optional auth
// resolution, then rate limiting. Auth resolution must precede the rate
// limiter so authenticated requests land in the user key space.
type routeConfig struct {
	otel      mux.MiddlewareFunc
	rateLimit mux.MiddlewareFunc
}

// RouteOption configures optional route behavior.
type RouteOption func(*routeConfig)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(rc *routeConfig) {
		rc.otel = otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/metrics"
			}),
		)
	}
}

// WithRateLimiter adds rate limiting middleware to the router. Health
// endpoints are exempt so probes keep working during an admission storm.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(rc *routeConfig) {
		rc.rateLimit = func(next http.Handler) http.Handler {
			limited := middleware(next)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/health" || r.URL.Path == "/api/v1/health" {
					next.ServeHTTP(w, r)
					return
				}
				limited.ServeHTTP(w, r)
			})
		}
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	var rc routeConfig
	for _, opt := range opts {
		opt(&rc)
	}

	if rc.otel != nil {
		router.Use(rc.otel)
	}
	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)
	if config.Security.EnableAuth {
		router.Use(OptionalAuth(handlers.authService))
	}
	if rc.rateLimit != nil {
		router.Use(rc.rateLimit)
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Catalog reads are public; anonymous callers are admitted per IP.
	api.HandleFunc("/products", handlers.ListProducts).Methods("GET")

	api.HandleFunc("/auth/register", handlers.Register).Methods("POST")
	api.HandleFunc("/auth/login", handlers.Login).Methods("POST")
	api.HandleFunc("/auth/login", methodNotAllowedHandler).Methods("GET", "PUT", "DELETE", "PATCH")

	api.PathPrefix("").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("OPTIONS")

	// Subrouters do not inherit the handler from the parent router.
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	if config.Security.EnableAuth {
		authAPI := api.PathPrefix("/auth").Subrouter()
		authAPI.Use(authMiddleware(handlers.authService))
		authAPI.HandleFunc("/logout", handlers.Logout).Methods("POST")
		authAPI.HandleFunc("/me", handlers.Me).Methods("GET")

		readAPI := api.PathPrefix("/products").Subrouter()
		readAPI.Use(authMiddleware(handlers.authService))
		readAPI.Use(RequirePermission(models.PermissionRead))
		readAPI.HandleFunc("/low-stock", handlers.LowStockProducts).Methods("GET")

		createAPI := api.PathPrefix("/products").Subrouter()
		createAPI.Use(authMiddleware(handlers.authService))
		createAPI.Use(RequirePermission(models.PermissionCreate))
		createAPI.HandleFunc("", handlers.CreateProduct).Methods("POST")

		updateAPI := api.PathPrefix("/products").Subrouter()
		updateAPI.Use(authMiddleware(handlers.authService))
		updateAPI.Use(RequirePermission(models.PermissionUpdate))
		updateAPI.HandleFunc("/{id}", handlers.UpdateProduct).Methods("PUT")

		deleteAPI := api.PathPrefix("/products").Subrouter()
		deleteAPI.Use(authMiddleware(handlers.authService))
		deleteAPI.Use(RequirePermission(models.PermissionDelete))
		deleteAPI.HandleFunc("/{id}", handlers.DeleteProduct).Methods("DELETE")
	} else {
		api.HandleFunc("/products/low-stock", handlers.LowStockProducts).Methods("GET")
		api.HandleFunc("/products", handlers.CreateProduct).Methods("POST")
		api.HandleFunc("/products/{id}", handlers.UpdateProduct).Methods("PUT")
		api.HandleFunc("/products/{id}", handlers.DeleteProduct).Methods("DELETE")
	}

	// Registered after /products/low-stock so the literal path wins.
	api.HandleFunc("/products/{id}", handlers.GetProduct).Methods("GET")

	return router
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	errorResp := models.NewErrorResponse("Method not allowed", models.ErrorCodeInvalidRequest)
	json.NewEncoder(w).Encode(errorResp)
}

// corsMiddleware handles Cross-Origin Resource Sharing
func corsMiddleware(corsConfig models.CORSConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(corsConfig.AllowedOrigins) > 0 {
				origin := r.Header.Get("Origin")
				if origin != "" && (contains(corsConfig.AllowedOrigins, "*") || contains(corsConfig.AllowedOrigins, origin)) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
			}
			if len(corsConfig.AllowedMethods) > 0 {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsConfig.AllowedMethods, ", "))
			}
			if len(corsConfig.AllowedHeaders) > 0 {
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(corsConfig.AllowedHeaders, ", "))
			}
			if corsConfig.MaxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", corsConfig.MaxAge))
			}
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered", "error", err, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				errorResp := models.NewErrorResponse("Internal server error", models.ErrorCodeInternalError)
				json.NewEncoder(w).Encode(errorResp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

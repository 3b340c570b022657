package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"productapi/internal/auth"
	"productapi/internal/models"
	"productapi/internal/product"
	"productapi/internal/storage"
	"productapi/internal/version"
)

// Handlers contains the HTTP handlers for the product API
type Handlers struct {
	productService product.ServiceInterface
	authService    auth.ServiceInterface
	storage        storage.Storage
	startedAt      time.Time
}

// NewHandlers creates a new handlers instance. The storage reference is
// used only for health probing; data access goes through the services.
func NewHandlers(productService product.ServiceInterface, authService auth.ServiceInterface, store storage.Storage) *Handlers {
	return &Handlers{
		productService: productService,
		authService:    authService,
		storage:        store,
		startedAt:      time.Now(),
	}
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = version.GetInfo().Version
	response.Uptime = time.Since(h.startedAt).Round(time.Second).String()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := h.storage.Ping(ctx); err != nil {
		response.Status = models.StatusUnhealthy
		response.AddComponent("storage", models.StatusUnhealthy, err.Error())
		status = http.StatusServiceUnavailable
	} else {
		response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
	}
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	h.writeJSONResponse(w, status, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing left to do but log.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, errorCode))
}

// writeServiceError maps a service-layer error onto the wire. Product and
// auth ServiceErrors carry their own status and code; anything else is a 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	var productErr *product.ServiceError
	if errors.As(err, &productErr) {
		h.writeErrorResponse(w, productErr.StatusCode, productErr.Code, productErr.Message)
		return
	}

	var authErr *auth.ServiceError
	if errors.As(err, &authErr) {
		h.writeErrorResponse(w, authErr.StatusCode, authErr.Code, authErr.Message)
		return
	}

	slog.Error("Unhandled service error", "error", err)
	h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
}

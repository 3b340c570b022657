package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"productapi/internal/models"
)

// Register handles account creation requests
// POST /api/v1/auth/register
// Anonymous callers may create plain user accounts; privileged roles
// require an authenticated admin.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	user, err := h.authService.Register(r.Context(), &req, GetUser(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var response models.UserResponse
	response.FromUser(user)
	h.writeJSONResponse(w, http.StatusCreated, &response)
}

// Login handles credential exchange requests
// POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	response, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// Logout revokes the caller's token
// POST /api/v1/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authorization required")
		return
	}

	if err := h.authService.Logout(r.Context(), authHeader[len(prefix):]); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's own account
// GET /api/v1/auth/me
// Requires authentication
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r)
	if user == nil {
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "Authorization required")
		return
	}

	var response models.UserResponse
	response.FromUser(user)
	h.writeJSONResponse(w, http.StatusOK, &response)
}

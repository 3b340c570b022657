package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"productapi/internal/models"

	"github.com/gorilla/mux"
)

// ListProducts handles catalog listing and search requests
// GET /api/v1/products
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, err.Error())
		return
	}

	response, err := h.productService.Search(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// GetProduct handles single product requests
// GET /api/v1/products/{id}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	p, err := h.productService.Get(r.Context(), vars["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var response models.ProductResponse
	response.FromProduct(p)
	h.writeJSONResponse(w, http.StatusOK, &response)
}

// CreateProduct handles product creation requests
// POST /api/v1/products
// Requires authentication and 'create' permission
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	p, err := h.productService.Create(r.Context(), &req, GetUser(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var response models.ProductResponse
	response.FromProduct(p)
	h.writeJSONResponse(w, http.StatusCreated, &response)
}

// UpdateProduct handles partial product updates
// PUT /api/v1/products/{id}
// Requires authentication and 'update' permission
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req models.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	p, err := h.productService.Update(r.Context(), vars["id"], &req, GetUser(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var response models.ProductResponse
	response.FromProduct(p)
	h.writeJSONResponse(w, http.StatusOK, &response)
}

// DeleteProduct handles product deletion requests
// DELETE /api/v1/products/{id}
// Requires authentication and 'delete' permission
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.productService.Delete(r.Context(), vars["id"]); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LowStockProducts handles restocking report requests
// GET /api/v1/products/low-stock?threshold=N
// Requires authentication and 'read' permission
func (h *Handlers) LowStockProducts(w http.ResponseWriter, r *http.Request) {
	threshold := 5
	if param := r.URL.Query().Get("threshold"); param != "" {
		v, err := strconv.Atoi(param)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid threshold")
			return
		}
		threshold = v
	}

	products, err := h.productService.LowStock(r.Context(), threshold)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses := make([]models.ProductResponse, 0, len(products))
	for _, p := range products {
		var pr models.ProductResponse
		pr.FromProduct(p)
		responses = append(responses, pr)
	}

	h.writeJSONResponse(w, http.StatusOK, responses)
}

// parseSearchRequest builds a ProductSearchRequest from query parameters.
func parseSearchRequest(r *http.Request) (*models.ProductSearchRequest, error) {
	q := r.URL.Query()
	req := &models.ProductSearchRequest{
		Query:     q.Get("q"),
		Category:  q.Get("category"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}

	if param := q.Get("min_price_cents"); param != "" {
		v, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			return nil, err
		}
		req.MinPriceCents = &v
	}
	if param := q.Get("max_price_cents"); param != "" {
		v, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			return nil, err
		}
		req.MaxPriceCents = &v
	}
	if param := q.Get("in_stock"); param != "" {
		v, err := strconv.ParseBool(param)
		if err != nil {
			return nil, err
		}
		req.InStock = &v
	}
	if param := q.Get("page"); param != "" {
		v, err := strconv.Atoi(param)
		if err != nil {
			return nil, err
		}
		req.Page = v
	}
	if param := q.Get("per_page"); param != "" {
		v, err := strconv.Atoi(param)
		if err != nil {
			return nil, err
		}
		req.PerPage = v
	}

	return req, nil
}

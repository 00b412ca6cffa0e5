package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/zaloga/internal/inventory"
)

// ItemsHandler handles item endpoints. Every call acts on the current
// warehouse.
type ItemsHandler struct {
	Svc *inventory.Service
}

type adjustRequest struct {
	Delta int64 `json:"delta"`
}

// List handles GET /api/items.
// Query: search, belowMin=true, sortBy, order=asc|desc.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := inventory.Filter{
		Search: q.Get("search"),
		SortBy: q.Get("sortBy"),
		Desc:   q.Get("order") == "desc",
	}
	if v := q.Get("belowMin"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid belowMin")
			return
		}
		f.BelowMin = b
	}

	items, err := h.Svc.Items(r.Context(), f)
	if err != nil {
		serviceError(w, err, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventory.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.CreateItem(r.Context(), req)
	if err != nil {
		serviceError(w, err, "failed to create item")
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{internal}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Svc.Item(r.Context(), r.PathValue("internal"))
	if err != nil {
		serviceError(w, err, "failed to get item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{internal}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req inventory.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.UpdateItem(r.Context(), r.PathValue("internal"), req)
	if err != nil {
		serviceError(w, err, "failed to update item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{internal}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteItem(r.Context(), r.PathValue("internal")); err != nil {
		serviceError(w, err, "failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Undelete handles POST /api/items/{internal}/undelete.
func (h *ItemsHandler) Undelete(w http.ResponseWriter, r *http.Request) {
	item, err := h.Svc.UndeleteItem(r.Context(), r.PathValue("internal"))
	if err != nil {
		serviceError(w, err, "failed to restore item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Adjust handles POST /api/items/{internal}/adjust.
func (h *ItemsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.AdjustQuantity(r.Context(), r.PathValue("internal"), req.Delta)
	if err != nil {
		serviceError(w, err, "failed to adjust quantity")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

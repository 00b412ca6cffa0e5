package api

import (
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
)

// WarehousesHandler handles warehouse endpoints.
type WarehousesHandler struct {
	Svc *inventory.Service
}

type createWarehouseRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/warehouses.
func (h *WarehousesHandler) List(w http.ResponseWriter, r *http.Request) {
	whs, err := h.Svc.Warehouses(r.Context())
	if err != nil {
		serviceError(w, err, "failed to list warehouses")
		return
	}
	jsonResponse(w, http.StatusOK, whs)
}

// Create handles POST /api/warehouses.
func (h *WarehousesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWarehouseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wh, err := h.Svc.CreateWarehouse(r.Context(), req.Name)
	if err != nil {
		serviceError(w, err, "failed to create warehouse")
		return
	}
	jsonResponse(w, http.StatusCreated, wh)
}

// Delete handles DELETE /api/warehouses/{id}.
func (h *WarehousesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteWarehouse(r.Context(), r.PathValue("id")); err != nil {
		serviceError(w, err, "failed to delete warehouse")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select handles POST /api/warehouses/{id}/select.
func (h *WarehousesHandler) Select(w http.ResponseWriter, r *http.Request) {
	wh, err := h.Svc.SelectWarehouse(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "failed to select warehouse")
		return
	}
	jsonResponse(w, http.StatusOK, wh)
}

package api

import (
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
)

// ConflictsHandler handles conflict endpoints.
type ConflictsHandler struct {
	Svc *inventory.Service
}

type resolveRequest struct {
	// Keep is "mine" or "theirs".
	Keep string `json:"keep"`
}

// List handles GET /api/conflicts.
// Query: warehouse filters by warehouse id, all=true includes resolved ones.
func (h *ConflictsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cs, err := h.Svc.Conflicts(r.Context(), q.Get("warehouse"), q.Get("all") == "true")
	if err != nil {
		serviceError(w, err, "failed to list conflicts")
		return
	}
	jsonResponse(w, http.StatusOK, cs)
}

// Resolve handles POST /api/conflicts/{id}/resolve.
func (h *ConflictsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Keep != "mine" && req.Keep != "theirs" {
		jsonError(w, http.StatusBadRequest, `keep must be "mine" or "theirs"`)
		return
	}

	c, err := h.Svc.ResolveConflict(r.Context(), r.PathValue("id"), req.Keep == "mine")
	if err != nil {
		serviceError(w, err, "failed to resolve conflict")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

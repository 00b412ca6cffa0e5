package api

import (
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
)

// SyncHandler handles sync endpoints.
type SyncHandler struct {
	Svc          *inventory.Service
	Connectivity Connectivity
}

type syncResponse struct {
	Success    bool             `json:"success"`
	Conflicts  []model.Conflict `json:"conflicts"`
	Warehouses int              `json:"warehouses"`
	Operations int              `json:"operations"`
	Attempts   int              `json:"attempts"`
}

type onlineRequest struct {
	Online bool `json:"online"`
}

type onlineResponse struct {
	Online    bool `json:"online"`
	Reconnect bool `json:"reconnect"`
}

// Trigger handles POST /api/sync. It waits for the run to finish.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.TriggerFullSync(r.Context())
	if err != nil {
		serviceError(w, err, "failed to sync")
		return
	}

	resp := syncResponse{
		Success:    res.Success,
		Conflicts:  res.Conflicts,
		Warehouses: res.Warehouses,
		Operations: res.Operations,
		Attempts:   res.Attempts,
	}
	if resp.Conflicts == nil {
		resp.Conflicts = []model.Conflict{}
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.Svc.SyncStatus(r.Context())
	if err != nil {
		serviceError(w, err, "failed to read sync status")
		return
	}
	jsonResponse(w, http.StatusOK, status)
}

// SetOnline handles PUT /api/sync/online.
func (h *SyncHandler) SetOnline(w http.ResponseWriter, r *http.Request) {
	var req onlineRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := onlineResponse{Online: req.Online}
	if h.Connectivity != nil {
		resp.Reconnect = h.Connectivity.SetOnline(r.Context(), req.Online)
	} else {
		h.Svc.SetOnline(r.Context(), req.Online)
	}
	jsonResponse(w, http.StatusOK, resp)
}

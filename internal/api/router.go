package api

import (
	"context"
	"net/http"

	"github.com/erazemk/zaloga/internal/inventory"
)

// Connectivity accepts online/offline changes and reports whether a
// reconnect sync was started.
type Connectivity interface {
	SetOnline(ctx context.Context, online bool) bool
}

// Options wires optional collaborators into the router.
type Options struct {
	// Events serves GET /api/sync/events when set.
	Events *Events
	// Connectivity receives PUT /api/sync/online. Without it the flag goes
	// straight to the service and no reconnect sync is started.
	Connectivity Connectivity
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *inventory.Service, opts Options) http.Handler {
	mux := http.NewServeMux()

	warehouses := &WarehousesHandler{Svc: svc}
	items := &ItemsHandler{Svc: svc}
	syncH := &SyncHandler{Svc: svc, Connectivity: opts.Connectivity}
	conflicts := &ConflictsHandler{Svc: svc}

	mux.HandleFunc("GET /api/warehouses", warehouses.List)
	mux.HandleFunc("POST /api/warehouses", warehouses.Create)
	mux.HandleFunc("DELETE /api/warehouses/{id}", warehouses.Delete)
	mux.HandleFunc("POST /api/warehouses/{id}/select", warehouses.Select)

	mux.HandleFunc("GET /api/items", items.List)
	mux.HandleFunc("POST /api/items", items.Create)
	mux.HandleFunc("GET /api/items/{internal}", items.Get)
	mux.HandleFunc("PUT /api/items/{internal}", items.Update)
	mux.HandleFunc("DELETE /api/items/{internal}", items.Delete)
	mux.HandleFunc("POST /api/items/{internal}/undelete", items.Undelete)
	mux.HandleFunc("POST /api/items/{internal}/adjust", items.Adjust)

	mux.HandleFunc("POST /api/sync", syncH.Trigger)
	mux.HandleFunc("GET /api/sync/status", syncH.Status)
	mux.HandleFunc("PUT /api/sync/online", syncH.SetOnline)
	if opts.Events != nil {
		mux.Handle("GET /api/sync/events", opts.Events.Handler(svc))
	}

	mux.HandleFunc("GET /api/conflicts", conflicts.List)
	mux.HandleFunc("POST /api/conflicts/{id}/resolve", conflicts.Resolve)

	return mux
}

// Package inventory is the caller-facing surface of the replica: warehouse
// selection, validated item edits, listing, sync and conflict resolution.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/erazemk/zaloga/internal/conflict"
	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/oplog"
	"github.com/erazemk/zaloga/internal/reconcile"
	"github.com/erazemk/zaloga/internal/store"
)

// ChangeHook is told about every successful local edit.
type ChangeHook interface {
	LocalChange()
}

// Service serves one session on one device.
type Service struct {
	store     kv.Store
	factory   *oplog.Factory
	applier   *oplog.Applier
	rec       *reconcile.Reconciler
	conflicts *conflict.Registry

	// writeMu keeps validation and apply of one action together.
	writeMu sync.Mutex

	mu      sync.Mutex
	current string
	hook    ChangeHook
}

// New returns a service over the replica s.
func New(s kv.Store, f *oplog.Factory, rec *reconcile.Reconciler) *Service {
	return &Service{
		store:     s,
		factory:   f,
		applier:   oplog.NewApplier(s),
		rec:       rec,
		conflicts: conflict.NewRegistry(s, f),
	}
}

// SetChangeHook registers h for local edits. A nil h removes it.
func (s *Service) SetChangeHook(h ChangeHook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}

func (s *Service) changed() {
	s.mu.Lock()
	h := s.hook
	s.mu.Unlock()
	if h != nil {
		h.LocalChange()
	}
}

// Session returns the identity this service acts as.
func (s *Service) Session() model.Session {
	return s.factory.Session()
}

// Warehouses returns the warehouses that are not soft-deleted.
func (s *Service) Warehouses(ctx context.Context) ([]model.Warehouse, error) {
	whs, err := store.ListWarehouses(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return active(whs), nil
}

func active(whs []model.Warehouse) []model.Warehouse {
	out := []model.Warehouse{}
	for _, wh := range whs {
		if !wh.SoftDeleted {
			out = append(out, wh)
		}
	}
	return out
}

// CreateWarehouse adds a warehouse owned by the session user. It becomes
// the current warehouse if none is selected.
func (s *Service) CreateWarehouse(ctx context.Context, name string) (*model.Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("warehouse name is required")
	}

	now := s.factory.Now()
	wh := model.Warehouse{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   s.Session().UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.PutWarehouse(ctx, s.store, wh); err != nil {
		return nil, fmt.Errorf("creating warehouse: %w", err)
	}

	s.mu.Lock()
	if s.current == "" {
		s.current = wh.ID
	}
	s.mu.Unlock()

	s.changed()
	return &wh, nil
}

// DeleteWarehouse soft-deletes a warehouse. If it was current, the first
// remaining warehouse is selected instead.
func (s *Service) DeleteWarehouse(ctx context.Context, id string) error {
	wh, err := store.GetWarehouse(ctx, s.store, id)
	if err != nil {
		return err
	}
	if wh == nil || wh.SoftDeleted {
		return fmt.Errorf("warehouse %s: %w", id, ErrNotFound)
	}

	wh.SoftDeleted = true
	wh.UpdatedAt = s.factory.Now()
	if err := store.PutWarehouse(ctx, s.store, *wh); err != nil {
		return fmt.Errorf("deleting warehouse: %w", err)
	}

	s.mu.Lock()
	if s.current == id {
		s.current = ""
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// SelectWarehouse makes id the current warehouse.
func (s *Service) SelectWarehouse(ctx context.Context, id string) (*model.Warehouse, error) {
	wh, err := store.GetWarehouse(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if wh == nil || wh.SoftDeleted {
		return nil, fmt.Errorf("warehouse %s: %w", id, ErrNotFound)
	}

	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
	return wh, nil
}

// CurrentWarehouse returns the selected warehouse. When none is selected,
// or the selected one was deleted by a sync, the first active warehouse is
// selected. It returns nil if there are no warehouses.
func (s *Service) CurrentWarehouse(ctx context.Context) (*model.Warehouse, error) {
	whs, err := s.Warehouses(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range whs {
		if whs[i].ID == s.current {
			return &whs[i], nil
		}
	}
	if len(whs) == 0 {
		s.current = ""
		return nil, nil
	}
	s.current = whs[0].ID
	return &whs[0], nil
}

func (s *Service) currentID(ctx context.Context) (string, error) {
	wh, err := s.CurrentWarehouse(ctx)
	if err != nil {
		return "", err
	}
	if wh == nil {
		return "", invalid("no warehouse selected")
	}
	return wh.ID, nil
}

// TriggerFullSync reconciles every warehouse with the remote document.
func (s *Service) TriggerFullSync(ctx context.Context) (*reconcile.Result, error) {
	return s.rec.ReconcileAll(ctx)
}

// RefreshWarehouses pulls warehouse metadata from the remote document
// without writing it. Offline it returns the local list.
func (s *Service) RefreshWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	if s.rec.Online() {
		if _, err := s.rec.LoadWarehouses(ctx); err != nil {
			return nil, err
		}
	}
	return s.Warehouses(ctx)
}

// SetOnline records connectivity for sync.
func (s *Service) SetOnline(ctx context.Context, online bool) {
	s.rec.SetOnline(ctx, online)
}

// SyncStatus returns the reconciler's status.
func (s *Service) SyncStatus(ctx context.Context) (model.SyncStatus, error) {
	return s.rec.Status(ctx)
}

// Conflicts lists the conflicts of whID, or of every warehouse when whID
// is empty.
func (s *Service) Conflicts(ctx context.Context, whID string, includeResolved bool) ([]model.Conflict, error) {
	if whID == "" {
		return s.conflicts.All(ctx, includeResolved)
	}
	return s.conflicts.List(ctx, whID, includeResolved)
}

// ResolveConflict resolves a conflict as the session user.
func (s *Service) ResolveConflict(ctx context.Context, id string, keepMine bool) (*model.Conflict, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c, err := s.conflicts.Resolve(ctx, id, keepMine, s.Session().UserID)
	switch {
	case errors.Is(err, conflict.ErrNotFound):
		return nil, fmt.Errorf("conflict %s: %w", id, ErrNotFound)
	case errors.Is(err, conflict.ErrAlreadyResolved):
		return nil, invalid("conflict is already resolved")
	case err != nil:
		return nil, err
	}
	s.changed()
	return c, nil
}

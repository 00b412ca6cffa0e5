package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
)

// GetConflicts returns every recorded conflict of a warehouse.
func GetConflicts(ctx context.Context, r kv.Reader, whID string) ([]model.Conflict, error) {
	var cs []model.Conflict
	if _, err := getJSON(ctx, r, ConflictsKey(whID), &cs); err != nil {
		return nil, fmt.Errorf("getting conflicts: %w", err)
	}
	return cs, nil
}

// SaveConflicts replaces the conflict list of a warehouse.
func SaveConflicts(ctx context.Context, w kv.Writer, whID string, cs []model.Conflict) error {
	if cs == nil {
		cs = []model.Conflict{}
	}
	if err := putJSON(ctx, w, ConflictsKey(whID), cs); err != nil {
		return fmt.Errorf("saving conflicts: %w", err)
	}
	return nil
}

// ConflictWarehouses returns the ids of warehouses that have a conflict list.
func ConflictWarehouses(ctx context.Context, r kv.Reader) ([]string, error) {
	keys, err := r.Keys(ctx, conflictPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing conflict lists: %w", err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, conflictPrefix)
	}
	return ids, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
)

// ListWarehouses returns every known warehouse, soft-deleted ones included.
func ListWarehouses(ctx context.Context, r kv.Reader) ([]model.Warehouse, error) {
	var whs []model.Warehouse
	if _, err := getJSON(ctx, r, keyWarehouses, &whs); err != nil {
		return nil, fmt.Errorf("listing warehouses: %w", err)
	}
	return whs, nil
}

// GetWarehouse returns a warehouse by id, or nil if it is unknown.
func GetWarehouse(ctx context.Context, r kv.Reader, id string) (*model.Warehouse, error) {
	whs, err := ListWarehouses(ctx, r)
	if err != nil {
		return nil, err
	}
	for i := range whs {
		if whs[i].ID == id {
			return &whs[i], nil
		}
	}
	return nil, nil
}

// SaveWarehouses replaces the stored warehouse list.
func SaveWarehouses(ctx context.Context, w kv.Writer, whs []model.Warehouse) error {
	if whs == nil {
		whs = []model.Warehouse{}
	}
	if err := putJSON(ctx, w, keyWarehouses, whs); err != nil {
		return fmt.Errorf("saving warehouses: %w", err)
	}
	return nil
}

// PutWarehouse inserts or replaces one warehouse by id.
func PutWarehouse(ctx context.Context, w kv.Writer, wh model.Warehouse) error {
	whs, err := ListWarehouses(ctx, w)
	if err != nil {
		return err
	}
	replaced := false
	for i := range whs {
		if whs[i].ID == wh.ID {
			whs[i] = wh
			replaced = true
			break
		}
	}
	if !replaced {
		whs = append(whs, wh)
	}
	return SaveWarehouses(ctx, w, whs)
}

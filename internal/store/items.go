package store

import (
	"context"
	"fmt"

	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
)

// GetItems returns the projection of a warehouse, tombstones included.
func GetItems(ctx context.Context, r kv.Reader, whID string) ([]model.Item, error) {
	var items []model.Item
	if _, err := getJSON(ctx, r, ItemsKey(whID), &items); err != nil {
		return nil, fmt.Errorf("getting items: %w", err)
	}
	return items, nil
}

// GetItem returns one projected item by internal id, or nil if absent.
func GetItem(ctx context.Context, r kv.Reader, whID, internal string) (*model.Item, error) {
	items, err := GetItems(ctx, r, whID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Internal == internal {
			return &items[i], nil
		}
	}
	return nil, nil
}

// SaveItems replaces the projection of a warehouse.
func SaveItems(ctx context.Context, w kv.Writer, whID string, items []model.Item) error {
	if items == nil {
		items = []model.Item{}
	}
	if err := putJSON(ctx, w, ItemsKey(whID), items); err != nil {
		return fmt.Errorf("saving items: %w", err)
	}
	return nil
}

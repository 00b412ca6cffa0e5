package store

import (
	"context"
	"fmt"

	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
)

// GetOps returns the operation log of a warehouse in append order.
func GetOps(ctx context.Context, r kv.Reader, whID string) ([]model.Op, error) {
	var ops []model.Op
	if _, err := getJSON(ctx, r, OpsKey(whID), &ops); err != nil {
		return nil, fmt.Errorf("getting ops: %w", err)
	}
	return ops, nil
}

// SaveOps replaces the operation log of a warehouse.
func SaveOps(ctx context.Context, w kv.Writer, whID string, ops []model.Op) error {
	if ops == nil {
		ops = []model.Op{}
	}
	if err := putJSON(ctx, w, OpsKey(whID), ops); err != nil {
		return fmt.Errorf("saving ops: %w", err)
	}
	return nil
}

// AppendOp adds op to the end of its warehouse's log. It does not dedupe.
func AppendOp(ctx context.Context, w kv.Writer, op model.Op) error {
	ops, err := GetOps(ctx, w, op.WhID)
	if err != nil {
		return err
	}
	return SaveOps(ctx, w, op.WhID, append(ops, op))
}

// PendingOps counts unsynced operations across all warehouses.
func PendingOps(ctx context.Context, r kv.Reader) (int, error) {
	keys, err := r.Keys(ctx, opsPrefix)
	if err != nil {
		return 0, fmt.Errorf("listing op logs: %w", err)
	}

	n := 0
	for _, k := range keys {
		var ops []model.Op
		if _, err := getJSON(ctx, r, k, &ops); err != nil {
			return 0, fmt.Errorf("counting pending ops: %w", err)
		}
		for _, op := range ops {
			if !op.Synced {
				n++
			}
		}
	}
	return n, nil
}

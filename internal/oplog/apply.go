package oplog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// Applier applies freshly created operations to the local replica.
type Applier struct {
	store kv.Store
}

// NewApplier returns an applier writing to s.
func NewApplier(s kv.Store) *Applier {
	return &Applier{store: s}
}

// Apply applies ops in order inside one write transaction. Either all of
// them reach the projection and the log, or none do.
func (a *Applier) Apply(ctx context.Context, ops ...model.Op) error {
	err := a.store.Update(ctx, func(w kv.Writer) error {
		for _, op := range ops {
			if err := ApplyTx(ctx, w, op); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("applying operations: %w", err)
	}
	return nil
}

// ApplyTx applies one operation within an open transaction: it updates the
// item projection and appends op to the log. An operation other than
// createItem that targets a missing item is logged and dropped.
func ApplyTx(ctx context.Context, w kv.Writer, op model.Op) error {
	items, err := store.GetItems(ctx, w, op.WhID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range items {
		if items[i].Internal == op.Internal {
			idx = i
			break
		}
	}
	if idx < 0 {
		if op.Type != model.OpCreateItem {
			slog.Warn("operation targets missing item", "op", op.OpID, "type", op.Type, "wh", op.WhID, "internal", op.Internal)
			return nil
		}
		items = append(items, model.Item{WhID: op.WhID, Internal: op.Internal})
		idx = len(items) - 1
	}

	items[idx] = ApplyToItem(items[idx], op)

	if err := store.SaveItems(ctx, w, op.WhID, items); err != nil {
		return err
	}
	return store.AppendOp(ctx, w, op)
}

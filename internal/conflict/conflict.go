// Package conflict tracks detected concurrent edits and their resolution.
package conflict

import (
	"context"
	"errors"
	"fmt"

	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/oplog"
	"github.com/erazemk/zaloga/internal/store"
)

var (
	// ErrNotFound means no conflict has the given id.
	ErrNotFound = errors.New("conflict not found")
	// ErrAlreadyResolved means the conflict was resolved before.
	ErrAlreadyResolved = errors.New("conflict already resolved")
)

// Registry lists and resolves conflicts in the local replica.
type Registry struct {
	store   kv.Store
	factory *oplog.Factory
}

// NewRegistry returns a registry that stamps resolution ops with f.
func NewRegistry(s kv.Store, f *oplog.Factory) *Registry {
	return &Registry{store: s, factory: f}
}

// List returns the conflicts of one warehouse.
func (r *Registry) List(ctx context.Context, whID string, includeResolved bool) ([]model.Conflict, error) {
	cs, err := store.GetConflicts(ctx, r.store, whID)
	if err != nil {
		return nil, err
	}
	return filter(cs, includeResolved), nil
}

// All returns the conflicts of every warehouse.
func (r *Registry) All(ctx context.Context, includeResolved bool) ([]model.Conflict, error) {
	whIDs, err := store.ConflictWarehouses(ctx, r.store)
	if err != nil {
		return nil, err
	}
	out := []model.Conflict{}
	for _, id := range whIDs {
		cs, err := r.List(ctx, id, includeResolved)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}

func filter(cs []model.Conflict, includeResolved bool) []model.Conflict {
	out := make([]model.Conflict, 0, len(cs))
	for _, c := range cs {
		if includeResolved || !c.Resolved {
			out = append(out, c)
		}
	}
	return out
}

// Resolve marks a conflict resolved by userID. Keeping "mine" leaves the
// log alone. Choosing "theirs" records one new setField operation carrying
// their value, applied in the same transaction. The original operations are
// never modified.
func (r *Registry) Resolve(ctx context.Context, conflictID string, keepMine bool, userID string) (*model.Conflict, error) {
	if userID == "" {
		userID = r.factory.Session().UserID
	}

	var resolved model.Conflict
	err := r.store.Update(ctx, func(w kv.Writer) error {
		whIDs, err := store.ConflictWarehouses(ctx, w)
		if err != nil {
			return err
		}
		for _, whID := range whIDs {
			cs, err := store.GetConflicts(ctx, w, whID)
			if err != nil {
				return err
			}
			for i := range cs {
				if cs[i].ID != conflictID {
					continue
				}
				if cs[i].Resolved {
					return ErrAlreadyResolved
				}

				cs[i].Resolved = true
				cs[i].ResolvedBy = userID
				cs[i].ResolvedAt = r.factory.Now()
				if err := store.SaveConflicts(ctx, w, whID, cs); err != nil {
					return err
				}
				resolved = cs[i]

				if keepMine {
					return nil
				}
				// The resolution must replay after both tied operations.
				r.factory.Witness(cs[i].BaseTS)
				op := r.factory.NewOp(cs[i].WhID, cs[i].Internal, model.OpSetField, oplog.OpOptions{
					Field:  cs[i].Field,
					Value:  cs[i].Theirs,
					UserID: userID,
				})
				return oplog.ApplyTx(ctx, w, op)
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return nil, fmt.Errorf("resolving conflict %s: %w", conflictID, err)
	}
	return &resolved, nil
}

package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// ItemInput carries the fields of a create or update. Nil fields are left
// alone.
type ItemInput struct {
	Internal string  `json:"internal"`
	Custom   *string `json:"custom,omitempty"`
	UPC      *string `json:"upc,omitempty"`
	Qty      *int64  `json:"qty,omitempty"`
	Min      *int64  `json:"min,omitempty"`
	Max      *int64  `json:"max,omitempty"`
	Bin      *string `json:"bin,omitempty"`
}

// Item returns an item of the current warehouse, deleted or not.
func (s *Service) Item(ctx context.Context, internal string) (*model.Item, error) {
	whID, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	item, err := store.GetItem(ctx, s.store, whID, internal)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", internal, ErrNotFound)
	}
	return item, nil
}

// CreateItem creates an item in the current warehouse together with every
// provided field. An id that only belongs to a deleted item is reused.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (*model.Item, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	whID, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	in.Internal = strings.TrimSpace(in.Internal)
	if in.Internal == "" {
		return nil, invalid("internal id is required")
	}

	items, err := store.GetItems(ctx, s.store, whID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Internal == in.Internal && !it.Deleted {
			return nil, invalid("an item with this internal id already exists")
		}
	}

	next := model.Item{WhID: whID, Internal: in.Internal}
	if err := patch(&next, &in); err != nil {
		return nil, err
	}
	if err := validate(next, items); err != nil {
		return nil, err
	}

	ops := []model.Op{s.factory.CreateItem(whID, in.Internal)}
	ops = append(ops, s.fieldOps(whID, model.Item{}, next, in)...)
	return s.apply(ctx, whID, in.Internal, ops)
}

// UpdateItem sets the given fields of an existing item. Only fields whose
// value changes produce operations.
func (s *Service) UpdateItem(ctx context.Context, internal string, in ItemInput) (*model.Item, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	whID, items, cur, err := s.lookup(ctx, internal)
	if err != nil {
		return nil, err
	}

	next := *cur
	if err := patch(&next, &in); err != nil {
		return nil, err
	}
	if err := validate(next, items); err != nil {
		return nil, err
	}

	ops := s.fieldOps(whID, *cur, next, in)
	if len(ops) == 0 {
		return cur, nil
	}
	return s.apply(ctx, whID, internal, ops)
}

// DeleteItem marks an item deleted.
func (s *Service) DeleteItem(ctx context.Context, internal string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	whID, _, cur, err := s.lookup(ctx, internal)
	if err != nil {
		return err
	}
	if cur.Deleted {
		return invalid("item is already deleted")
	}
	_, err = s.apply(ctx, whID, internal, []model.Op{s.factory.DeleteItem(whID, internal)})
	return err
}

// UndeleteItem restores a deleted item with its last field values.
func (s *Service) UndeleteItem(ctx context.Context, internal string) (*model.Item, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	whID, items, cur, err := s.lookup(ctx, internal)
	if err != nil {
		return nil, err
	}
	if !cur.Deleted {
		return nil, invalid("item is not deleted")
	}
	restored := *cur
	restored.Deleted = false
	if err := validate(restored, items); err != nil {
		return nil, err
	}
	return s.apply(ctx, whID, internal, []model.Op{s.factory.UndeleteItem(whID, internal)})
}

// AdjustQuantity adds delta to an item's quantity. The result never goes
// below zero.
func (s *Service) AdjustQuantity(ctx context.Context, internal string, delta int64) (*model.Item, error) {
	if delta == 0 {
		return nil, invalid("delta must not be zero")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	whID, _, cur, err := s.lookup(ctx, internal)
	if err != nil {
		return nil, err
	}
	if cur.Deleted {
		return nil, fmt.Errorf("item %s: %w", internal, ErrNotFound)
	}
	return s.apply(ctx, whID, internal, []model.Op{s.factory.AdjustQty(whID, internal, delta)})
}

// lookup returns the current warehouse, its items and the named item.
func (s *Service) lookup(ctx context.Context, internal string) (string, []model.Item, *model.Item, error) {
	whID, err := s.currentID(ctx)
	if err != nil {
		return "", nil, nil, err
	}
	items, err := store.GetItems(ctx, s.store, whID)
	if err != nil {
		return "", nil, nil, err
	}
	for i := range items {
		if items[i].Internal == internal {
			return whID, items, &items[i], nil
		}
	}
	return "", nil, nil, fmt.Errorf("item %s: %w", internal, ErrNotFound)
}

func (s *Service) apply(ctx context.Context, whID, internal string, ops []model.Op) (*model.Item, error) {
	if err := s.applier.Apply(ctx, ops...); err != nil {
		return nil, err
	}
	s.changed()

	item, err := store.GetItem(ctx, s.store, whID, internal)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s vanished after apply", internal)
	}
	return item, nil
}

// patch copies the provided fields of in onto item, normalizing the UPC.
func patch(item *model.Item, in *ItemInput) error {
	if in.Custom != nil {
		item.Custom = *in.Custom
	}
	if in.UPC != nil {
		upc := *in.UPC
		if upc != "" {
			norm, ok := NormalizeUPC(upc)
			if !ok {
				return invalid("upc is invalid")
			}
			upc = norm
		}
		in.UPC = &upc
		item.UPC = upc
	}
	if in.Qty != nil {
		item.Qty = *in.Qty
	}
	if in.Min != nil {
		item.Min = model.Int64(*in.Min)
	}
	if in.Max != nil {
		item.Max = model.Int64(*in.Max)
	}
	if in.Bin != nil {
		item.Bin = *in.Bin
	}
	return nil
}

// validate checks item as it would look after the change, against the
// other items of its warehouse.
func validate(item model.Item, items []model.Item) error {
	var problems []string
	if item.Qty < 0 {
		problems = append(problems, "quantity must not be negative")
	}
	if item.Min != nil && *item.Min < 0 {
		problems = append(problems, "min must not be negative")
	}
	if item.Max != nil && *item.Max < 0 {
		problems = append(problems, "max must not be negative")
	}
	if item.Min != nil && item.Max != nil && *item.Min > *item.Max {
		problems = append(problems, "min must not exceed max")
	}
	if item.UPC != "" {
		if !ValidUPC(item.UPC) {
			problems = append(problems, "upc is invalid")
		} else if duplicateUPC(item, items) {
			problems = append(problems, "upc is already used by another item")
		}
	}
	if len(problems) > 0 {
		return invalid(problems...)
	}
	return nil
}

func duplicateUPC(item model.Item, items []model.Item) bool {
	for _, it := range items {
		if it.Internal != item.Internal && !it.Deleted && it.UPC == item.UPC {
			return true
		}
	}
	return false
}

// fieldOps builds one setField per provided field that differs between
// cur and next, in a fixed field order.
func (s *Service) fieldOps(whID string, cur, next model.Item, in ItemInput) []model.Op {
	var ops []model.Op
	set := func(f model.Field, v model.Value) {
		ops = append(ops, s.factory.SetField(whID, next.Internal, f, v))
	}
	if in.Custom != nil && next.Custom != cur.Custom {
		set(model.FieldCustom, model.StringValue(next.Custom))
	}
	if in.UPC != nil && next.UPC != cur.UPC {
		set(model.FieldUPC, model.StringValue(next.UPC))
	}
	if in.Min != nil && !sameInt(cur.Min, next.Min) {
		set(model.FieldMin, model.NumberValue(*next.Min))
	}
	if in.Max != nil && !sameInt(cur.Max, next.Max) {
		set(model.FieldMax, model.NumberValue(*next.Max))
	}
	if in.Bin != nil && next.Bin != cur.Bin {
		set(model.FieldBin, model.StringValue(next.Bin))
	}
	if in.Qty != nil && next.Qty != cur.Qty {
		set(model.FieldQty, model.NumberValue(next.Qty))
	}
	return ops
}

func sameInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

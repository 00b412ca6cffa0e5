package oplog

import (
	"log/slog"

	"github.com/erazemk/zaloga/internal/model"
)

// Rebuild replays ops in the given order onto an empty projection. Items
// come into existence only through createItem. The result is in
// first-creation order and includes tombstoned items.
//
// When setField operations from different sites write different values to
// the same field at the same millisecond, the first in order holds. The
// later ones are conflicts and only take effect through a resolution.
func Rebuild(ops []model.Op) []model.Item {
	type key struct{ wh, internal string }
	type fieldKey struct {
		key
		field model.Field
	}

	index := make(map[key]int)
	held := make(map[fieldKey]model.Op)
	var items []model.Item
	for _, op := range ops {
		if op.Type == model.OpSetField {
			fk := fieldKey{key{op.WhID, op.Internal}, op.Field}
			first, ok := held[fk]
			if ok && Concurrent(first, op) {
				slog.Debug("replay held concurrent write", "op", op.OpID, "held", first.OpID, "field", op.Field)
				continue
			}
			if !ok || first.TS != op.TS {
				held[fk] = op
			}
		}

		k := key{op.WhID, op.Internal}
		i, ok := index[k]
		if !ok {
			if op.Type != model.OpCreateItem {
				slog.Debug("replay skipped operation on missing item", "op", op.OpID, "type", op.Type, "internal", op.Internal)
				continue
			}
			i = len(items)
			index[k] = i
			items = append(items, model.Item{})
		}
		items[i] = ApplyToItem(items[i], op)
	}
	return items
}

// Concurrent reports whether later, ordered after first, is a competing
// write to the same field: same millisecond, another site, another value.
func Concurrent(first, later model.Op) bool {
	return later.TS == first.TS && later.SiteID != first.SiteID && later.Value != first.Value
}

// Visible drops tombstoned items.
func Visible(items []model.Item) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if !it.Deleted {
			out = append(out, it)
		}
	}
	return out
}

package oplog

import (
	"log/slog"

	"github.com/erazemk/zaloga/internal/model"
)

// ApplyToItem returns item with op applied and its last-writer metadata
// stamped from op. It is total: anomalies are logged and leave the item's
// fields unchanged.
func ApplyToItem(item model.Item, op model.Op) model.Item {
	switch op.Type {
	case model.OpCreateItem:
		item = model.Item{WhID: op.WhID, Internal: op.Internal}
	case model.OpAdjustQty:
		item.Qty = max(0, item.Qty+op.Delta)
	case model.OpSetField:
		item = setField(item, op)
	case model.OpDeleteItem:
		item.Deleted = true
	case model.OpUndeleteItem:
		item.Deleted = false
	default:
		slog.Warn("skipping operation of unknown type", "op", op.OpID, "type", op.Type)
		return item
	}

	item.LastTS = op.TS
	item.LastSiteID = op.SiteID
	return item
}

func setField(item model.Item, op model.Op) model.Item {
	switch op.Field {
	case model.FieldCustom:
		item.Custom = op.Value.String()
	case model.FieldUPC:
		item.UPC = op.Value.String()
	case model.FieldBin:
		item.Bin = op.Value.String()
	case model.FieldQty:
		if n, ok := op.Value.Int(); ok {
			item.Qty = n
		} else {
			slog.Warn("ignoring non-numeric quantity", "op", op.OpID, "value", op.Value.String())
		}
	case model.FieldMin:
		item.Min = threshold(op)
	case model.FieldMax:
		item.Max = threshold(op)
	default:
		slog.Warn("ignoring unknown field", "op", op.OpID, "field", op.Field)
	}
	return item
}

// threshold converts a min/max value. An unset value clears the threshold.
func threshold(op model.Op) *int64 {
	if op.Value.IsZero() {
		return nil
	}
	n, ok := op.Value.Int()
	if !ok {
		slog.Warn("ignoring non-numeric threshold", "op", op.OpID, "field", op.Field, "value", op.Value.String())
		return nil
	}
	return model.Int64(n)
}

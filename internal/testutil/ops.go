package testutil

import "github.com/erazemk/zaloga/internal/model"

// Create returns a createItem op with explicit identity and timestamp.
func Create(id, site, wh, internal string, ts int64) model.Op {
	return model.Op{OpID: id, SiteID: site, WhID: wh, Internal: internal, Type: model.OpCreateItem, TS: ts}
}

// Adjust returns an adjustQty op.
func Adjust(id, site, wh, internal string, ts, delta int64) model.Op {
	return model.Op{OpID: id, SiteID: site, WhID: wh, Internal: internal, Type: model.OpAdjustQty, Field: model.FieldQty, Delta: delta, TS: ts}
}

// Set returns a setField op.
func Set(id, site, wh, internal string, ts int64, field model.Field, v model.Value) model.Op {
	return model.Op{OpID: id, SiteID: site, WhID: wh, Internal: internal, Type: model.OpSetField, Field: field, Value: v, TS: ts}
}

// Delete returns a deleteItem op.
func Delete(id, site, wh, internal string, ts int64) model.Op {
	return model.Op{OpID: id, SiteID: site, WhID: wh, Internal: internal, Type: model.OpDeleteItem, TS: ts}
}

// Undelete returns an undeleteItem op.
func Undelete(id, site, wh, internal string, ts int64) model.Op {
	return model.Op{OpID: id, SiteID: site, WhID: wh, Internal: internal, Type: model.OpUndeleteItem, TS: ts}
}

// Package oplog creates operations, applies them to the local replica and
// replays them into item projections.
package oplog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/zaloga/internal/model"
)

// OpOptions carries the type-specific payload of a new operation.
type OpOptions struct {
	Field model.Field
	Value model.Value
	Delta int64
	// UserID overrides the session user, for example when someone else
	// resolves a conflict on this device.
	UserID string
}

// Factory stamps new operations with the session identity, a fresh id and
// a timestamp. Timestamps from one factory strictly increase, so two
// operations from the same site never share a millisecond.
type Factory struct {
	session model.Session
	now     func() time.Time

	mu   sync.Mutex
	last int64
}

// NewFactory returns a factory for sess. A nil clock means time.Now.
func NewFactory(sess model.Session, now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{session: sess, now: now}
}

// Session returns the identity the factory stamps.
func (f *Factory) Session() model.Session { return f.session }

// Now returns the clock's current time in epoch milliseconds.
func (f *Factory) Now() int64 { return f.now().UnixMilli() }

func (f *Factory) nextTS() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	ts := f.now().UnixMilli()
	if ts <= f.last {
		ts = f.last + 1
	}
	f.last = ts
	return ts
}

// Witness makes every later operation from f sort strictly after ts.
func (f *Factory) Witness(ts int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ts > f.last {
		f.last = ts
	}
}

// NewOp builds an operation. It performs no business validation.
func (f *Factory) NewOp(whID, internal string, typ model.OpType, opts OpOptions) model.Op {
	userID := opts.UserID
	if userID == "" {
		userID = f.session.UserID
	}
	return model.Op{
		OpID:     uuid.NewString(),
		SiteID:   f.session.SiteID,
		WhID:     whID,
		Internal: internal,
		Type:     typ,
		Field:    opts.Field,
		Value:    opts.Value,
		Delta:    opts.Delta,
		TS:       f.nextTS(),
		UserID:   userID,
	}
}

// CreateItem builds a createItem operation.
func (f *Factory) CreateItem(whID, internal string) model.Op {
	return f.NewOp(whID, internal, model.OpCreateItem, OpOptions{})
}

// AdjustQty builds an adjustQty operation.
func (f *Factory) AdjustQty(whID, internal string, delta int64) model.Op {
	return f.NewOp(whID, internal, model.OpAdjustQty, OpOptions{Field: model.FieldQty, Delta: delta})
}

// SetField builds a setField operation.
func (f *Factory) SetField(whID, internal string, field model.Field, value model.Value) model.Op {
	return f.NewOp(whID, internal, model.OpSetField, OpOptions{Field: field, Value: value})
}

// DeleteItem builds a deleteItem operation.
func (f *Factory) DeleteItem(whID, internal string) model.Op {
	return f.NewOp(whID, internal, model.OpDeleteItem, OpOptions{})
}

// UndeleteItem builds an undeleteItem operation.
func (f *Factory) UndeleteItem(whID, internal string) model.Op {
	return f.NewOp(whID, internal, model.OpUndeleteItem, OpOptions{})
}

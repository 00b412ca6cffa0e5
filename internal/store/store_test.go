package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
)

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	return kv.NewSQLite(db.NewTestDB(t))
}

func TestSiteIDStable(t *testing.T) {
	path := db.TestDBPath(t)
	ctx := context.Background()

	first, err := GetSiteID(ctx, kv.NewSQLite(db.OpenTestFile(t, path)))
	if err != nil {
		t.Fatalf("GetSiteID: %v", err)
	}
	if first == "" {
		t.Fatal("empty site id")
	}

	// Reopen to simulate a restart.
	second, err := GetSiteID(ctx, kv.NewSQLite(db.OpenTestFile(t, path)))
	if err != nil {
		t.Fatalf("GetSiteID after reopen: %v", err)
	}
	if first != second {
		t.Errorf("site id changed across restart: %q -> %q", first, second)
	}
}

func TestLoadSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1000)

	sess, err := LoadSession(ctx, s, "", now)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if sess.SiteID == "" || sess.UserID != "" {
		t.Errorf("unexpected session %+v", sess)
	}

	sess, _ = LoadSession(ctx, s, "ana", now)
	if sess.UserID != "ana" {
		t.Errorf("expected user ana, got %q", sess.UserID)
	}

	// Stored user is reused when none is given.
	sess, _ = LoadSession(ctx, s, "", now)
	if sess.UserID != "ana" {
		t.Errorf("expected stored user ana, got %q", sess.UserID)
	}
}

func TestAppendOpAndPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	AppendOp(ctx, s, model.Op{OpID: "1", WhID: "w1", Type: model.OpCreateItem, TS: 1})
	AppendOp(ctx, s, model.Op{OpID: "2", WhID: "w1", Type: model.OpAdjustQty, TS: 2, Synced: true})
	AppendOp(ctx, s, model.Op{OpID: "3", WhID: "w2", Type: model.OpCreateItem, TS: 3})

	ops, err := GetOps(ctx, s, "w1")
	if err != nil {
		t.Fatalf("GetOps: %v", err)
	}
	if len(ops) != 2 || ops[0].OpID != "1" || ops[1].OpID != "2" {
		t.Errorf("unexpected ops %+v", ops)
	}

	n, err := PendingOps(ctx, s)
	if err != nil {
		t.Fatalf("PendingOps: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pending ops, got %d", n)
	}
}

func TestGetItemMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	SaveItems(ctx, s, "w1", []model.Item{{WhID: "w1", Internal: "SKU1", Qty: 3}})

	got, err := GetItem(ctx, s, "w1", "SKU2")
	if err != nil || got != nil {
		t.Errorf("expected nil, nil for missing item, got %+v, %v", got, err)
	}
	got, _ = GetItem(ctx, s, "w1", "SKU1")
	if got == nil || got.Qty != 3 {
		t.Errorf("expected SKU1 qty 3, got %+v", got)
	}
}

func TestPutWarehouse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	PutWarehouse(ctx, s, model.Warehouse{ID: "w1", Name: "Main", UpdatedAt: 1})
	PutWarehouse(ctx, s, model.Warehouse{ID: "w2", Name: "Annex", UpdatedAt: 1})
	PutWarehouse(ctx, s, model.Warehouse{ID: "w1", Name: "Main Hall", UpdatedAt: 2})

	whs, _ := ListWarehouses(ctx, s)
	if len(whs) != 2 {
		t.Fatalf("expected 2 warehouses, got %d", len(whs))
	}
	if whs[0].Name != "Main Hall" {
		t.Errorf("expected replaced name, got %q", whs[0].Name)
	}
}

func TestClearAllKeepsSiteID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	site, _ := GetSiteID(ctx, s)
	SaveItems(ctx, s, "w1", []model.Item{{WhID: "w1", Internal: "SKU1"}})
	SaveLastSync(ctx, s, 42)

	if err := ClearAll(ctx, s); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	items, _ := GetItems(ctx, s, "w1")
	if len(items) != 0 {
		t.Errorf("expected items cleared, got %d", len(items))
	}
	last, _ := GetLastSync(ctx, s)
	if last != 0 {
		t.Errorf("expected last sync cleared, got %d", last)
	}
	again, _ := GetSiteID(ctx, s)
	if again != site {
		t.Errorf("site id changed after ClearAll")
	}
}

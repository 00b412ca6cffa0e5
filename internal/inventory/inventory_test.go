package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/oplog"
	"github.com/erazemk/zaloga/internal/reconcile"
	"github.com/erazemk/zaloga/internal/remote"
	"github.com/erazemk/zaloga/internal/store"
	"github.com/erazemk/zaloga/internal/testutil"
)

type countingHook struct{ n int }

func (h *countingHook) LocalChange() { h.n++ }

func newService(t *testing.T, siteID string, r remote.Store, clock *testutil.Clock) (*Service, kv.Store) {
	t.Helper()
	s := kv.NewSQLite(db.NewTestDB(t))
	sess := model.Session{SiteID: siteID, UserID: "user-" + siteID}
	rec := reconcile.New(s, r, sess, reconcile.Options{
		Now:     clock.Now,
		Backoff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
	return New(s, oplog.NewFactory(sess, clock.Now), rec), s
}

func withWarehouse(t *testing.T) (*Service, kv.Store, *model.Warehouse) {
	t.Helper()
	svc, s := newService(t, "site-a", remote.NewMemory(), testutil.NewClock(1_000))
	wh, err := svc.CreateWarehouse(context.Background(), "Main")
	require.NoError(t, err)
	return svc, s, wh
}

func str(s string) *string { return &s }

func TestCreateWarehouseSelectsFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, "site-a", remote.NewMemory(), testutil.NewClock(1_000))

	cur, err := svc.CurrentWarehouse(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	a, err := svc.CreateWarehouse(ctx, "  Main ")
	require.NoError(t, err)
	assert.Equal(t, "Main", a.Name)
	assert.Equal(t, "user-site-a", a.OwnerID)

	b, err := svc.CreateWarehouse(ctx, "Annex")
	require.NoError(t, err)

	cur, err = svc.CurrentWarehouse(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, cur.ID)

	_, err = svc.SelectWarehouse(ctx, b.ID)
	require.NoError(t, err)
	cur, _ = svc.CurrentWarehouse(ctx)
	assert.Equal(t, b.ID, cur.ID)

	_, err = svc.CreateWarehouse(ctx, " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteWarehouseReselects(t *testing.T) {
	ctx := context.Background()
	svc, s, a := withWarehouse(t)
	b, err := svc.CreateWarehouse(ctx, "Annex")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWarehouse(ctx, a.ID))

	cur, err := svc.CurrentWarehouse(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, cur.ID)

	whs, err := svc.Warehouses(ctx)
	require.NoError(t, err)
	assert.Len(t, whs, 1)

	stored, err := store.GetWarehouse(ctx, s, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.SoftDeleted, "deletion is soft")

	assert.ErrorIs(t, svc.DeleteWarehouse(ctx, a.ID), ErrNotFound)
	_, err = svc.SelectWarehouse(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteWarehouse(ctx, b.ID))
	cur, err = svc.CurrentWarehouse(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	_, err = svc.Items(ctx, Filter{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateItemAppliesAllFieldsAtOnce(t *testing.T) {
	ctx := context.Background()
	svc, s, wh := withWarehouse(t)
	hook := &countingHook{}
	svc.SetChangeHook(hook)

	item, err := svc.CreateItem(ctx, ItemInput{
		Internal: "SKU1",
		Custom:   str("Bolts"),
		UPC:      str("0360-0029-1452"),
		Qty:      model.Int64(10),
		Min:      model.Int64(2),
		Max:      model.Int64(50),
		Bin:      str("A1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "036000291452", item.UPC)
	assert.Equal(t, int64(10), item.Qty)
	assert.Equal(t, int64(2), *item.Min)
	assert.Equal(t, "A1", item.Bin)
	assert.Equal(t, 1, hook.n)

	ops, err := store.GetOps(ctx, s, wh.ID)
	require.NoError(t, err)
	require.Len(t, ops, 7)
	assert.Equal(t, model.OpCreateItem, ops[0].Type)
	var fields []model.Field
	for _, op := range ops[1:] {
		assert.Equal(t, model.OpSetField, op.Type)
		assert.Greater(t, op.TS, ops[0].TS)
		fields = append(fields, op.Field)
	}
	assert.Equal(t, []model.Field{
		model.FieldCustom, model.FieldUPC, model.FieldMin, model.FieldMax, model.FieldBin, model.FieldQty,
	}, fields)
}

func TestCreateItemValidation(t *testing.T) {
	ctx := context.Background()
	svc, s, wh := withWarehouse(t)
	_, err := svc.CreateItem(ctx, ItemInput{Internal: "SKU1", UPC: str("4006381333931")})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   ItemInput
	}{
		{"missing internal", ItemInput{Internal: "  "}},
		{"duplicate internal", ItemInput{Internal: "SKU1"}},
		{"negative qty", ItemInput{Internal: "SKU2", Qty: model.Int64(-1)}},
		{"negative min", ItemInput{Internal: "SKU2", Min: model.Int64(-1)}},
		{"min above max", ItemInput{Internal: "SKU2", Min: model.Int64(5), Max: model.Int64(4)}},
		{"bad checksum", ItemInput{Internal: "SKU2", UPC: str("036000291453")}},
		{"letters in upc", ItemInput{Internal: "SKU2", UPC: str("03600029145X")}},
		{"duplicate upc", ItemInput{Internal: "SKU2", UPC: str("4006381333931")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateItem(ctx, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, ErrValidation)
			assert.NotEmpty(t, verr.Problems)
		})
	}

	ops, err := store.GetOps(ctx, s, wh.ID)
	require.NoError(t, err)
	assert.Len(t, ops, 2, "rejected actions must not reach the log")
}

func TestCreateReusesDeletedInternal(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := withWarehouse(t)
	_, err := svc.CreateItem(ctx, ItemInput{Internal: "SKU1", Bin: str("A1")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, "SKU1"))

	item, err := svc.CreateItem(ctx, ItemInput{Internal: "SKU1"})
	require.NoError(t, err)
	assert.False(t, item.Deleted)
	assert.Empty(t, item.Bin, "create starts from a clean item")
}

func TestUpdateItemOnlyEmitsChanges(t *testing.T) {
	ctx := context.Background()
	svc, s, wh := withWarehouse(t)
	_, err := svc.CreateItem(ctx, ItemInput{Internal: "SKU1", Bin: str("A1"), Qty: model.Int64(3)})
	require.NoError(t, err)
	before, _ := store.GetOps(ctx, s, wh.ID)

	item, err := svc.UpdateItem(ctx, "SKU1", ItemInput{Bin: str("A1"), Qty: model.Int64(4), Max: model.Int64(10)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), item.Qty)
	assert.Equal(t, int64(10), *item.Max)

	after, _ := store.GetOps(ctx, s, wh.ID)
	assert.Len(t, after, len(before)+2)

	_, err = svc.UpdateItem(ctx, "SKU1", ItemInput{Min: model.Int64(11)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateItem(ctx, "nope", ItemInput{Bin: str("B")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUndeleteAdjust(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := withWarehouse(t)
	_, err := svc.CreateItem(ctx, ItemInput{Internal: "SKU1", Qty: model.Int64(5), Bin: str("A1")})
	require.NoError(t, err)

	item, err := svc.AdjustQuantity(ctx, "SKU1", -8)
	require.NoError(t, err)
	assert.Equal(t, int64(0), item.Qty, "quantity is floored at zero")

	_, err = svc.AdjustQuantity(ctx, "SKU1", 0)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeleteItem(ctx, "SKU1"))
	assert.ErrorIs(t, svc.DeleteItem(ctx, "SKU1"), ErrValidation)
	_, err = svc.AdjustQuantity(ctx, "SKU1", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := svc.Items(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	item, err = svc.UndeleteItem(ctx, "SKU1")
	require.NoError(t, err)
	assert.False(t, item.Deleted)
	assert.Equal(t, "A1", item.Bin, "undelete keeps the last values")

	_, err = svc.UndeleteItem(ctx, "SKU1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUndeleteRejectsTakenUPC(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := withWarehouse(t)
	_, err := svc.CreateItem(ctx, ItemInput{Internal: "SKU1", UPC: str("96385074")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, "SKU1"))
	_, err = svc.CreateItem(ctx, ItemInput{Internal: "SKU2", UPC: str("96385074")})
	require.NoError(t, err)

	_, err = svc.UndeleteItem(ctx, "SKU1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestItemsFilter(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := withWarehouse(t)
	for _, in := range []ItemInput{
		{Internal: "b-2", Custom: str("Škatla"), Qty: model.Int64(1), Min: model.Int64(3)},
		{Internal: "A-1", Bin: str("shelf"), Qty: model.Int64(9)},
		{Internal: "c-3", Qty: model.Int64(4), Min: model.Int64(2)},
	} {
		_, err := svc.CreateItem(ctx, in)
		require.NoError(t, err)
	}

	internals := func(items []model.Item) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.Internal)
		}
		return out
	}

	items, err := svc.Items(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A-1", "b-2", "c-3"}, internals(items))

	items, _ = svc.Items(ctx, Filter{Search: "šKAT"})
	assert.Equal(t, []string{"b-2"}, internals(items))

	items, _ = svc.Items(ctx, Filter{Search: "SHELF"})
	assert.Equal(t, []string{"A-1"}, internals(items))

	items, _ = svc.Items(ctx, Filter{BelowMin: true})
	assert.Equal(t, []string{"b-2"}, internals(items))

	items, _ = svc.Items(ctx, Filter{SortBy: "qty", Desc: true})
	assert.Equal(t, []string{"A-1", "c-3", "b-2"}, internals(items))

	// Items without a min sort last in both directions.
	items, _ = svc.Items(ctx, Filter{SortBy: "min"})
	assert.Equal(t, []string{"c-3", "b-2", "A-1"}, internals(items))
	items, _ = svc.Items(ctx, Filter{SortBy: "min", Desc: true})
	assert.Equal(t, []string{"b-2", "c-3", "A-1"}, internals(items))

	_, err = svc.Items(ctx, Filter{SortBy: "color"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestItemLookup(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := withWarehouse(t)
	_, err := svc.CreateItem(ctx, ItemInput{Internal: "SKU1"})
	require.NoError(t, err)

	item, err := svc.Item(ctx, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, "SKU1", item.Internal)

	_, err = svc.Item(ctx, "SKU9")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSyncAndResolveAcrossSites(t *testing.T) {
	ctx := context.Background()
	shared := remote.NewMemory()
	clock := testutil.NewClock(5_000)
	a, _ := newService(t, "site-a", shared, clock)
	b, _ := newService(t, "site-b", shared, clock)

	wh, err := a.CreateWarehouse(ctx, "Main")
	require.NoError(t, err)
	_, err = a.CreateItem(ctx, ItemInput{Internal: "SKU1", Qty: model.Int64(10)})
	require.NoError(t, err)
	res, err := a.TriggerFullSync(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)

	_, err = b.TriggerFullSync(ctx)
	require.NoError(t, err)
	cur, err := b.CurrentWarehouse(ctx)
	require.NoError(t, err)
	require.Equal(t, wh.ID, cur.ID)

	clock.Set(9_000)
	_, err = a.UpdateItem(ctx, "SKU1", ItemInput{Bin: str("A1")})
	require.NoError(t, err)
	clock.Set(9_000)
	_, err = b.UpdateItem(ctx, "SKU1", ItemInput{Bin: str("B2")})
	require.NoError(t, err)

	_, err = a.TriggerFullSync(ctx)
	require.NoError(t, err)
	res, err = b.TriggerFullSync(ctx)
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)

	open, err := b.Conflicts(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	c := open[0]
	assert.Equal(t, model.FieldBin, c.Field)

	item, err := b.Item(ctx, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, c.Mine.String(), item.Bin)

	got, err := b.ResolveConflict(ctx, c.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "user-site-b", got.ResolvedBy)

	item, err = b.Item(ctx, "SKU1")
	require.NoError(t, err)
	assert.Equal(t, c.Theirs.String(), item.Bin)

	_, err = b.ResolveConflict(ctx, c.ID, true)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = b.ResolveConflict(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)

	open, err = b.Conflicts(ctx, wh.ID, false)
	require.NoError(t, err)
	assert.Empty(t, open)
	all, err := b.Conflicts(ctx, wh.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	status, err := b.SyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PendingOps)
}

func TestRefreshWarehouses(t *testing.T) {
	ctx := context.Background()
	shared := remote.NewMemory()
	clock := testutil.NewClock(1_000)
	a, _ := newService(t, "site-a", shared, clock)
	b, _ := newService(t, "site-b", shared, clock)

	wh, err := a.CreateWarehouse(ctx, "Main")
	require.NoError(t, err)
	_, err = a.TriggerFullSync(ctx)
	require.NoError(t, err)

	b.SetOnline(ctx, false)
	whs, err := b.RefreshWarehouses(ctx)
	require.NoError(t, err)
	assert.Empty(t, whs, "offline refresh only reads the local list")

	b.SetOnline(ctx, true)
	whs, err = b.RefreshWarehouses(ctx)
	require.NoError(t, err)
	require.Len(t, whs, 1)
	assert.Equal(t, wh.ID, whs[0].ID)

	status, err := b.SyncStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.LastSyncTime, "refresh is not a sync")
}

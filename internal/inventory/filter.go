package inventory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/oplog"
	"github.com/erazemk/zaloga/internal/store"
)

// SortInternal orders by internal id, the default.
const SortInternal = "internal"

// Filter selects and orders the visible items of a warehouse.
type Filter struct {
	// Search matches case-insensitively against internal, custom, bin and upc.
	Search   string
	BelowMin bool
	// SortBy is "internal" or a field name.
	SortBy string
	Desc   bool
}

// Items returns the non-deleted items of the current warehouse that match f.
func (s *Service) Items(ctx context.Context, f Filter) ([]model.Item, error) {
	whID, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	items, err := store.GetItems(ctx, s.store, whID)
	if err != nil {
		return nil, err
	}
	if f.SortBy != "" && f.SortBy != SortInternal && !model.Field(f.SortBy).Valid() {
		return nil, invalid("cannot sort by " + f.SortBy)
	}
	return Apply(oplog.Visible(items), f), nil
}

// Apply filters and sorts items. Items missing the sort value go last in
// either direction.
func Apply(items []model.Item, f Filter) []model.Item {
	out := make([]model.Item, 0, len(items))
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(f.Search))
	for _, it := range items {
		if f.BelowMin && !it.BelowMin() {
			continue
		}
		if needle != "" && !matches(fold, it, needle) {
			continue
		}
		out = append(out, it)
	}

	coll := collate.New(language.Und, collate.IgnoreCase)
	key := sortKey(f.SortBy)
	slices.SortStableFunc(out, func(a, b model.Item) int {
		ka, kb := key(a), key(b)
		switch {
		case ka.missing && kb.missing:
			return 0
		case ka.missing:
			return 1
		case kb.missing:
			return -1
		}
		var c int
		if ka.str {
			c = coll.CompareString(ka.s, kb.s)
		} else {
			c = cmp.Compare(ka.n, kb.n)
		}
		if f.Desc {
			c = -c
		}
		return c
	})
	return out
}

func matches(fold cases.Caser, it model.Item, needle string) bool {
	for _, v := range []string{it.Internal, it.Custom, it.Bin, it.UPC} {
		if v != "" && strings.Contains(fold.String(v), needle) {
			return true
		}
	}
	return false
}

type sortValue struct {
	missing bool
	str     bool
	s       string
	n       int64
}

func sortKey(by string) func(model.Item) sortValue {
	text := func(get func(model.Item) string) func(model.Item) sortValue {
		return func(it model.Item) sortValue {
			v := get(it)
			return sortValue{missing: v == "", str: true, s: v}
		}
	}
	num := func(get func(model.Item) *int64) func(model.Item) sortValue {
		return func(it model.Item) sortValue {
			v := get(it)
			if v == nil {
				return sortValue{missing: true}
			}
			return sortValue{n: *v}
		}
	}

	switch model.Field(by) {
	case model.FieldCustom:
		return text(func(it model.Item) string { return it.Custom })
	case model.FieldUPC:
		return text(func(it model.Item) string { return it.UPC })
	case model.FieldBin:
		return text(func(it model.Item) string { return it.Bin })
	case model.FieldQty:
		return num(func(it model.Item) *int64 { return &it.Qty })
	case model.FieldMin:
		return num(func(it model.Item) *int64 { return it.Min })
	case model.FieldMax:
		return num(func(it model.Item) *int64 { return it.Max })
	}
	return text(func(it model.Item) string { return it.Internal })
}

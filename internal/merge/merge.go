// Package merge combines operation logs from different sites into one
// deterministic history and detects concurrent field edits.
package merge

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/oplog"
)

// conflictNamespace seeds deterministic conflict ids.
var conflictNamespace = uuid.MustParse("0c5f3a8e-6b0e-4d55-9a51-7f2d7d1c9e40")

// Result is the outcome of merging two logs.
type Result struct {
	// Merged is the deduplicated log in canonical order, all marked synced.
	Merged []model.Op
	// Conflicts holds the concurrent field edits found in Merged.
	Conflicts []model.Conflict
	// Items is the projection rebuilt from Merged, tombstones included.
	Items []model.Item
}

// Visible returns the projection without tombstoned items.
func (r Result) Visible() []model.Item {
	return oplog.Visible(r.Items)
}

// Merge combines local and remote logs. Operations are deduplicated by id
// (first occurrence wins, local before remote), ordered by timestamp and
// then site id, checked for conflicts and replayed from scratch.
// The same inputs always produce the same result.
func Merge(local, remote []model.Op) Result {
	merged := make([]model.Op, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local)+len(remote))
	for _, ops := range [][]model.Op{local, remote} {
		for _, op := range ops {
			if _, ok := seen[op.OpID]; ok {
				continue
			}
			seen[op.OpID] = struct{}{}
			merged = append(merged, op)
		}
	}

	slices.SortStableFunc(merged, compareOps)

	conflicts := Detect(merged)
	items := oplog.Rebuild(merged)

	for i := range merged {
		merged[i].Synced = true
	}

	return Result{Merged: merged, Conflicts: conflicts, Items: items}
}

func compareOps(a, b model.Op) int {
	if c := cmp.Compare(a.TS, b.TS); c != 0 {
		return c
	}
	return cmp.Compare(a.SiteID, b.SiteID)
}

type fieldKey struct {
	wh       string
	internal string
	field    model.Field
}

// Detect finds setField operations in a canonically ordered log that hit
// the same item field at the same millisecond from different sites with
// different values. The first operation of each tie is "mine" and stays in
// the projection; every later one yields a conflict as "theirs".
func Detect(ordered []model.Op) []model.Conflict {
	groups := make(map[fieldKey][]model.Op)
	var keys []fieldKey
	for _, op := range ordered {
		if op.Type != model.OpSetField {
			continue
		}
		k := fieldKey{op.WhID, op.Internal, op.Field}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], op)
	}

	var conflicts []model.Conflict
	for _, k := range keys {
		ops := groups[k]
		for i := 0; i < len(ops); {
			j := i + 1
			for j < len(ops) && ops[j].TS == ops[i].TS {
				j++
			}
			first := ops[i]
			for _, other := range ops[i+1 : j] {
				if !oplog.Concurrent(first, other) {
					continue
				}
				conflicts = append(conflicts, model.Conflict{
					ID:       ConflictID(first.OpID, other.OpID),
					WhID:     k.wh,
					Internal: k.internal,
					Field:    k.field,
					Mine:     first.Value,
					Theirs:   other.Value,
					BaseTS:   first.TS,
				})
			}
			i = j
		}
	}
	return conflicts
}

// ConflictID derives the id of the conflict between two operations.
func ConflictID(mineOpID, theirsOpID string) string {
	return uuid.NewSHA1(conflictNamespace, []byte(mineOpID+"\x00"+theirsOpID)).String()
}

// Accumulate unions conflict lists by id, keeping first-seen order. A
// resolved copy always wins over an unresolved one, so resolutions are
// never lost when lists from several sources are combined.
func Accumulate(lists ...[]model.Conflict) []model.Conflict {
	out := []model.Conflict{}
	index := make(map[string]int)
	for _, list := range lists {
		for _, c := range list {
			i, ok := index[c.ID]
			if !ok {
				index[c.ID] = len(out)
				out = append(out, c)
				continue
			}
			if c.Resolved && !out[i].Resolved {
				out[i] = c
			}
		}
	}
	return out
}

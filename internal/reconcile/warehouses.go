package reconcile

import "github.com/erazemk/zaloga/internal/model"

// MergeWarehouses combines warehouse lists by id. The copy with the later
// updatedAt wins; on a tie the remote copy is kept. Remote order comes
// first, then warehouses only known locally.
func MergeWarehouses(local, remote []model.Warehouse) []model.Warehouse {
	out := make([]model.Warehouse, 0, len(local)+len(remote))
	index := make(map[string]int, len(local)+len(remote))

	for _, wh := range remote {
		if i, ok := index[wh.ID]; ok {
			if wh.UpdatedAt > out[i].UpdatedAt {
				out[i] = wh
			}
			continue
		}
		index[wh.ID] = len(out)
		out = append(out, wh)
	}
	for _, wh := range local {
		i, ok := index[wh.ID]
		if !ok {
			index[wh.ID] = len(out)
			out = append(out, wh)
			continue
		}
		if wh.UpdatedAt > out[i].UpdatedAt {
			out[i] = wh
		}
	}
	return out
}

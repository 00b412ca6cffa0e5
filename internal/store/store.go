// Package store reads and writes the local replica: the per-warehouse
// operation log, item projection and conflict list, plus device settings.
//
// Every function takes a kv.Reader or kv.Writer so it works the same on a
// plain store and inside a kv.Store.Update transaction.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erazemk/zaloga/internal/kv"
)

// Prefix is shared by every key this package owns.
const Prefix = "zaloga:"

const (
	keySiteID      = Prefix + "siteId"
	keyCurrentUser = Prefix + "currentUser"
	keyWarehouses  = Prefix + "warehouses"
	keyLastSync    = Prefix + "lastSync"
	itemsPrefix    = Prefix + "items:"
	opsPrefix      = Prefix + "ops:"
	conflictPrefix = Prefix + "conflicts:"
)

// ItemsKey is the key holding the item projection of a warehouse.
func ItemsKey(whID string) string { return itemsPrefix + whID }

// OpsKey is the key holding the operation log of a warehouse.
func OpsKey(whID string) string { return opsPrefix + whID }

// ConflictsKey is the key holding the conflict list of a warehouse.
func ConflictsKey(whID string) string { return conflictPrefix + whID }

// getJSON decodes the value under key into dst. It reports false when the
// key does not exist.
func getJSON(ctx context.Context, r kv.Reader, key string, dst any) (bool, error) {
	data, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func putJSON(ctx context.Context, w kv.Writer, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return w.Put(ctx, key, data)
}

// ClearAll removes every replica key except the site id, which identifies
// this device for its whole life.
func ClearAll(ctx context.Context, s kv.Store) error {
	return s.Update(ctx, func(w kv.Writer) error {
		keys, err := w.Keys(ctx, Prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k == keySiteID {
				continue
			}
			if err := w.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}

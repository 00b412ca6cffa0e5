package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/erazemk/zaloga/internal/db"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	b, err := OpenBolt(filepath.Join(t.TempDir(), "zaloga.bolt"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	return map[string]Store{
		"sqlite": NewSQLite(db.NewTestDB(t)),
		"bolt":   b,
	}
}

func TestGetPutDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(ctx, "missing")
			if err != nil || got != nil {
				t.Fatalf("Get(missing) = %q, %v; want nil, nil", got, err)
			}

			if err := s.Put(ctx, "a", []byte(`{"x":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := s.Put(ctx, "a", []byte(`{"x":2}`)); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, _ = s.Get(ctx, "a")
			if string(got) != `{"x":2}` {
				t.Errorf("expected overwritten value, got %q", got)
			}

			if err := s.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			got, _ = s.Get(ctx, "a")
			if got != nil {
				t.Errorf("expected nil after delete, got %q", got)
			}
		})
	}
}

func TestPutIfAbsent(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := s.PutIfAbsent(ctx, "site", []byte("one"))
			if err != nil {
				t.Fatalf("PutIfAbsent: %v", err)
			}
			second, err := s.PutIfAbsent(ctx, "site", []byte("two"))
			if err != nil {
				t.Fatalf("PutIfAbsent again: %v", err)
			}
			if string(first) != "one" || string(second) != "one" {
				t.Errorf("expected first value to stick, got %q and %q", first, second)
			}
		})
	}
}

func TestKeysPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"zaloga:ops:w2", "zaloga:ops:w1", "zaloga:items:w1", "other"} {
				if err := s.Put(ctx, k, []byte("[]")); err != nil {
					t.Fatalf("Put %s: %v", k, err)
				}
			}

			keys, err := s.Keys(ctx, "zaloga:ops:")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) != 2 || keys[0] != "zaloga:ops:w1" || keys[1] != "zaloga:ops:w2" {
				t.Errorf("unexpected keys %v", keys)
			}
		})
	}
}

func TestUpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.Put(ctx, "items", []byte("old"))

			err := s.Update(ctx, func(w Writer) error {
				if err := w.Put(ctx, "items", []byte("new")); err != nil {
					return err
				}
				if err := w.Put(ctx, "ops", []byte("new")); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}

			items, _ := s.Get(ctx, "items")
			ops, _ := s.Get(ctx, "ops")
			if string(items) != "old" || ops != nil {
				t.Errorf("expected rollback, got items=%q ops=%q", items, ops)
			}
		})
	}
}

func TestUpdateReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Update(ctx, func(w Writer) error {
				if err := w.Put(ctx, "k", []byte("v")); err != nil {
					return err
				}
				got, err := w.Get(ctx, "k")
				if err != nil {
					return err
				}
				if string(got) != "v" {
					t.Errorf("expected to read own write, got %q", got)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("leveldb", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("expected error for unknown backend")
	}
}

package kv

import (
	"bytes"
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("zaloga")

// Bolt is a Store backed by a single bbolt bucket.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates the bbolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	database, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}
	err = database.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &Bolt{db: database}, nil
}

// Get implements Reader.
func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		value, err = boltRW{b: tx.Bucket(bucketName)}.Get(ctx, key)
		return err
	})
	return value, err
}

// Keys implements Reader.
func (b *Bolt) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		keys, err = boltRW{b: tx.Bucket(bucketName)}.Keys(ctx, prefix)
		return err
	})
	return keys, err
}

// Put implements Writer.
func (b *Bolt) Put(ctx context.Context, key string, value []byte) error {
	return b.Update(ctx, func(w Writer) error { return w.Put(ctx, key, value) })
}

// Delete implements Writer.
func (b *Bolt) Delete(ctx context.Context, key string) error {
	return b.Update(ctx, func(w Writer) error { return w.Delete(ctx, key) })
}

// PutIfAbsent implements Store.
func (b *Bolt) PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error) {
	var stored []byte
	err := b.Update(ctx, func(w Writer) error {
		existing, err := w.Get(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			stored = existing
			return nil
		}
		stored = value
		return w.Put(ctx, key, value)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Update implements Store.
func (b *Bolt) Update(ctx context.Context, fn func(w Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(boltRW{b: tx.Bucket(bucketName)})
	})
}

// Close closes the bbolt file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

type boltRW struct {
	b *bolt.Bucket
}

func (rw boltRW) Get(_ context.Context, key string) ([]byte, error) {
	v := rw.b.Get([]byte(key))
	if v == nil {
		return nil, nil
	}
	// Values are only valid for the life of the transaction.
	return bytes.Clone(v), nil
}

func (rw boltRW) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	p := []byte(prefix)
	c := rw.b.Cursor()
	for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
		keys = append(keys, string(k))
	}
	return keys, nil
}

func (rw boltRW) Put(_ context.Context, key string, value []byte) error {
	if err := rw.b.Put([]byte(key), value); err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

func (rw boltRW) Delete(_ context.Context, key string) error {
	if err := rw.b.Delete([]byte(key)); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

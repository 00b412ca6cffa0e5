// Package kv is the local persistence layer: a small key-value store of
// JSON documents with multi-key write transactions.
package kv

import (
	"context"
	"fmt"
)

// Reader reads values by key. A missing key yields (nil, nil).
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Writer is a Reader that can also modify keys.
type Writer interface {
	Reader
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store is a local key-value store.
//
// Update runs fn inside one write transaction: either every change fn makes
// is persisted or none is. fn must only use the Writer it is given.
type Store interface {
	Writer
	PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error)
	Update(ctx context.Context, fn func(w Writer) error) error
	Close() error
}

// Backend kinds accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Open opens a store of the given backend kind at path.
func Open(kind, path string) (Store, error) {
	switch kind {
	case BackendSQLite, "":
		return OpenSQLite(path)
	case BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

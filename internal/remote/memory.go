package remote

import (
	"bytes"
	"context"
	"sync"
)

// Memory keeps the document in process memory.
type Memory struct {
	mu      sync.Mutex
	content []byte
}

// NewMemory returns an empty in-memory remote.
func NewMemory() *Memory {
	return &Memory{}
}

// Fetch implements Store.
func (m *Memory) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.content == nil {
		return nil, ErrNotFound
	}
	return &Snapshot{Content: bytes.Clone(m.content), Revision: ContentRevision(m.content)}, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, content []byte, revision string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if ContentRevision(m.content) != revision {
		return ErrRevisionMismatch
	}
	m.content = bytes.Clone(content)
	return nil
}

// Set overwrites the document unconditionally, as another writer would.
func (m *Memory) Set(content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = bytes.Clone(content)
}

// Content returns the stored document, or nil if none.
func (m *Memory) Content() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.content)
}

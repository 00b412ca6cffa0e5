// Package remote holds the shared sync document and the backends that
// store it. Every backend offers the same contract: read the document with
// a revision marker, and write it back only if the revision still matches.
package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the document does not exist yet.
	ErrNotFound = errors.New("remote document not found")
	// ErrRevisionMismatch means someone else wrote the document after it was read.
	ErrRevisionMismatch = errors.New("remote document changed since it was read")
	// ErrUnauthorized means the backend rejected the configured credentials.
	ErrUnauthorized = errors.New("remote rejected credentials")
)

// Snapshot is the document content together with its revision marker.
// An empty Revision stands for "document does not exist".
type Snapshot struct {
	Content  []byte
	Revision string
}

// Store is a remote location holding one sync document.
type Store interface {
	// Fetch returns the current document. It returns ErrNotFound when there
	// is none.
	Fetch(ctx context.Context) (*Snapshot, error)
	// Put replaces the document if its revision still equals revision.
	// An empty revision means the document must not exist yet.
	Put(ctx context.Context, content []byte, revision string) error
}

// ContentRevision derives a revision marker from the content itself.
func ContentRevision(content []byte) string {
	if content == nil {
		return ""
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func unauthorized(err error) error {
	return fmt.Errorf("%w: %v", ErrUnauthorized, err)
}

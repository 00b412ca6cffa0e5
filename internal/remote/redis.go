package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis stores the document under one key. Writes are guarded with
// WATCH/MULTI so a concurrent writer aborts the transaction.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

// OpenRedis connects using a redis:// URL.
func OpenRedis(rawURL, key string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opts), key), nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func redisError(err error) error {
	msg := err.Error()
	if strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS") {
		return unauthorized(err)
	}
	return err
}

// Fetch implements Store.
func (r *Redis) Fetch(ctx context.Context) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.key, redisError(err))
	}
	return &Snapshot{Content: data, Revision: ContentRevision(data)}, nil
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, content []byte, revision string) error {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, r.key).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}
		if ContentRevision(current) != revision {
			return ErrRevisionMismatch
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, content, 0)
			return nil
		})
		return err
	}, r.key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRevisionMismatch), errors.Is(err, redis.TxFailedErr):
		return ErrRevisionMismatch
	}
	return fmt.Errorf("writing %s: %w", r.key, redisError(err))
}

package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NoteLock implements ports.NoteLock using Redis SET NX.
//
// It is the fast path that rejects concurrent redemptions of the same note
// before they contend on the database; the conditional consume inside the
// crediting transaction remains the authoritative guard.
type NoteLock struct {
	client *goredis.Client
	prefix string
}

// NewNoteLock creates a new Redis-backed note redemption lock.
func NewNoteLock(client *goredis.Client) *NoteLock {
	return &NoteLock{
		client: client,
		prefix: "notelock:",
	}
}

// Acquire atomically claims the note id for the TTL window.
// Returns true if this caller won the claim, false if another holds it.
func (l *NoteLock) Acquire(ctx context.Context, noteID string, ttl time.Duration) (bool, error) {
	key := l.prefix + noteID
	result, err := l.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists: another redemption holds the claim.
			return false, nil
		}
		return false, fmt.Errorf("redis note lock acquire: %w", err)
	}
	return result == "OK", nil
}

// Release drops the claim so a failed redemption does not block the note for
// the full TTL.
func (l *NoteLock) Release(ctx context.Context, noteID string) error {
	if err := l.client.Del(ctx, l.prefix+noteID).Err(); err != nil {
		return fmt.Errorf("redis note lock release: %w", err)
	}
	return nil
}

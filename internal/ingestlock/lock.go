package ingestlock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock serializes ingestions per owner across processes. The dedup
// check-then-act in the pipeline is not atomic over the two stores, so two
// concurrent uploads of the same content could both index chunks; holding
// this lock for the duration of one ingestion closes that window.
type Lock struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Lock{client: client, ttl: ttl}
}

func key(ownerID int64) string {
	return fmt.Sprintf("docutor:ingest:%d", ownerID)
}

// Acquire takes the owner's lock. Returns false when another ingestion for
// the same owner is in flight. The TTL bounds how long a crashed worker can
// hold the lock.
func (l *Lock) Acquire(ctx context.Context, ownerID int64) (bool, error) {
	ok, err := l.client.SetNX(ctx, key(ownerID), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire ingest lock: %w", err)
	}
	return ok, nil
}

func (l *Lock) Release(ctx context.Context, ownerID int64) error {
	if err := l.client.Del(ctx, key(ownerID)).Err(); err != nil {
		return fmt.Errorf("release ingest lock: %w", err)
	}
	return nil
}

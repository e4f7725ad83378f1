package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "webhook:event:"

// RedisDeduper is an optional fast path in front of the durable event log.
// A key is written only after an event finishes processing, so a hit always
// means the prior delivery completed; an in-flight or failed attempt leaves
// no key and the redelivery goes through the full pipeline. Redis being down
// only costs the fast path, never correctness.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// Seen reports whether this event id has already been fully processed.
func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKeyPrefix+eventID).Result()
	return n > 0, err
}

// MarkSeen records the event id once processing has finished.
func (d *RedisDeduper) MarkSeen(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, dedupKeyPrefix+eventID, 1, d.ttl).Err()
}

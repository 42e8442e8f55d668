package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedStore is the idempotency fence for handler side effects. Handlers
// apply each mutation at most once per key even when the broker redelivers:
// at-least-once delivery plus the non-atomic act-then-ack pattern makes
// duplicate deliveries a normal condition, not an error.
type ProcessedStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewProcessedStore(client *redis.Client, prefix string) *ProcessedStore {
	return &ProcessedStore{
		client: client,
		prefix: prefix,
		ttl:    7 * 24 * time.Hour,
	}
}

func (s *ProcessedStore) key(id string) string {
	return fmt.Sprintf("%s:processed:%s", s.prefix, id)
}

// MarkOnce atomically claims a key. It returns true exactly once per key;
// duplicates get false. SETNX keeps the check-and-set race free across
// competing consumers.
func (s *ProcessedStore) MarkOnce(ctx context.Context, id string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.key(id), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark processed: %w", err)
	}
	return set, nil
}

// Clear releases a claimed key so a failed mutation can be retried.
func (s *ProcessedStore) Clear(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orderahead/sync-engine/internal/core/ports"
)

// IdempotencyStore maps an order submission key to the order it produced.
// Key format: idem:order:<subject_id>:<key>
type IdempotencyStore struct {
	client *redis.Client
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis client.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Lookup returns the order id remembered for (subjectID, key).
func (s *IdempotencyStore) Lookup(ctx context.Context, subjectID int64, key string) (int64, bool, error) {
	v, err := s.client.Get(ctx, s.key(subjectID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: corrupt value %q", v)
	}
	return id, true, nil
}

// Remember records orderID for (subjectID, key) unless a value is already
// stored; the first committed order wins.
func (s *IdempotencyStore) Remember(ctx context.Context, subjectID int64, key string, orderID int64, ttl time.Duration) error {
	if err := s.client.SetNX(ctx, s.key(subjectID, key), orderID, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(subjectID int64, key string) string {
	return fmt.Sprintf("idem:order:%d:%s", subjectID, key)
}

package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Reserve claims key with SET NX. When the key is already taken it returns
// the stored record and false.
func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (Record, bool, error) {
	ok, err := s.client.SetNX(ctx, key, pendingMarker, ttl).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("reserving idempotency key: %w", err)
	}
	if ok {
		return Record{}, true, nil
	}

	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// Expired between SETNX and GET; try once more.
		ok, err = s.client.SetNX(ctx, key, pendingMarker, ttl).Result()
		if err != nil {
			return Record{}, false, fmt.Errorf("reserving idempotency key: %w", err)
		}
		return Record{}, ok, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("reading idempotency key: %w", err)
	}

	if raw == pendingMarker {
		return Record{}, false, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false, fmt.Errorf("decoding idempotency record: %w", err)
	}
	return rec, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("storing idempotency record: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
)

const defaultKeyPrefix = "adboard:cart"

// kv is the slice of the redis client the store needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps carts as JSON values that expire on their own.
type RedisStore struct {
	client kv
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return newRedisStore(client, prefix, ttl)
}

func newRedisStore(client kv, prefix string, ttl time.Duration) *RedisStore {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(accountID int64) string {
	return fmt.Sprintf("%s:%d", s.prefix, accountID)
}

func (s *RedisStore) Load(ctx context.Context, accountID int64) (*domain.PlacementSelection, error) {
	raw, err := s.client.Get(ctx, s.key(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logger.ExternalServiceResult("redis", "GET", err, "account_id", accountID)
		return nil, fmt.Errorf("load cart for account %d: %w", accountID, err)
	}
	var sel domain.PlacementSelection
	if err := json.Unmarshal(raw, &sel); err != nil {
		logger.Warn("Discarding unreadable cart", "account_id", accountID, "error", err)
		return nil, nil
	}
	return &sel, nil
}

func (s *RedisStore) Save(ctx context.Context, sel *domain.PlacementSelection) error {
	raw, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sel.AccountID), raw, s.ttl).Err(); err != nil {
		logger.ExternalServiceResult("redis", "SET", err, "account_id", sel.AccountID)
		return fmt.Errorf("save cart for account %d: %w", sel.AccountID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, accountID int64) error {
	if err := s.client.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("delete cart for account %d: %w", accountID, err)
	}
	return nil
}

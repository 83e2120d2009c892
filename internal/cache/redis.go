package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

const (
	defaultCartTTL = 15 * time.Minute

	// maxTTLJitter spreads expiry so carts cached in one burst don't all
	// miss at once.
	maxTTLJitter = 5 * time.Minute

	cartKeyPrefix = "storefront:cart:"
)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

var _ CartCache = (*RedisCache)(nil)

// NewRedisCache wraps the client with the default cart expiry; use
// NewRedisCacheTTL when the deployment tunes it.
func NewRedisCache(client *redis.Client) *RedisCache {
	return NewRedisCacheTTL(client, defaultCartTTL)
}

func NewRedisCacheTTL(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = defaultCartTTL
	}
	return &RedisCache{client: client, baseTTL: baseTTL}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(userID), payload, r.entryTTL()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) entryTTL() time.Duration {
	return r.baseTTL + time.Duration(rand.Int63n(int64(maxTTLJitter)))
}

func cacheKey(userID string) string {
	return cartKeyPrefix + userID
}

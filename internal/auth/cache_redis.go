package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// revocationKeyPrefix は失効エントリのRedisキープレフィックス。
const revocationKeyPrefix = "bl:"

// RedisRevocationCache はRedisを使用した失効トークンキャッシュ。
// キーは `bl:<token>`、TTLはトークンの残り有効期間に揃える。
type RedisRevocationCache struct {
	client *redis.Client
}

// NewRedisRevocationCache はRedisRevocationCacheを生成する。
func NewRedisRevocationCache(client *redis.Client) *RedisRevocationCache {
	return &RedisRevocationCache{client: client}
}

// Set は失効エントリをTTL付きで書き込む。
func (c *RedisRevocationCache) Set(ctx context.Context, tokenString string, ttl time.Duration) error {
	key := revocationKeyPrefix + tokenString
	if err := c.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set revocation cache entry: %w", err)
	}
	return nil
}

// Exists は失効エントリが存在するかを返す。
func (c *RedisRevocationCache) Exists(ctx context.Context, tokenString string) (bool, error) {
	key := revocationKeyPrefix + tokenString
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation cache entry: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ RevocationCache = (*RedisRevocationCache)(nil)

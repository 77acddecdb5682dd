// Package favorites はユーザーのお気に入りキャラクター管理を提供する。
// 読み取りはcache-aside戦略でRedisを経由し、書き込みは永続ストアへの
// コミット後にキャッシュを無効化する。
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/lorebook/internal/model"
)

// ErrCacheMiss はキャッシュにエントリが存在しないことを表す。
var ErrCacheMiss = errors.New("favorites cache miss")

// Cache はお気に入り一覧のキャッシュのインターフェース。
type Cache interface {
	// Get はキャッシュされた一覧を返す。未登録時はErrCacheMiss。
	Get(ctx context.Context, userID string) ([]model.Character, error)
	// Set は一覧をTTL付きで書き込む。
	Set(ctx context.Context, userID string, characters []model.Character) error
	// Invalidate は特定ユーザーのエントリを削除する。
	Invalidate(ctx context.Context, userID string) error
	// InvalidateAll は全ユーザーのエントリを削除する。
	InvalidateAll(ctx context.Context) error
}

// CacheMetrics はキャッシュヒット率の記録先インターフェース。
type CacheMetrics interface {
	RecordCacheHit(cacheName string)
	RecordCacheMiss(cacheName string)
}

// favoritesKeyPattern はInvalidateAllのSCANパターン。
const favoritesKeyPattern = "user:*:favorites"

// cacheName はメトリクスのラベル値。
const cacheName = "favorites"

// favoritesKey はユーザーごとのキャッシュキーを返す。
func favoritesKey(userID string) string {
	return fmt.Sprintf("user:%s:favorites", userID)
}

// RedisCache はRedisを使用したお気に入りキャッシュ。
// 値はキャラクター一覧のJSON配列。空一覧もキャッシュ対象となり、
// お気に入りゼロのユーザーの繰り返し参照もDBに到達しない。
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	collector CacheMetrics
}

// NewRedisCache はRedisCacheを生成する。
// collectorがnilの場合、ヒット率メトリクスは記録されない。
func NewRedisCache(client *redis.Client, ttl time.Duration, collector CacheMetrics) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, collector: collector}
}

// Get はキャッシュされた一覧を返す。
func (c *RedisCache) Get(ctx context.Context, userID string) ([]model.Character, error) {
	data, err := c.client.Get(ctx, favoritesKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		if c.collector != nil {
			c.collector.RecordCacheMiss(cacheName)
		}
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get favorites cache: %w", err)
	}

	var characters []model.Character
	if err := json.Unmarshal(data, &characters); err != nil {
		return nil, fmt.Errorf("failed to decode favorites cache: %w", err)
	}
	if c.collector != nil {
		c.collector.RecordCacheHit(cacheName)
	}
	return characters, nil
}

// Set は一覧をTTL付きで書き込む。
func (c *RedisCache) Set(ctx context.Context, userID string, characters []model.Character) error {
	if characters == nil {
		characters = []model.Character{}
	}
	data, err := json.Marshal(characters)
	if err != nil {
		return fmt.Errorf("failed to encode favorites cache: %w", err)
	}
	if err := c.client.Set(ctx, favoritesKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set favorites cache: %w", err)
	}
	return nil
}

// Invalidate は特定ユーザーのエントリを削除する。
func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, favoritesKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate favorites cache: %w", err)
	}
	return nil
}

// InvalidateAll は全ユーザーのエントリを削除する。
// KEYSはRedisをブロックするため、SCANでカーソル走査する。
func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, favoritesKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete favorites cache entry: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan favorites cache keys: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Cache = (*RedisCache)(nil)

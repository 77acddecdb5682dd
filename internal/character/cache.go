// Package character はキャラクターカタログの参照を提供する。
// 一覧参照はcache-aside戦略でRedisを経由し、日次同期の完了時に
// カタログ全体のキャッシュが無効化される。
package character

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
var ErrCacheMiss = errors.New("character cache miss")

// ListResult は一覧クエリの結果ページ。
type ListResult struct {
	Characters []model.Character `json:"characters"`
	Total      int               `json:"total"`
}

// ListCache はページ単位の一覧キャッシュのインターフェース。
type ListCache interface {
	// Get はキャッシュされたページを返す。未登録時はErrCacheMiss。
	Get(ctx context.Context, offset, limit int, name string) (*ListResult, error)
	// Set はページをTTL付きで書き込む。
	Set(ctx context.Context, offset, limit int, name string, result *ListResult) error
	// InvalidateAll は全ページのエントリを削除する。
	InvalidateAll(ctx context.Context) error
}

// CacheMetrics はキャッシュヒット率の記録先インターフェース。
type CacheMetrics interface {
	RecordCacheHit(cacheName string)
	RecordCacheMiss(cacheName string)
}

// listKeyPattern はInvalidateAllのSCANパターン。
const listKeyPattern = "characters:*"

// cacheName はメトリクスのラベル値。
const cacheName = "characters"

// listKey はクエリパラメータの組ごとのキャッシュキーを返す。
// nameフィルタもキーに含め、異なる検索結果が混ざらないようにする。
func listKey(offset, limit int, name string) string {
	return fmt.Sprintf("characters:%d:%d:%s", offset, limit, name)
}

// RedisListCache はRedisを使用した一覧キャッシュ。
type RedisListCache struct {
	client    *redis.Client
	ttl       time.Duration
	collector CacheMetrics
}

// NewRedisListCache はRedisListCacheを生成する。
// collectorがnilの場合、ヒット率メトリクスは記録されない。
func NewRedisListCache(client *redis.Client, ttl time.Duration, collector CacheMetrics) *RedisListCache {
	return &RedisListCache{client: client, ttl: ttl, collector: collector}
}

// Get はキャッシュされたページを返す。
func (c *RedisListCache) Get(ctx context.Context, offset, limit int, name string) (*ListResult, error) {
	data, err := c.client.Get(ctx, listKey(offset, limit, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		if c.collector != nil {
			c.collector.RecordCacheMiss(cacheName)
		}
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character list cache: %w", err)
	}

	var result ListResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode character list cache: %w", err)
	}
	if c.collector != nil {
		c.collector.RecordCacheHit(cacheName)
	}
	return &result, nil
}

// Set はページをTTL付きで書き込む。
func (c *RedisListCache) Set(ctx context.Context, offset, limit int, name string, result *ListResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode character list cache: %w", err)
	}
	if err := c.client.Set(ctx, listKey(offset, limit, name), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set character list cache: %w", err)
	}
	return nil
}

// InvalidateAll は全ページのエントリを削除する。
func (c *RedisListCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, listKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete character list cache entry: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan character list cache keys: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ListCache = (*RedisListCache)(nil)

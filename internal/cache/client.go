// Package cache はRedis接続と揮発性キャッシュの管理を提供する。
// 失効トークンの高速参照とお気に入り・キャラクター一覧のキャッシュに使用する。
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// NewClient はRedis接続URLをパースし、疎通確認済みのクライアントを返す。
// クライアントはプロセス全体で1つだけ生成し、起動時に注入してシャットダウン時に閉じる。
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

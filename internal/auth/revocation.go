// Package auth はユーザー認証とセッショントークンのライフサイクル管理を提供する。
// ログイン、リフレッシュ、サインアウト、および二重ストア（永続DB + Redis）に
// よるリフレッシュトークンの失効管理を含む。
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lorebook/internal/model"
	"github.com/hitoshi/lorebook/internal/repository"
)

// RevocationCache は失効トークンの高速参照キャッシュのインターフェース。
// repository側の永続ストアに対する、低レイテンシな最適化層として機能する。
type RevocationCache interface {
	// Set は失効エントリをTTL付きで書き込む。
	Set(ctx context.Context, tokenString string, ttl time.Duration) error
	// Exists は失効エントリが存在するかを返す。
	Exists(ctx context.Context, tokenString string) (bool, error)
}

// RevocationStore は失効済みリフレッシュトークンの二重ストア。
// 参照はキャッシュ優先で低レイテンシに行い、キャッシュミスや障害時は
// 永続ストアにフォールバックする。キャッシュは最適化であって正しさの
// 前提ではない: エントリがエビクトされても永続レコードが真実となるため、
// 失効済みトークンが誤って受理されることはない。
type RevocationStore struct {
	repo   repository.RevokedTokenRepository
	cache  RevocationCache
	logger *slog.Logger
}

// NewRevocationStore はRevocationStoreを生成する。
func NewRevocationStore(repo repository.RevokedTokenRepository, cache RevocationCache, logger *slog.Logger) *RevocationStore {
	return &RevocationStore{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Revoke はトークンを失効させる。
// 永続レコードを追記（重複は冪等なno-op）した上で、キャッシュに
// TTL付きエントリを書き込む。ttlHintにはトークンの残り有効期間を渡すこと。
// キャッシュエントリがトークンより長生きせず、自動的に回収される。
//
// 永続書き込みが成功していればキャッシュ書き込みの失敗は操作全体の失敗に
// しない: フォールバック参照が欠落エントリをカバーするため、ログのみ残す。
func (s *RevocationStore) Revoke(ctx context.Context, tokenString string, ttlHint time.Duration) error {
	revoked := &model.RevokedToken{
		ID:        uuid.New().String(),
		Token:     tokenString,
		RevokedAt: time.Now(),
	}
	if err := s.repo.Insert(ctx, revoked); err != nil {
		return err
	}

	// 残り有効期間がないトークンはキャッシュに書かない（自然期限で無効のため）
	if ttlHint <= 0 {
		return nil
	}

	if err := s.cache.Set(ctx, tokenString, ttlHint); err != nil {
		s.logger.Warn("失効キャッシュの書き込みに失敗しました（永続レコードは作成済み）",
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// IsRevoked はトークンが失効済みかを返す。
// キャッシュを先に参照し、ミスまたはキャッシュ障害時は永続ストアに
// フォールバックする。キャッシュ障害はリクエストを失敗させない。
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	found, err := s.cache.Exists(ctx, tokenString)
	if err != nil {
		s.logger.Warn("失効キャッシュの参照に失敗しました。永続ストアにフォールバックします",
			slog.String("error", err.Error()),
		)
	} else if found {
		return true, nil
	}

	return s.repo.Exists(ctx, tokenString)
}

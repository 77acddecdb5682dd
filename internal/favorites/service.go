package favorites

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/lorebook/internal/model"
	"github.com/hitoshi/lorebook/internal/repository"
)

// Service はお気に入りのビジネスロジックを提供する。
//
// キャッシュの整合性モデル:
//   - 読み取り: キャッシュヒットならDBに触れない。ミス時はDBから読み、
//     結果をTTL付きで書き戻す（cache-aside）。
//   - 書き込み: 先にDBへコミットし、成功した場合のみキャッシュを
//     無効化する。DB失敗時はキャッシュに触れない。
//
// キャッシュ操作の失敗は参照・変更の成否に影響しない（最悪でも
// TTL分の陳腐化、または余計なDB読みで済む）。
type Service struct {
	favoriteRepo repository.FavoriteRepository
	cache        Cache
	logger       *slog.Logger
}

// NewService はServiceを生成する。
func NewService(favoriteRepo repository.FavoriteRepository, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		favoriteRepo: favoriteRepo,
		cache:        cache,
		logger:       logger,
	}
}

// ListForUser はユーザーのお気に入りキャラクター一覧を登録順で返す。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.Character, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("お気に入りキャッシュの参照に失敗しました。DBから読み取ります",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	characters, err := s.favoriteRepo.ListCharactersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if characters == nil {
		characters = []model.Character{}
	}

	if err := s.cache.Set(ctx, userID, characters); err != nil {
		s.logger.Warn("お気に入りキャッシュの書き込みに失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return characters, nil
}

// Add はキャラクターをお気に入りに登録する。
// 登録済みはALREADY_FAVORITED、キャラクター不在はCHARACTER_NOT_FOUND。
func (s *Service) Add(ctx context.Context, userID, characterID string) error {
	if err := s.favoriteRepo.Add(ctx, userID, characterID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// Remove はキャラクターをお気に入りから解除する。
// 未登録はNOT_FAVORITED。
func (s *Service) Remove(ctx context.Context, userID, characterID string) error {
	if err := s.favoriteRepo.Remove(ctx, userID, characterID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// invalidate はコミット済みの変更をキャッシュに反映する。
// 失敗してもTTLで自然回復するため、ログのみ残す。
func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("お気に入りキャッシュの無効化に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

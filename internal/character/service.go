package character

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/lorebook/internal/model"
	"github.com/hitoshi/lorebook/internal/repository"
)

// 一覧クエリのページングの上限とデフォルト。
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Service はキャラクターカタログの参照ロジックを提供する。
// カタログは日次同期でのみ更新されるため、一覧ページは短いTTLの
// キャッシュで十分に新鮮さを保てる。
type Service struct {
	characterRepo repository.CharacterRepository
	cache         ListCache
	logger        *slog.Logger
}

// NewService はServiceを生成する。
func NewService(characterRepo repository.CharacterRepository, cache ListCache, logger *slog.Logger) *Service {
	return &Service{
		characterRepo: characterRepo,
		cache:         cache,
		logger:        logger,
	}
}

// List はキャラクター一覧を名前順で返す。
// nameが空でない場合は部分一致（大文字小文字を区別しない）で絞り込む。
// offset/limitは正規化され、limitはMaxListLimitを超えない。
func (s *Service) List(ctx context.Context, offset, limit int, name string) (*ListResult, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	cached, err := s.cache.Get(ctx, offset, limit, name)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("キャラクター一覧キャッシュの参照に失敗しました。DBから読み取ります",
			slog.String("error", err.Error()),
		)
	}

	characters, err := s.characterRepo.List(ctx, offset, limit, name)
	if err != nil {
		return nil, err
	}
	if characters == nil {
		characters = []model.Character{}
	}

	total, err := s.characterRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Characters: characters, Total: total}

	if err := s.cache.Set(ctx, offset, limit, name, result); err != nil {
		s.logger.Warn("キャラクター一覧キャッシュの書き込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}

	return result, nil
}

// FindByID はキャラクターをIDで取得する。
// 存在しない場合はCHARACTER_NOT_FOUNDを返す。
func (s *Service) FindByID(ctx context.Context, id string) (*model.Character, error) {
	character, err := s.characterRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if character == nil {
		return nil, model.NewCharacterNotFoundError(id)
	}
	return character, nil
}

// Package sync はキャラクターカタログの日次同期処理を提供する。
// 外部APIの全ページ取得、サニタイズ、冪等なバルクUPSERT、
// 同期完了後のキャッシュ無効化を含む。
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/lorebook/internal/lorapi"
	"github.com/hitoshi/lorebook/internal/metrics"
	"github.com/hitoshi/lorebook/internal/model"
	"github.com/hitoshi/lorebook/internal/repository"
	"github.com/hitoshi/lorebook/internal/security"
)

// CacheInvalidator は同期完了後に無効化するキャッシュのインターフェース。
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Job はキャラクターカタログの同期1回分を実行する。
//
// 実行順序は fetch → sanitize → upsert → キャッシュ無効化。
// fetchが失敗または0件の場合はDBに一切触れず、既存カタログを維持する。
// キャッシュ無効化の失敗は同期の成否に影響しない（TTLで自然回復する）。
type Job struct {
	fetcher       lorapi.CharacterFetcher
	characterRepo repository.CharacterRepository
	sanitizer     security.ContentSanitizerService
	invalidators  []CacheInvalidator
	collector     metrics.MetricsCollector
	logger        *slog.Logger
}

// NewJob はJobを生成する。
func NewJob(
	fetcher lorapi.CharacterFetcher,
	characterRepo repository.CharacterRepository,
	sanitizer security.ContentSanitizerService,
	invalidators []CacheInvalidator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Job {
	return &Job{
		fetcher:       fetcher,
		characterRepo: characterRepo,
		sanitizer:     sanitizer,
		invalidators:  invalidators,
		collector:     collector,
		logger:        logger,
	}
}

// Run は同期を1回実行する。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	j.logger.Info("キャラクター同期を開始します")

	characters, err := j.fetcher.FetchAll(ctx)
	if err != nil {
		j.logger.Error("キャラクターの取得に失敗しました。既存カタログを維持します",
			slog.String("error", err.Error()),
		)
		j.collector.RecordSyncFailure("fetch")
		return err
	}

	if len(characters) == 0 {
		j.logger.Warn("外部APIが0件を返しました。同期をスキップします")
		j.collector.RecordSyncFailure("empty")
		return nil
	}

	sanitized := j.sanitizeAll(characters)

	upserted, err := j.characterRepo.BulkUpsert(ctx, sanitized)
	if err != nil {
		j.logger.Error("キャラクターのUPSERTに失敗しました",
			slog.String("error", err.Error()),
		)
		j.collector.RecordSyncFailure("upsert")
		return err
	}

	// コミット後に無効化: 次回参照が新鮮なカタログを読み直す
	for _, inv := range j.invalidators {
		if err := inv.InvalidateAll(ctx); err != nil {
			j.logger.Warn("キャッシュの無効化に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	duration := time.Since(start)
	j.collector.RecordSyncSuccess()
	j.collector.RecordCharactersUpserted(upserted)
	j.collector.RecordSyncLatency(duration)

	j.logger.Info("キャラクター同期が完了しました",
		slog.Int("fetched", len(characters)),
		slog.Int("upserted", upserted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// sanitizeAll は外部APIの記述フィールドからHTMLマークアップを除去する。
// ExternalIDはUPSERTのキーであるため書き換えない。
func (j *Job) sanitizeAll(characters []model.ExternalCharacter) []model.ExternalCharacter {
	sanitized := make([]model.ExternalCharacter, 0, len(characters))
	for _, c := range characters {
		c.Name = j.sanitizer.Sanitize(c.Name)
		c.WikiURL = j.sanitizer.Sanitize(c.WikiURL)
		c.Race = j.sanitizer.Sanitize(c.Race)
		c.Birth = j.sanitizer.Sanitize(c.Birth)
		c.Gender = j.sanitizer.Sanitize(c.Gender)
		c.Death = j.sanitizer.Sanitize(c.Death)
		c.Hair = j.sanitizer.Sanitize(c.Hair)
		c.Height = j.sanitizer.Sanitize(c.Height)
		c.Realm = j.sanitizer.Sanitize(c.Realm)
		c.Spouse = j.sanitizer.Sanitize(c.Spouse)
		sanitized = append(sanitized, c)
	}
	return sanitized
}

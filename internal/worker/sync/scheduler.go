package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/lorebook/internal/repository"
)

// SyncJobService は同期ジョブの実行インターフェース。
type SyncJobService interface {
	// Run は同期を1回実行する。
	Run(ctx context.Context) error
}

// Scheduler はキャラクター同期のスケジューリングを行う。
//
// 毎日SyncHour時（サーバーのローカルタイム）に1回実行する。発火検査は
// 短い間隔のティッカーで「現在時刻が次回実行時刻を過ぎたか」を見る方式の
// ため、プロセスのスリープや一時停止で定刻を逃しても次の検査で実行される
// （定刻きっかりのタイマーと違い発火を失わない）。
//
// 同期は常に最大1インスタンス: 前回の実行が終わっていなければ
// 新しい発火はスキップされる。
type Scheduler struct {
	job           SyncJobService
	characterRepo repository.CharacterRepository
	logger        *slog.Logger
	syncHour      int
	checkInterval time.Duration

	mu sync.Mutex // 実行の単一飛行を保証する
}

// NewScheduler はSchedulerを生成する。
// checkIntervalが0以下の場合はデフォルト値1分を使用する。
func NewScheduler(
	job SyncJobService,
	characterRepo repository.CharacterRepository,
	logger *slog.Logger,
	syncHour int,
	checkInterval time.Duration,
) *Scheduler {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	return &Scheduler{
		job:           job,
		characterRepo: characterRepo,
		logger:        logger,
		syncHour:      syncHour,
		checkInterval: checkInterval,
	}
}

// Start はスケジューラを起動する。
// カタログが空の場合は起動直後に初回同期を実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("同期スケジューラを開始しました",
		slog.Int("sync_hour", s.syncHour),
		slog.Duration("check_interval", s.checkInterval),
	)

	// 初回デプロイ時: カタログが空ならスケジュールを待たず即座に同期する
	count, err := s.characterRepo.Count(ctx)
	if err != nil {
		s.logger.Error("カタログ件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
	} else if count == 0 {
		s.logger.Info("カタログが空のため初回同期を実行します")
		s.RunGuarded(ctx)
	}

	nextRun := s.nextRunAfter(time.Now())
	s.logger.Info("次回の同期時刻を設定しました",
		slog.Time("next_run", nextRun),
	)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("同期スケジューラを停止しました")
			return
		case <-ticker.C:
			now := time.Now()
			if now.Before(nextRun) {
				continue
			}
			nextRun = s.nextRunAfter(now)
			s.RunGuarded(ctx)
		}
	}
}

// RunGuarded は同期を1回実行する。既に実行中の場合はスキップする。
func (s *Scheduler) RunGuarded(ctx context.Context) {
	if !s.mu.TryLock() {
		s.logger.Warn("前回の同期が実行中のため、今回の実行をスキップします")
		return
	}
	defer s.mu.Unlock()

	if err := s.job.Run(ctx); err != nil {
		s.logger.Error("同期の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// nextRunAfter はnowより後で最初にSyncHour時を迎える時刻を返す。
func (s *Scheduler) nextRunAfter(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.syncHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

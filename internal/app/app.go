// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/lorebook/internal/auth"
	"github.com/hitoshi/lorebook/internal/cache"
	"github.com/hitoshi/lorebook/internal/character"
	"github.com/hitoshi/lorebook/internal/config"
	"github.com/hitoshi/lorebook/internal/database"
	"github.com/hitoshi/lorebook/internal/favorites"
	"github.com/hitoshi/lorebook/internal/handler"
	"github.com/hitoshi/lorebook/internal/logger"
	"github.com/hitoshi/lorebook/internal/lorapi"
	"github.com/hitoshi/lorebook/internal/metrics"
	"github.com/hitoshi/lorebook/internal/middleware"
	"github.com/hitoshi/lorebook/internal/repository"
	"github.com/hitoshi/lorebook/internal/security"
	"github.com/hitoshi/lorebook/internal/token"
	syncpkg "github.com/hitoshi/lorebook/internal/worker/sync"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Int("sync_hour", cfg.SyncHour),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DBとRedisへの接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. Redis接続
	redisClient, err := cache.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	slog.Info("redis connection established")

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	revokedRepo := repository.NewPostgresRevokedTokenRepo(db)
	characterRepo := repository.NewPostgresCharacterRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. トークン・失効ストアの初期化
	codec := token.NewCodec(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	revocationCache := auth.NewRedisRevocationCache(redisClient)
	revocationStore := auth.NewRevocationStore(revokedRepo, revocationCache, slog.Default())

	// 6. ドメインサービスの初期化
	authService := auth.NewService(userRepo, revocationStore, codec, auth.ServiceConfig{
		BcryptCost:      cfg.BcryptCost,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})

	favoritesCache := favorites.NewRedisCache(redisClient, cfg.FavoritesCacheTTL, collector)
	favoritesService := favorites.NewService(favoriteRepo, favoritesCache, slog.Default())

	characterCache := character.NewRedisListCache(redisClient, cfg.CharactersCacheTTL, collector)
	characterService := character.NewService(characterRepo, characterCache, slog.Default())

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		TokenDecoder:      codec,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		AuthService:      authService,
		CharacterService: characterService,
		FavoriteService:  favoritesService,
	})

	// 8. 共通ミドルウェアの適用（内側から: メトリクス → ロギング → セキュリティヘッダー → リカバリ）
	var root http.Handler = router
	root = middleware.NewMetricsMiddleware(collector)(root)
	root = middleware.NewLoggingMiddleware(slog.Default())(root)
	root = middleware.NewSecurityHeadersMiddleware()(root)
	root = middleware.NewRecoveryMiddleware()(root)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DBとRedisへの接続を開き、キャラクター同期スケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. Redis接続（同期完了後のキャッシュ無効化に使用）
	redisClient, err := cache.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	slog.Info("redis connection established (worker)")

	// 3. リポジトリ・メトリクスの初期化
	characterRepo := repository.NewPostgresCharacterRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 同期ジョブの初期化
	fetcher := lorapi.NewClient(cfg.LorAPIBaseURL, cfg.LorAPIKey, cfg.FetchTimeout, slog.Default())
	sanitizer := security.NewContentSanitizer()

	invalidators := []syncpkg.CacheInvalidator{
		character.NewRedisListCache(redisClient, cfg.CharactersCacheTTL, collector),
		favorites.NewRedisCache(redisClient, cfg.FavoritesCacheTTL, collector),
	}

	job := syncpkg.NewJob(fetcher, characterRepo, sanitizer, invalidators, collector, slog.Default())

	// 5. スケジューラの初期化
	scheduler := syncpkg.NewScheduler(
		job, characterRepo, slog.Default(), cfg.SyncHour, cfg.SyncCheckInterval,
	)

	// 6. メトリクス公開用の軽量HTTPサーバー
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("sync_hour", cfg.SyncHour),
		slog.Duration("check_interval", cfg.SyncCheckInterval),
	)

	// 同期スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

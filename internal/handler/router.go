package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/lorebook/internal/middleware"
)

// HealthChecker は依存先の疎通確認のインターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/signout", h.Signout)
		r.Get("/me", h.Me)
	})

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenDecoder      middleware.AccessTokenDecoder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface

	// キャラクター・お気に入り
	CharacterService CharacterServiceInterface
	FavoriteService  FavoriteServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → AuthMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）はミドルウェアチェーンの外に配置し、
// 資格情報を扱うエンドポイントにはIP別のレート制限のみを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	charHandler := NewCharacterHandler(deps.CharacterService, deps.FavoriteService)

	// --- 認証不要のルート ---

	// ヘルスチェック（Dockerヘルスチェック・LB用）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート。signup/login/refreshはブルートフォース対策として
	// IP別レート制限を適用する。
	authRateLimit := deps.RateLimiter.AuthMiddleware()
	r.Route("/auth", func(r chi.Router) {
		r.With(authRateLimit).Post("/signup", authHandler.Signup)
		r.With(authRateLimit).Post("/login", authHandler.Login)
		r.With(authRateLimit).Post("/refresh", authHandler.Refresh)
		r.Post("/signout", authHandler.Signout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenDecoder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// キャラクターカタログとお気に入り管理。
		// 静的パスの /favorites は {id} より優先してマッチする。
		r.Route("/characters", func(r chi.Router) {
			r.Get("/", charHandler.ListCharacters)
			r.Get("/favorites", charHandler.ListFavorites)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", charHandler.GetCharacter)
				r.Post("/favorites", charHandler.AddFavorite)
				r.Delete("/favorites", charHandler.RemoveFavorite)
			})
		})
	})

	return r
}

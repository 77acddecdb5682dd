package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lorebook/internal/model"
	"github.com/hitoshi/lorebook/internal/repository"
	"github.com/hitoshi/lorebook/internal/security"
	"github.com/hitoshi/lorebook/internal/token"
)

// TokenCodec はサービスが必要とするトークン発行・検証のインターフェース。
type TokenCodec interface {
	// Issue はsubjectと種別から署名付きトークンを発行する。
	Issue(subject string, kind token.Kind, now time.Time) (string, error)
	// Decode はトークンを検証してClaimsを返す。
	Decode(tokenString string) (*token.Claims, error)
}

// Revoker はリフレッシュトークンの失効操作のインターフェース。
// RevocationStoreの部分集合として定義する。
type Revoker interface {
	Revoke(ctx context.Context, tokenString string, ttlHint time.Duration) error
	IsRevoked(ctx context.Context, tokenString string) (bool, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost      int
	RefreshTokenTTL time.Duration // 失効時のTTLヒントのフォールバック値
}

// TokenPair はログイン・リフレッシュで発行されるトークンの組。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // 常に "Bearer"
}

// Service は認証に関するビジネスロジックを提供する。
//
// ログインサイクルの状態遷移:
//
//	未認証 → 認証済み（access+refresh発行） → [refresh → 新ペア発行]* → サインアウト（refresh失効）
type Service struct {
	userRepo   repository.UserRepository
	revocation Revoker
	codec      TokenCodec
	config     ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	revocation Revoker,
	codec TokenCodec,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:   userRepo,
		revocation: revocation,
		codec:      codec,
		config:     config,
	}
}

// Signup は新規ユーザーを登録する。
// username/emailの重複はリポジトリ層でDUPLICATE_USERエラーに変換され、
// どちらの制約に違反したかを呼び出し元が区別できる。
func (s *Service) Signup(ctx context.Context, username, email, password string) (*model.User, error) {
	hash, err := security.HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login はユーザー名とパスワードを検証し、トークンペアを発行する。
// ユーザー不在とパスワード不一致は列挙攻撃防止のため区別せず、
// どちらもINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !security.VerifyPassword(user.PasswordHash, password) {
		return nil, model.NewInvalidCredentialsError()
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

// Refresh は有効なリフレッシュトークンから新しいトークンペアを発行する。
// 失効済み・不正・期限切れ・種別不一致はすべてINVALID_REFRESH_TOKENに集約する。
//
// 消費したトークンはこの設計では失効させない（自然期限までの再利用を許容する
// rotation-without-revocation）。rotate-and-revokeへの強化は運用判断。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	revoked, err := s.revocation.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, model.NewInvalidRefreshTokenError()
	}

	claims, err := s.codec.Decode(refreshToken)
	if err != nil || claims.Kind != token.KindRefresh {
		return nil, model.NewInvalidRefreshTokenError()
	}

	return s.issuePair(claims.Subject)
}

// Signout はリフレッシュトークンを無条件に失効させる。
// 既に失効済み・期限切れでも成功する（冪等）。
// TTLヒントはトークンの残り有効期間。デコードできないトークンには
// 設定上の最大リフレッシュTTLをそのまま使う。
func (s *Service) Signout(ctx context.Context, refreshToken string) error {
	ttlHint := s.config.RefreshTokenTTL
	if claims, err := s.codec.Decode(refreshToken); err == nil {
		ttlHint = time.Until(claims.ExpiresAt)
	}

	if err := s.revocation.Revoke(ctx, refreshToken, ttlHint); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	slog.Info("user signed out")
	return nil
}

// CurrentUser はアクセストークンから現在のユーザーを解決する。
// 種別がaccessでない、検証に失敗する、またはsubjectが既存ユーザーに
// 解決できない場合はUNAUTHENTICATEDを返す。
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil || claims.Kind != token.KindAccess {
		return nil, model.NewUnauthenticatedError()
	}

	user, err := s.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError()
	}

	return user, nil
}

// issuePair はアクセス/リフレッシュのトークンペアを発行する。
func (s *Service) issuePair(userID string) (*TokenPair, error) {
	now := time.Now()

	access, err := s.codec.Issue(userID, token.KindAccess, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := s.codec.Issue(userID, token.KindRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, favorite, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeDuplicateUser       = "DUPLICATE_USER"
	ErrCodeAlreadyFavorited    = "ALREADY_FAVORITED"
	ErrCodeNotFavorited        = "NOT_FAVORITED"
	ErrCodeCharacterNotFound   = "CHARACTER_NOT_FOUND"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不在とパスワード不一致は列挙攻撃防止のため区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidRefreshTokenError はリフレッシュトークン無効エラーを生成する。
// 不正・期限切れ・失効済み・種別不一致は外向きには1つのシグナルに集約する。
func NewInvalidRefreshTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRefreshToken,
		Message:  "リフレッシュトークンが無効です。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUnauthenticatedError はアクセストークン無効エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewDuplicateUserError は登録済みユーザー重複エラーを生成する。
// どの一意制約に違反したか（username/email）を呼び出し元が区別できるようにする。
func NewDuplicateUserError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  fmt.Sprintf("この%sは既に使用されています。", field),
		Category: "validation",
		Action:   "別の値を指定してください。",
	}
}

// NewAlreadyFavoritedError はお気に入り重複登録エラーを生成する。
func NewAlreadyFavoritedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFavorited,
		Message:  "このキャラクターは既にお気に入りに登録されています。",
		Category: "favorite",
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewNotFavoritedError はお気に入り未登録エラーを生成する。
func NewNotFavoritedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFavorited,
		Message:  "このキャラクターはお気に入りに登録されていません。",
		Category: "favorite",
		Action:   "お気に入り一覧を確認してください。",
	}
}

// NewCharacterNotFoundError はキャラクター未検出エラーを生成する。
func NewCharacterNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeCharacterNotFound,
		Message:  fmt.Sprintf("指定されたキャラクターが見つかりません: %s", id),
		Category: "validation",
		Action:   "キャラクターIDを確認してください。",
	}
}

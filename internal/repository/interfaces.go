// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/lorebook/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// username/emailの一意制約違反はmodel.APIError（DUPLICATE_USER）として返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// RevokedTokenRepository は失効済みリフレッシュトークンの永続化インターフェース。
// 追記専用で、同一トークンの重複失効は冪等な no-op となる。
type RevokedTokenRepository interface {
	// Insert は失効レコードを追記する。既に存在する場合は何もしない。
	Insert(ctx context.Context, revoked *model.RevokedToken) error

	// Exists は指定トークンが失効済みかを返す。
	Exists(ctx context.Context, tokenString string) (bool, error)
}

// CharacterRepository はキャラクターデータの永続化インターフェース。
type CharacterRepository interface {
	// FindByID は指定IDのキャラクターを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Character, error)

	// List はoffset/limitと名前の部分一致フィルタ付きでキャラクター一覧を返す。
	// nameが空文字の場合はフィルタしない。
	List(ctx context.Context, offset, limit int, name string) ([]model.Character, error)

	// Count はキャラクターの総数を返す。初回同期の要否判定に使用する。
	Count(ctx context.Context) (int, error)

	// BulkUpsert は外部レコードをexternal_idをキーに一括UPSERTする。
	// 単一のアトミックな操作であり、失敗時は何もコミットされない。
	// 既存行は記述フィールドのみ上書きし、idとexternal_idは変更しない。
	// 戻り値は処理した行数。
	BulkUpsert(ctx context.Context, records []model.ExternalCharacter) (int, error)
}

// FavoriteRepository はユーザー×キャラクターのお気に入り関係の永続化インターフェース。
type FavoriteRepository interface {
	// Add はお気に入りを追加する。
	// 既登録はALREADY_FAVORITED、キャラクター不在はCHARACTER_NOT_FOUNDとして返す。
	Add(ctx context.Context, userID, characterID string) error

	// Remove はお気に入りを削除する。未登録はNOT_FAVORITEDとして返す。
	Remove(ctx context.Context, userID, characterID string) error

	// ListCharactersByUser はユーザーのお気に入りキャラクター一覧を
	// 登録日時の昇順で返す。
	ListCharactersByUser(ctx context.Context, userID string) ([]model.Character, error)
}

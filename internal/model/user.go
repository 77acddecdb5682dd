// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// パスワードはbcryptハッシュのみを保持し、平文は一切保存しない。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RevokedToken は失効済みリフレッシュトークンの永続レコードを表す。
// 追記専用の監査テーブルとして扱い、トークンの自然期限後も削除しない。
type RevokedToken struct {
	ID        string
	Token     string
	RevokedAt time.Time
}

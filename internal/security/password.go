// Package security はパスワードハッシュと外部コンテンツのサニタイズを提供する。
// 認証のドメインロジックからセキュリティ依存のプリミティブを分離する。
package security

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword は平文パスワードのbcryptハッシュを返す。
// costはbcryptのコストパラメータ（推奨: 10以上）。
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードがハッシュと一致するかを返す。
// bcryptの比較は定数時間で行われ、タイミング攻撃に耐性がある。
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

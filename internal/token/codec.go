// Package token はセッショントークンの発行と検証を提供する。
// 共有シークレットによるHS256署名付きJWTを使用し、アクセス/リフレッシュの
// 2種別を`typ`クレームで区別する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind はトークンの種別を表す。
type Kind string

const (
	// KindAccess はAPI呼び出しを認可する短命トークン。永続化されない。
	KindAccess Kind = "access"
	// KindRefresh は新しいトークンペアの発行にのみ使用する失効可能トークン。
	KindRefresh Kind = "refresh"
)

// ErrInvalidToken は署名不正・期限切れ・形式不正・種別不明のトークンを表す。
// 詳細は呼び出し元に区別させない。
var ErrInvalidToken = errors.New("invalid token")

// Claims はトークンにエンコードされるペイロードを表す。
type Claims struct {
	Subject   string
	Kind      Kind
	ExpiresAt time.Time
}

// jwtClaims はJWTのワイヤ形式。typクレームでアクセス/リフレッシュを区別する。
type jwtClaims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// Codec はトークンのエンコード/デコードを行う。
// シークレットとTTLは起動時に固定され、以後変更されない。
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec はCodecを生成する。
func NewCodec(secret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TTL は種別ごとの有効期間を返す。
func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue はsubjectと種別から署名付きトークンを発行する。
// 有効期限はnow + TTL(kind)。呼び出し元にとってトークンは不透明な文字列である。
func (c *Codec) Issue(subject string, kind Kind, now time.Time) (string, error) {
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(kind))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Type: string(kind),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode はトークンを検証してClaimsを返す。
// 署名不正・形式不正・期限切れ・種別不明はすべてErrInvalidTokenとなる。
// 期限の検査はここで行い、呼び出し元には委ねない。
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	kind := Kind(claims.Type)
	if kind != KindAccess && kind != KindRefresh {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Subject:   claims.Subject,
		Kind:      kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

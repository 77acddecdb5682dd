package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lorebook/internal/model"
)

// PostgresRevokedTokenRepo はPostgreSQLを使用した失効トークンリポジトリ。
// 監査証跡として追記専用で運用し、自然期限切れ後もレコードを保持する。
type PostgresRevokedTokenRepo struct {
	db *sql.DB
}

// NewPostgresRevokedTokenRepo はPostgresRevokedTokenRepoを生成する。
func NewPostgresRevokedTokenRepo(db *sql.DB) *PostgresRevokedTokenRepo {
	return &PostgresRevokedTokenRepo{db: db}
}

// Insert は失効レコードを追記する。
// 同一トークンの重複失効はON CONFLICT DO NOTHINGにより冪等なno-opとなる。
func (r *PostgresRevokedTokenRepo) Insert(ctx context.Context, revoked *model.RevokedToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (id, token, revoked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO NOTHING`,
		revoked.ID, revoked.Token, revoked.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert revoked token: %w", err)
	}
	return nil
}

// Exists は指定トークンが失効済みかを返す。
func (r *PostgresRevokedTokenRepo) Exists(ctx context.Context, tokenString string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM revoked_tokens WHERE token = $1`,
		tokenString,
	).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}

	return true, nil
}

// compile-time interface check
var _ RevokedTokenRepository = (*PostgresRevokedTokenRepo)(nil)

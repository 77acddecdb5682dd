package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/lorebook/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
// (user_id, character_id) の一意性はデータベースの主キー制約で保証し、
// 制約違反をドメインエラーに変換する。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// Add はお気に入りを追加する。
// 一意制約違反（重複登録）はALREADY_FAVORITED、外部キー制約違反
// （キャラクター不在）はCHARACTER_NOT_FOUNDに変換する。
func (r *PostgresFavoriteRepo) Add(ctx context.Context, userID, characterID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_favorite_characters (user_id, character_id, created_at)
		 VALUES ($1, $2, $3)`,
		userID, characterID, time.Now(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				return model.NewAlreadyFavoritedError()
			case "23503": // foreign_key_violation
				return model.NewCharacterNotFoundError(characterID)
			}
		}
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return nil
}

// Remove はお気に入りを削除する。対象行が存在しない場合はNOT_FAVORITEDを返す。
func (r *PostgresFavoriteRepo) Remove(ctx context.Context, userID, characterID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_favorite_characters WHERE user_id = $1 AND character_id = $2`,
		userID, characterID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return model.NewNotFavoritedError()
	}

	return nil
}

// ListCharactersByUser はユーザーのお気に入りキャラクター一覧を
// 登録日時の昇順で返す。
func (r *PostgresFavoriteRepo) ListCharactersByUser(ctx context.Context, userID string) ([]model.Character, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.external_id, c.name, c.wiki_url, c.race, c.birth, c.gender,
		        c.death, c.hair, c.height, c.realm, c.spouse, c.created_at, c.updated_at
		 FROM lor_characters c
		 JOIN user_favorite_characters f ON f.character_id = c.id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorite characters: %w", err)
	}
	defer rows.Close()

	characters := []model.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite character: %w", err)
		}
		characters = append(characters, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorite characters: %w", err)
	}

	return characters, nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)

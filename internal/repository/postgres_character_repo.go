package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lorebook/internal/model"
)

// characterColumns はSELECT句で使用するカラムリスト。
const characterColumns = `id, external_id, name, wiki_url, race, birth, gender, death, hair, height, realm, spouse, created_at, updated_at`

// PostgresCharacterRepo はPostgreSQLを使用したキャラクターリポジトリ。
type PostgresCharacterRepo struct {
	db *sql.DB
}

// NewPostgresCharacterRepo はPostgresCharacterRepoを生成する。
func NewPostgresCharacterRepo(db *sql.DB) *PostgresCharacterRepo {
	return &PostgresCharacterRepo{db: db}
}

// scanCharacter は1行分のキャラクターをスキャンする。
func scanCharacter(row interface{ Scan(...interface{}) error }) (*model.Character, error) {
	c := &model.Character{}
	err := row.Scan(&c.ID, &c.ExternalID, &c.Name, &c.WikiURL, &c.Race, &c.Birth,
		&c.Gender, &c.Death, &c.Hair, &c.Height, &c.Realm, &c.Spouse,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindByID は指定IDのキャラクターを取得する。見つからない場合はnilを返す。
func (r *PostgresCharacterRepo) FindByID(ctx context.Context, id string) (*model.Character, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM lor_characters WHERE id = $1`,
		id,
	)
	c, err := scanCharacter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find character by ID: %w", err)
	}
	return c, nil
}

// List はoffset/limitと名前の部分一致フィルタ付きでキャラクター一覧を返す。
// 名前フィルタは大文字小文字を区別しない（ILIKE）。
func (r *PostgresCharacterRepo) List(ctx context.Context, offset, limit int, name string) ([]model.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM lor_characters`
	args := []interface{}{}

	if name != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+name+"%")
	}
	query += fmt.Sprintf(` ORDER BY name OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	characters := []model.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		characters = append(characters, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate characters: %w", err)
	}

	return characters, nil
}

// Count はキャラクターの総数を返す。
func (r *PostgresCharacterRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM lor_characters`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count characters: %w", err)
	}
	return count, nil
}

// BulkUpsert は外部レコードをexternal_idをキーに一括UPSERTする。
// 単一のINSERT ... ON CONFLICT文で実行するため全件が1つのアトミックな操作となり、
// 失敗時は何もコミットされない。既存行は記述フィールドのみEXCLUDEDで上書きし、
// idとexternal_idには触れない。
func (r *PostgresCharacterRepo) BulkUpsert(ctx context.Context, records []model.ExternalCharacter) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now()

	var sb strings.Builder
	sb.WriteString(`INSERT INTO lor_characters
		(id, external_id, name, wiki_url, race, birth, gender, death, hair, height, realm, spouse, created_at, updated_at)
		VALUES `)

	const cols = 14
	args := make([]interface{}, 0, len(records)*cols)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		sb.WriteString("(")
		for j := 1; j <= cols; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			uuid.New().String(), rec.ExternalID, rec.Name, rec.WikiURL, rec.Race,
			rec.Birth, rec.Gender, rec.Death, rec.Hair, rec.Height, rec.Realm,
			rec.Spouse, now, now,
		)
	}

	sb.WriteString(` ON CONFLICT (external_id) DO UPDATE SET
		name = EXCLUDED.name,
		wiki_url = EXCLUDED.wiki_url,
		race = EXCLUDED.race,
		birth = EXCLUDED.birth,
		gender = EXCLUDED.gender,
		death = EXCLUDED.death,
		hair = EXCLUDED.hair,
		height = EXCLUDED.height,
		realm = EXCLUDED.realm,
		spouse = EXCLUDED.spouse,
		updated_at = EXCLUDED.updated_at`)

	result, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk upsert characters: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(affected), nil
}

// compile-time interface check
var _ CharacterRepository = (*PostgresCharacterRepo)(nil)

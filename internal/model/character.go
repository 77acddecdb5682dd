// Package model はドメインモデルを定義する。
package model

import "time"

// Character は外部APIから同期したLoTRキャラクターを表す。
// ExternalIDは外部APIの`_id`に対応し、同期をまたいで安定した一意キーとなる。
// 再同期時はExternalIDをキーに記述フィールドのみが上書きされ、行は重複しない。
type Character struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	WikiURL    string    `json:"wiki_url"`
	Race       string    `json:"race"`
	Birth      string    `json:"birth"`
	Gender     string    `json:"gender"`
	Death      string    `json:"death"`
	Hair       string    `json:"hair"`
	Height     string    `json:"height"`
	Realm      string    `json:"realm"`
	Spouse     string    `json:"spouse"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ExternalCharacter は外部APIのレスポンスに含まれる1キャラクター分の生データを表す。
// フェッチャーがページを走査した後、SyncJobのバルクUPSERTに渡される。
type ExternalCharacter struct {
	ExternalID string `json:"_id"`
	Name       string `json:"name"`
	WikiURL    string `json:"wikiUrl"`
	Race       string `json:"race"`
	Birth      string `json:"birth"`
	Gender     string `json:"gender"`
	Death      string `json:"death"`
	Hair       string `json:"hair"`
	Height     string `json:"height"`
	Realm      string `json:"realm"`
	Spouse     string `json:"spouse"`
}

// Favorite はユーザーとキャラクターのお気に入り関係を表す。
// (UserID, CharacterID) の組はデータベースの一意制約で保証される。
type Favorite struct {
	UserID      string
	CharacterID string
	CreatedAt   time.Time
}

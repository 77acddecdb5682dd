package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/lorebook/internal/character"
	"github.com/hitoshi/lorebook/internal/middleware"
	"github.com/hitoshi/lorebook/internal/model"
)

// CharacterServiceInterface はキャラクターハンドラーが必要とするサービスインターフェース。
type CharacterServiceInterface interface {
	// List はページネーションと名前フィルタ付きでキャラクター一覧を返す。
	List(ctx context.Context, offset, limit int, name string) (*character.ListResult, error)
	// FindByID はIDでキャラクターを取得する。
	FindByID(ctx context.Context, id string) (*model.Character, error)
}

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	// ListForUser はユーザーのお気に入りキャラクター一覧を返す。
	ListForUser(ctx context.Context, userID string) ([]model.Character, error)
	// Add はキャラクターをお気に入りに追加する。
	Add(ctx context.Context, userID, characterID string) error
	// Remove はキャラクターをお気に入りから削除する。
	Remove(ctx context.Context, userID, characterID string) error
}

// CharacterHandler はキャラクター閲覧・お気に入り管理のHTTPハンドラー。
type CharacterHandler struct {
	characters CharacterServiceInterface
	favorites  FavoriteServiceInterface
}

// NewCharacterHandler はCharacterHandlerを生成する。
func NewCharacterHandler(characters CharacterServiceInterface, favorites FavoriteServiceInterface) *CharacterHandler {
	return &CharacterHandler{
		characters: characters,
		favorites:  favorites,
	}
}

// characterResponse はキャラクター情報のAPIレスポンス。
type characterResponse struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	WikiURL    string `json:"wiki_url"`
	Race       string `json:"race"`
	Birth      string `json:"birth"`
	Gender     string `json:"gender"`
	Death      string `json:"death"`
	Hair       string `json:"hair"`
	Height     string `json:"height"`
	Realm      string `json:"realm"`
	Spouse     string `json:"spouse"`
}

// ListCharacters はキャラクター一覧を返す。
// レスポンスはキャラクターのJSON配列。
// GET /characters?offset=0&limit=20&name=gandalf
func (h *CharacterHandler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", character.DefaultListLimit)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")

	result, err := h.characters.List(r.Context(), offset, limit, name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCharacterResponses(result.Characters))
}

// GetCharacter はキャラクター詳細を返す。
// GET /characters/:id
func (h *CharacterHandler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	char, err := h.characters.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCharacterResponse(char))
}

// AddFavorite はキャラクターをお気に入りに追加する。
// POST /characters/:id/favorites
func (h *CharacterHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	characterID := chi.URLParam(r, "id")

	if err := h.favorites.Add(r.Context(), userID, characterID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgResponse{Msg: "お気に入りに追加しました。"})
}

// RemoveFavorite はキャラクターをお気に入りから削除する。
// DELETE /characters/:id/favorites
func (h *CharacterHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	characterID := chi.URLParam(r, "id")

	if err := h.favorites.Remove(r.Context(), userID, characterID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgResponse{Msg: "お気に入りから削除しました。"})
}

// ListFavorites はユーザーのお気に入りキャラクター一覧を返す。
// GET /characters/favorites
func (h *CharacterHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	characters, err := h.favorites.ListForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCharacterResponses(characters))
}

// --- ヘルパー関数 ---

// queryInt はクエリパラメータを整数として解析する。
// パラメータ未指定時はフォールバック値を返し、数値として解析できない場合は
// 400エラーを書き込んでfalseを返す。
func queryInt(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  key + "は整数で指定してください。",
			Category: "validation",
			Action:   "クエリパラメータを確認してください。",
		})
		return 0, false
	}
	return value, true
}

// toCharacterResponse はmodel.CharacterからAPIレスポンスに変換する。
func toCharacterResponse(char *model.Character) characterResponse {
	return characterResponse{
		ID:         char.ID,
		ExternalID: char.ExternalID,
		Name:       char.Name,
		WikiURL:    char.WikiURL,
		Race:       char.Race,
		Birth:      char.Birth,
		Gender:     char.Gender,
		Death:      char.Death,
		Hair:       char.Hair,
		Height:     char.Height,
		Realm:      char.Realm,
		Spouse:     char.Spouse,
	}
}

// toCharacterResponses はmodel.CharacterのスライスをAPIレスポンスに変換する。
// nilスライスでも空配列としてシリアライズされるよう必ず非nilで返す。
func toCharacterResponses(characters []model.Character) []characterResponse {
	results := make([]characterResponse, len(characters))
	for i := range characters {
		results[i] = toCharacterResponse(&characters[i])
	}
	return results
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lorebook/internal/character"
	"github.com/hitoshi/lorebook/internal/middleware"
	"github.com/hitoshi/lorebook/internal/model"
)

// --- モック定義 ---

type mockCharacterService struct {
	ListFunc     func(ctx context.Context, offset, limit int, name string) (*character.ListResult, error)
	FindByIDFunc func(ctx context.Context, id string) (*model.Character, error)
}

func (m *mockCharacterService) List(ctx context.Context, offset, limit int, name string) (*character.ListResult, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, offset, limit, name)
	}
	return &character.ListResult{Characters: []model.Character{}}, nil
}

func (m *mockCharacterService) FindByID(ctx context.Context, id string) (*model.Character, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, model.NewCharacterNotFoundError(id)
}

type mockFavoriteService struct {
	ListForUserFunc func(ctx context.Context, userID string) ([]model.Character, error)
	AddFunc         func(ctx context.Context, userID, characterID string) error
	RemoveFunc      func(ctx context.Context, userID, characterID string) error
}

func (m *mockFavoriteService) ListForUser(ctx context.Context, userID string) ([]model.Character, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID)
	}
	return []model.Character{}, nil
}

func (m *mockFavoriteService) Add(ctx context.Context, userID, characterID string) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, userID, characterID)
	}
	return nil
}

func (m *mockFavoriteService) Remove(ctx context.Context, userID, characterID string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, userID, characterID)
	}
	return nil
}

var _ CharacterServiceInterface = (*mockCharacterService)(nil)
var _ FavoriteServiceInterface = (*mockFavoriteService)(nil)

func testCharacter(id, name string) model.Character {
	return model.Character{
		ID:         id,
		ExternalID: "ext-" + id,
		Name:       name,
		Race:       "Maiar",
		WikiURL:    "http://lotr.example/" + name,
	}
}

// characterTestRouter はURLパラメータの解決にchiルーターを経由させる。
func characterTestRouter(h *CharacterHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/characters", h.ListCharacters)
	r.Get("/characters/favorites", h.ListFavorites)
	r.Get("/characters/{id}", h.GetCharacter)
	r.Post("/characters/{id}/favorites", h.AddFavorite)
	r.Delete("/characters/{id}/favorites", h.RemoveFavorite)
	return r
}

// authedRequest はユーザーIDをコンテキストに注入したリクエストを生成する。
func authedRequest(method, target, userID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// --- テスト ---

func TestListCharacters_DefaultPagination(t *testing.T) {
	var gotOffset, gotLimit int
	var gotName string
	h := NewCharacterHandler(&mockCharacterService{
		ListFunc: func(ctx context.Context, offset, limit int, name string) (*character.ListResult, error) {
			gotOffset = offset
			gotLimit = limit
			gotName = name
			return &character.ListResult{
				Characters: []model.Character{testCharacter("char-1", "Gandalf")},
				Total:      933,
			}, nil
		},
	}, &mockFavoriteService{})

	w := httptest.NewRecorder()
	characterTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/characters", nil))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotOffset != 0 || gotLimit != character.DefaultListLimit || gotName != "" {
		t.Errorf("List called with (%d, %d, %q)", gotOffset, gotLimit, gotName)
	}

	var body []characterResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("characters length = %d, want 1", len(body))
	}
	if body[0].Name != "Gandalf" {
		t.Errorf("name = %q, want %q", body[0].Name, "Gandalf")
	}
}

func TestListCharacters_QueryParamsPassedThrough(t *testing.T) {
	var gotOffset, gotLimit int
	var gotName string
	h := NewCharacterHandler(&mockCharacterService{
		ListFunc: func(ctx context.Context, offset, limit int, name string) (*character.ListResult, error) {
			gotOffset = offset
			gotLimit = limit
			gotName = name
			return &character.ListResult{Characters: []model.Character{}}, nil
		},
	}, &mockFavoriteService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/characters?offset=40&limit=10&name=gandalf", nil)
	characterTestRouter(h).ServeHTTP(w, req)

	if gotOffset != 40 || gotLimit != 10 || gotName != "gandalf" {
		t.Errorf("List called with (%d, %d, %q), want (40, 10, %q)", gotOffset, gotLimit, gotName, "gandalf")
	}
}

func TestListCharacters_NonNumericLimit_Returns400(t *testing.T) {
	h := NewCharacterHandler(&mockCharacterService{
		ListFunc: func(ctx context.Context, offset, limit int, name string) (*character.ListResult, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}, &mockFavoriteService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/characters?limit=abc", nil)
	characterTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestListCharacters_EmptyCatalog_ReturnsEmptyArray(t *testing.T) {
	h := NewCharacterHandler(&mockCharacterService{
		ListFunc: func(ctx context.Context, offset, limit int, name string) (*character.ListResult, error) {
			return &character.ListResult{Characters: nil, Total: 0}, nil
		},
	}, &mockFavoriteService{})

	w := httptest.NewRecorder()
	characterTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/characters", nil))

	// nilスライスでもnullではなく空配列を返す
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestGetCharacter_Found_ReturnsCharacter(t *testing.T) {
	var gotID string
	h := NewCharacterHandler(&mockCharacterService{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Character, error) {
			gotID = id
			char := testCharacter("char-1", "Gandalf")
			return &char, nil
		},
	}, &mockFavoriteService{})

	w := httptest.NewRecorder()
	characterTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/characters/char-1", nil))

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotID != "char-1" {
		t.Errorf("id = %q, want %q", gotID, "char-1")
	}

	var body characterResponse
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body.Name != "Gandalf" {
		t.Errorf("name = %q, want %q", body.Name, "Gandalf")
	}
	if body.ExternalID != "ext-char-1" {
		t.Errorf("external_id = %q, want %q", body.ExternalID, "ext-char-1")
	}
}

func TestGetCharacter_NotFound_Returns404(t *testing.T) {
	h := NewCharacterHandler(&mockCharacterService{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Character, error) {
			return nil, model.NewCharacterNotFoundError(id)
		},
	}, &mockFavoriteService{})

	w := httptest.NewRecorder()
	characterTestRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/characters/no-such-id", nil))

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}

	var body apiErrorResponse
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body.Code != model.ErrCodeCharacterNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeCharacterNotFound)
	}
}

func TestAddFavorite_Success_Returns200(t *testing.T) {
	var gotUserID, gotCharacterID string
	h := NewCharacterHandler(&mockCharacterService{}, &mockFavoriteService{
		AddFunc: func(ctx context.Context, userID, characterID string) error {
			gotUserID = userID
			gotCharacterID = characterID
			return nil
		},
	})

	w := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/characters/char-1/favorites", "user-1")
	characterTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotUserID != "user-1" || gotCharacterID != "char-1" {
		t.Errorf("Add called with (%q, %q)", gotUserID, gotCharacterID)
	}
}

func TestAddFavorite_AlreadyFavorited_Returns400(t *testing.T) {
	h := NewCharacterHandler(&mockCharacterService{}, &mockFavoriteService{
		AddFunc: func(ctx context.Context, userID, characterID string) error {
			return model.NewAlreadyFavoritedError()
		},
	})

	w := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/characters/char-1/favorites", "user-1")
	characterTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAddFavorite_NoUserInContext_Returns401(t *testing.T) {
	h := NewCharacterHandler(&mockCharacterService{}, &mockFavoriteService{
		AddFunc: func(ctx context.Context, userID, characterID string) error {
			t.Fatal("service should not be called")
			return nil
		},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/characters/char-1/favorites", nil)
	characterTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRemoveFavorite_Success_Returns200(t *testing.T) {
	var gotUserID, gotCharacterID string
	h := NewCharacterHandler(&mockCharacterService{}, &mockFavoriteService{
		RemoveFunc: func(ctx context.Context, userID, characterID string) error {
			gotUserID = userID
			gotCharacterID = characterID
			return nil
		},
	})

	w := httptest.NewRecorder()
	req := authedRequest(http.MethodDelete, "/characters/char-1/favorites", "user-1")
	characterTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotUserID != "user-1" || gotCharacterID != "char-1" {
		t.Errorf("Remove called with (%q, %q)", gotUserID, gotCharacterID)
	}
}

func TestRemoveFavorite_NotFavorited_Returns404(t *testing.T) {
	h := NewCharacterHandler(&mockCharacterService{}, &mockFavoriteService{
		RemoveFunc: func(ctx context.Context, userID, characterID string) error {
			return model.NewNotFavoritedError()
		},
	})

	w := httptest.NewRecorder()
	req := authedRequest(http.MethodDelete, "/characters/char-1/favorites", "user-1")
	characterTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestListFavorites_ReturnsUserCharacters(t *testing.T) {
	var gotUserID string
	h := NewCharacterHandler(&mockCharacterService{}, &mockFavoriteService{
		ListForUserFunc: func(ctx context.Context, userID string) ([]model.Character, error) {
			gotUserID = userID
			return []model.Character{
				testCharacter("char-1", "Gandalf"),
				testCharacter("char-2", "Aragorn"),
			}, nil
		},
	})

	w := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/characters/favorites", "user-1")
	characterTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-1")
	}

	var body []characterResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("characters length = %d, want 2", len(body))
	}
	if body[1].Name != "Aragorn" {
		t.Errorf("name = %q, want %q", body[1].Name, "Aragorn")
	}
}

func TestListFavorites_EmptyList_ReturnsEmptyArray(t *testing.T) {
	h := NewCharacterHandler(&mockCharacterService{}, &mockFavoriteService{
		ListForUserFunc: func(ctx context.Context, userID string) ([]model.Character, error) {
			return []model.Character{}, nil
		},
	})

	w := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/characters/favorites", "user-1")
	characterTestRouter(h).ServeHTTP(w, req)

	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

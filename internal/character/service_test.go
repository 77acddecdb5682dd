package character

import (
	"context"
	"io"
	"errors"
	"log/slog"
	"testing"

	"github.com/hitoshi/lorebook/internal/model"
)

// --- モック定義 ---

type mockCharacterRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.Character, error)
	listFn       func(ctx context.Context, offset, limit int, name string) ([]model.Character, error)
	countFn      func(ctx context.Context) (int, error)
	bulkUpsertFn func(ctx context.Context, characters []model.ExternalCharacter) (int, error)
}

func (m *mockCharacterRepo) FindByID(ctx context.Context, id string) (*model.Character, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCharacterRepo) List(ctx context.Context, offset, limit int, name string) ([]model.Character, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit, name)
	}
	return nil, nil
}

func (m *mockCharacterRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockCharacterRepo) BulkUpsert(ctx context.Context, characters []model.ExternalCharacter) (int, error) {
	if m.bulkUpsertFn != nil {
		return m.bulkUpsertFn(ctx, characters)
	}
	return 0, nil
}

type mockListCache struct {
	getFn           func(ctx context.Context, offset, limit int, name string) (*ListResult, error)
	setFn           func(ctx context.Context, offset, limit int, name string, result *ListResult) error
	invalidateAllFn func(ctx context.Context) error
}

func (m *mockListCache) Get(ctx context.Context, offset, limit int, name string) (*ListResult, error) {
	if m.getFn != nil {
		return m.getFn(ctx, offset, limit, name)
	}
	return nil, ErrCacheMiss
}

func (m *mockListCache) Set(ctx context.Context, offset, limit int, name string, result *ListResult) error {
	if m.setFn != nil {
		return m.setFn(ctx, offset, limit, name, result)
	}
	return nil
}

func (m *mockListCache) InvalidateAll(ctx context.Context) error {
	if m.invalidateAllFn != nil {
		return m.invalidateAllFn(ctx)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- テスト ---

func TestService_List_CacheHit_SkipsRepository(t *testing.T) {
	repo := &mockCharacterRepo{
		listFn: func(ctx context.Context, offset, limit int, name string) ([]model.Character, error) {
			t.Error("repository should not be queried on cache hit")
			return nil, nil
		},
	}
	cache := &mockListCache{
		getFn: func(ctx context.Context, offset, limit int, name string) (*ListResult, error) {
			return &ListResult{
				Characters: []model.Character{{ID: "char-1", Name: "Aragorn II Elessar"}},
				Total:      933,
			}, nil
		},
	}

	svc := NewService(repo, cache, discardLogger())

	result, err := svc.List(context.Background(), 0, 20, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 933 || len(result.Characters) != 1 {
		t.Errorf("result = %+v, want cached page", result)
	}
}

func TestService_List_CacheMiss_ReadsAndBackfills(t *testing.T) {
	repo := &mockCharacterRepo{
		listFn: func(ctx context.Context, offset, limit int, name string) ([]model.Character, error) {
			return []model.Character{{ID: "char-1"}, {ID: "char-2"}}, nil
		},
		countFn: func(ctx context.Context) (int, error) {
			return 2, nil
		},
	}

	var backfilled *ListResult
	cache := &mockListCache{
		setFn: func(ctx context.Context, offset, limit int, name string, result *ListResult) error {
			backfilled = result
			return nil
		},
	}

	svc := NewService(repo, cache, discardLogger())

	result, err := svc.List(context.Background(), 0, 20, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Characters) != 2 || result.Total != 2 {
		t.Errorf("result = %+v, want 2 characters / total 2", result)
	}
	if backfilled == nil || backfilled.Total != 2 {
		t.Errorf("backfilled = %+v, want repository result", backfilled)
	}
}

func TestService_List_NormalizesPagination(t *testing.T) {
	var gotOffset, gotLimit int
	repo := &mockCharacterRepo{
		listFn: func(ctx context.Context, offset, limit int, name string) ([]model.Character, error) {
			gotOffset, gotLimit = offset, limit
			return nil, nil
		},
	}

	svc := NewService(repo, &mockListCache{}, discardLogger())

	if _, err := svc.List(context.Background(), -5, 0, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOffset != 0 || gotLimit != DefaultListLimit {
		t.Errorf("offset/limit = %d/%d, want 0/%d", gotOffset, gotLimit, DefaultListLimit)
	}

	if _, err := svc.List(context.Background(), 0, 10000, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != MaxListLimit {
		t.Errorf("limit = %d, want capped at %d", gotLimit, MaxListLimit)
	}
}

func TestService_List_NameFilter_PassedThrough(t *testing.T) {
	var gotName string
	repo := &mockCharacterRepo{
		listFn: func(ctx context.Context, offset, limit int, name string) ([]model.Character, error) {
			gotName = name
			return nil, nil
		},
	}

	svc := NewService(repo, &mockListCache{}, discardLogger())

	if _, err := svc.List(context.Background(), 0, 20, "gandalf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotName != "gandalf" {
		t.Errorf("name = %q, want %q", gotName, "gandalf")
	}
}

func TestService_List_CacheError_FallsBackToRepository(t *testing.T) {
	repo := &mockCharacterRepo{
		listFn: func(ctx context.Context, offset, limit int, name string) ([]model.Character, error) {
			return []model.Character{{ID: "char-1"}}, nil
		},
		countFn: func(ctx context.Context) (int, error) {
			return 1, nil
		},
	}
	cache := &mockListCache{
		getFn: func(ctx context.Context, offset, limit int, name string) (*ListResult, error) {
			return nil, errors.New("redis down")
		},
		setFn: func(ctx context.Context, offset, limit int, name string, result *ListResult) error {
			return errors.New("redis down")
		},
	}

	svc := NewService(repo, cache, discardLogger())

	result, err := svc.List(context.Background(), 0, 20, "")
	if err != nil {
		t.Fatalf("cache failure must not fail the read: %v", err)
	}
	if len(result.Characters) != 1 {
		t.Errorf("len = %d, want 1", len(result.Characters))
	}
}

func TestService_FindByID_Found(t *testing.T) {
	repo := &mockCharacterRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Character, error) {
			if id == "char-1" {
				return &model.Character{ID: "char-1", Name: "Gandalf"}, nil
			}
			return nil, nil
		},
	}

	svc := NewService(repo, &mockListCache{}, discardLogger())

	got, err := svc.FindByID(context.Background(), "char-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Gandalf" {
		t.Errorf("name = %q, want %q", got.Name, "Gandalf")
	}
}

func TestService_FindByID_NotFound(t *testing.T) {
	svc := NewService(&mockCharacterRepo{}, &mockListCache{}, discardLogger())

	_, err := svc.FindByID(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCharacterNotFound {
		t.Errorf("err = %v, want CHARACTER_NOT_FOUND", err)
	}
}

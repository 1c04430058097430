package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/newsdeck/internal/model"
)

func loggedInWorkspace(favorites *mockFavoriteArticleService) *mockWorkspace {
	return &mockWorkspace{
		auth:      &mockAuthService{authenticated: true},
		favorites: favorites,
	}
}

// --- GET /api/favorites テスト ---

func TestFavoriteHandler_List(t *testing.T) {
	favs := &mockFavoriteArticleService{
		listFn: func(ctx context.Context) ([]model.FavoriteArticle, error) {
			return []model.FavoriteArticle{{ID: 1, Article: 10}, {ID: 2, Article: 11}}, nil
		},
	}
	h := NewFavoriteHandler(&mockProvider{ws: loggedInWorkspace(favs)})

	req := withClientID(httptest.NewRequest(http.MethodGet, "/api/favorites", nil), "client-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got []model.FavoriteArticle
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) != 2 {
		t.Errorf("favorites = %d, want 2", len(got))
	}
}

func TestFavoriteHandler_RequiresLogin(t *testing.T) {
	h := NewFavoriteHandler(&mockProvider{ws: &mockWorkspace{}})

	req := withClientID(httptest.NewRequest(http.MethodGet, "/api/favorites", nil), "client-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- POST /api/favorites テスト ---

func TestFavoriteHandler_Add_TrimsNotes(t *testing.T) {
	var gotArticle int
	var gotNotes string
	favs := &mockFavoriteArticleService{
		addFn: func(ctx context.Context, articleID int, notes string) (model.FavoriteArticle, error) {
			gotArticle, gotNotes = articleID, notes
			return model.FavoriteArticle{ID: 3, Article: articleID, Notes: notes}, nil
		},
	}
	h := NewFavoriteHandler(&mockProvider{ws: loggedInWorkspace(favs)})

	req := withClientID(httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(`{"article":10,"notes":"  прочитать  "}`)), "client-1")
	w := httptest.NewRecorder()

	h.Add(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if gotArticle != 10 || gotNotes != "прочитать" {
		t.Errorf("Add(%d, %q), want (10, %q)", gotArticle, gotNotes, "прочитать")
	}
}

func TestFavoriteHandler_Add_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"記事未指定", `{"notes":"x"}`, "article"},
		{"メモが長すぎる", `{"article":1,"notes":"` + strings.Repeat("я", maxNotesLength+1) + `"}`, "notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFavoriteHandler(&mockProvider{ws: loggedInWorkspace(&mockFavoriteArticleService{})})

			req := withClientID(httptest.NewRequest(http.MethodPost, "/api/favorites", strings.NewReader(tt.body)), "client-1")
			w := httptest.NewRecorder()

			h.Add(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if body := decodeError(t, w); body.Fields[tt.field] == "" {
				t.Errorf("fields = %v, want %s", body.Fields, tt.field)
			}
		})
	}
}

// --- PATCH/DELETE /api/favorites/{id} テスト ---

func TestFavoriteHandler_Update(t *testing.T) {
	favs := &mockFavoriteArticleService{
		updateFn: func(ctx context.Context, id int, notes string) (model.FavoriteArticle, error) {
			if id != 3 || notes != "новая" {
				t.Errorf("Update(%d, %q)", id, notes)
			}
			return model.FavoriteArticle{ID: 3, Notes: notes}, nil
		},
	}
	h := NewFavoriteHandler(&mockProvider{ws: loggedInWorkspace(favs)})

	req := withClientID(httptest.NewRequest(http.MethodPatch, "/api/favorites/3", strings.NewReader(`{"notes":"новая"}`)), "client-1")
	req = withChiURLParam(req, "id", "3")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestFavoriteHandler_Remove_NotFound(t *testing.T) {
	favs := &mockFavoriteArticleService{
		removeFn: func(ctx context.Context, id int) error {
			return &model.HTTPError{Status: http.StatusNotFound, Path: "/api/auth/favorites/3/"}
		},
	}
	h := NewFavoriteHandler(&mockProvider{ws: loggedInWorkspace(favs)})

	req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodDelete, "/api/favorites/3", nil), "client-1"), "id", "3")
	w := httptest.NewRecorder()

	h.Remove(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeFavoriteNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeFavoriteNotFound)
	}
}

func TestFavoriteHandler_Remove_Success(t *testing.T) {
	h := NewFavoriteHandler(&mockProvider{ws: loggedInWorkspace(&mockFavoriteArticleService{})})

	req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodDelete, "/api/favorites/3", nil), "client-1"), "id", "3")
	w := httptest.NewRecorder()

	h.Remove(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

// --- /api/favorites/articles/{id} テスト ---

func TestFavoriteHandler_ToggleAndCheck(t *testing.T) {
	on := false
	favs := &mockFavoriteArticleService{
		toggleFn: func(ctx context.Context, articleID int) (model.FavoriteToggleResult, error) {
			on = !on
			return model.FavoriteToggleResult{IsFavorite: on}, nil
		},
		checkFn: func(ctx context.Context, articleID int) (bool, error) {
			return on, nil
		},
	}
	h := NewFavoriteHandler(&mockProvider{ws: loggedInWorkspace(favs)})

	req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodPost, "/api/favorites/articles/8/toggle", nil), "client-1"), "id", "8")
	w := httptest.NewRecorder()
	h.Toggle(w, req)

	var toggled checkFavoriteResponse
	json.NewDecoder(w.Body).Decode(&toggled)
	if w.Code != http.StatusOK || toggled.ArticleID != 8 || !toggled.IsFavorite {
		t.Fatalf("Toggle status=%d response=%+v", w.Code, toggled)
	}

	req = withChiURLParam(withClientID(httptest.NewRequest(http.MethodGet, "/api/favorites/articles/8", nil), "client-1"), "id", "8")
	w = httptest.NewRecorder()
	h.Check(w, req)

	var checked checkFavoriteResponse
	json.NewDecoder(w.Body).Decode(&checked)
	if !checked.IsFavorite {
		t.Errorf("Check = %+v, want is_favorite=true", checked)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/newsdeck/internal/featured"
	"github.com/hitoshi/newsdeck/internal/home"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// --- GET /api/articles/{id} テスト ---

func TestArticleHandler_GetArticle_Success(t *testing.T) {
	ws := &mockWorkspace{
		articleFn: func(ctx context.Context, id int) (home.ArticleView, error) {
			if id != 42 {
				t.Errorf("id = %d, want 42", id)
			}
			return home.ArticleView{Article: model.Article{ID: 42, Title: "Заголовок"}, TopicLabel: "Наука"}, nil
		},
	}
	h := NewArticleHandler(&mockProvider{ws: ws})

	req := httptest.NewRequest(http.MethodGet, "/api/articles/42", nil)
	req = withChiURLParam(withClientID(req, "client-1"), "id", "42")
	w := httptest.NewRecorder()

	h.GetArticle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got home.ArticleView
	json.NewDecoder(w.Body).Decode(&got)
	if got.ID != 42 || got.TopicLabel != "Наука" {
		t.Errorf("article = %+v", got)
	}
}

func TestArticleHandler_GetArticle_InvalidID(t *testing.T) {
	tests := []string{"abc", "0", "-3"}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			h := NewArticleHandler(&mockProvider{ws: &mockWorkspace{}})

			req := httptest.NewRequest(http.MethodGet, "/api/articles/"+raw, nil)
			req = withChiURLParam(withClientID(req, "client-1"), "id", raw)
			w := httptest.NewRecorder()

			h.GetArticle(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if body := decodeError(t, w); body.Code != model.ErrCodeInvalidArticleID {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidArticleID)
			}
		})
	}
}

func TestArticleHandler_GetArticle_NotFound(t *testing.T) {
	ws := &mockWorkspace{
		articleFn: func(ctx context.Context, id int) (home.ArticleView, error) {
			return home.ArticleView{}, &model.HTTPError{Status: http.StatusNotFound, Path: "/api/articles/7/"}
		},
	}
	h := NewArticleHandler(&mockProvider{ws: ws})

	req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodGet, "/api/articles/7", nil), "client-1"), "id", "7")
	w := httptest.NewRecorder()

	h.GetArticle(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeArticleNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeArticleNotFound)
	}
}

func TestArticleHandler_GetArticle_BackendFailure(t *testing.T) {
	ws := &mockWorkspace{
		articleFn: func(ctx context.Context, id int) (home.ArticleView, error) {
			return home.ArticleView{}, &model.HTTPError{Status: http.StatusInternalServerError, Path: "/api/articles/7/"}
		},
	}
	h := NewArticleHandler(&mockProvider{ws: ws})

	req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodGet, "/api/articles/7", nil), "client-1"), "id", "7")
	w := httptest.NewRecorder()

	h.GetArticle(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

// --- POST /api/articles/{id}/favorite テスト ---

func TestArticleHandler_ToggleFavorite(t *testing.T) {
	ws := &mockWorkspace{
		toggleFavoriteFn: func(ctx context.Context, id int) (bool, error) {
			return true, nil
		},
	}
	h := NewArticleHandler(&mockProvider{ws: ws})

	req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodPost, "/api/articles/5/favorite", nil), "client-1"), "id", "5")
	w := httptest.NewRecorder()

	h.ToggleFavorite(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got favoriteResponse
	json.NewDecoder(w.Body).Decode(&got)
	if got.ArticleID != 5 || !got.IsFavorite {
		t.Errorf("response = %+v, want {5 true}", got)
	}
}

// --- POST /api/articles/{id}/featured テスト ---

func TestArticleHandler_ToggleFeatured_InFlightReturns409(t *testing.T) {
	ws := &mockWorkspace{
		toggleFeaturedFn: func(ctx context.Context, id int) (bool, error) {
			return true, featured.ErrToggleInFlight
		},
	}
	h := NewArticleHandler(&mockProvider{ws: ws})

	req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodPost, "/api/articles/9/featured", nil), "client-1"), "id", "9")
	w := httptest.NewRecorder()

	h.ToggleFeatured(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeToggleInFlight {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeToggleInFlight)
	}
}

func TestArticleHandler_ToggleFeatured_Success(t *testing.T) {
	ws := &mockWorkspace{
		toggleFeaturedFn: func(ctx context.Context, id int) (bool, error) {
			return false, nil
		},
	}
	h := NewArticleHandler(&mockProvider{ws: ws})

	req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodPost, "/api/articles/9/featured", nil), "client-1"), "id", "9")
	w := httptest.NewRecorder()

	h.ToggleFeatured(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got featuredResponse
	json.NewDecoder(w.Body).Decode(&got)
	if got.ArticleID != 9 || got.IsFeatured {
		t.Errorf("response = %+v, want {9 false}", got)
	}
}

// --- DELETE /api/notices/{id} テスト ---

func TestArticleHandler_DismissNotice(t *testing.T) {
	ws := &mockWorkspace{
		dismissNoticeFn: func(id string) bool { return id == "n-1" },
	}
	h := NewArticleHandler(&mockProvider{ws: ws})

	tests := []struct {
		id   string
		want int
	}{
		{"n-1", http.StatusNoContent},
		{"missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := withChiURLParam(withClientID(httptest.NewRequest(http.MethodDelete, "/api/notices/"+tt.id, nil), "client-1"), "id", tt.id)
		w := httptest.NewRecorder()

		h.DismissNotice(w, req)

		if w.Code != tt.want {
			t.Errorf("DismissNotice(%q) status = %d, want %d", tt.id, w.Code, tt.want)
		}
	}
}

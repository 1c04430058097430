package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/newsdeck/internal/filter"
	"github.com/hitoshi/newsdeck/internal/home"
	"github.com/hitoshi/newsdeck/internal/model"
)

// --- GET /api/home テスト ---

func TestHomeHandler_Open_PassesRawQueryAndReturnsView(t *testing.T) {
	var gotQuery string
	ws := &mockWorkspace{
		openFn: func(ctx context.Context, rawQuery string) error {
			gotQuery = rawQuery
			return nil
		},
		view: home.View{Title: "Наука", Status: "success", TotalCount: 3},
	}
	provider := &mockProvider{ws: ws}
	h := NewHomeHandler(provider)

	req := httptest.NewRequest(http.MethodGet, "/api/home?topic=science&page=2", nil)
	req = withClientID(req, "client-1")
	w := httptest.NewRecorder()

	h.Open(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotQuery != "topic=science&page=2" {
		t.Errorf("rawQuery = %q, want %q", gotQuery, "topic=science&page=2")
	}
	if provider.gotClientID != "client-1" {
		t.Errorf("clientID = %q, want client-1", provider.gotClientID)
	}

	var view home.View
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Title != "Наука" || view.TotalCount != 3 {
		t.Errorf("view = %+v", view)
	}
}

func TestHomeHandler_Open_ListErrorStillReturns200(t *testing.T) {
	ws := &mockWorkspace{
		openFn: func(ctx context.Context, rawQuery string) error {
			return &model.NetworkError{Op: "GET /api/articles/", Err: errors.New("timeout")}
		},
		view: home.View{Status: "error", Error: &home.ErrorView{Code: model.ErrCodeBackendTimeout}},
	}
	h := NewHomeHandler(&mockProvider{ws: ws})

	req := withClientID(httptest.NewRequest(http.MethodGet, "/api/home", nil), "client-1")
	w := httptest.NewRecorder()

	h.Open(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("一覧の失敗でもstatusは200であるべき: got %d", w.Code)
	}
	var view home.View
	json.NewDecoder(w.Body).Decode(&view)
	if view.Error == nil || view.Error.Code != model.ErrCodeBackendTimeout {
		t.Errorf("view.Error = %+v, want code %s", view.Error, model.ErrCodeBackendTimeout)
	}
}

func TestHomeHandler_Open_WithoutClientIDReturns500(t *testing.T) {
	h := NewHomeHandler(&mockProvider{ws: &mockWorkspace{}})

	w := httptest.NewRecorder()
	h.Open(w, httptest.NewRequest(http.MethodGet, "/api/home", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestHomeHandler_Open_ProviderErrorReturns500(t *testing.T) {
	h := NewHomeHandler(&mockProvider{err: errors.New("storage down")})

	req := withClientID(httptest.NewRequest(http.MethodGet, "/api/home", nil), "client-1")
	w := httptest.NewRecorder()
	h.Open(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// --- POST /api/home/filters テスト ---

func TestHomeHandler_ChangeFilters_ConvertsFormValues(t *testing.T) {
	var got filter.Patch
	ws := &mockWorkspace{
		changeFiltersFn: func(ctx context.Context, patch filter.Patch) error {
			got = patch
			return nil
		},
	}
	h := NewHomeHandler(&mockProvider{ws: ws})

	body := `{"topic":"science","favorites":"true"}`
	req := withClientID(httptest.NewRequest(http.MethodPost, "/api/home/filters", strings.NewReader(body)), "client-1")
	w := httptest.NewRecorder()

	h.ChangeFilters(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Topic == nil || *got.Topic != model.TopicScience {
		t.Errorf("Topic = %v, want science", got.Topic)
	}
	if got.OnlyFavorites == nil || !*got.OnlyFavorites {
		t.Errorf("OnlyFavorites = %v, want true", got.OnlyFavorites)
	}
	if got.Search != nil {
		t.Errorf("送っていないSearchが設定されている: %v", *got.Search)
	}
}

func TestHomeHandler_ChangeFilters_InvalidBody(t *testing.T) {
	called := false
	ws := &mockWorkspace{
		changeFiltersFn: func(ctx context.Context, patch filter.Patch) error {
			called = true
			return nil
		},
	}
	h := NewHomeHandler(&mockProvider{ws: ws})

	req := withClientID(httptest.NewRequest(http.MethodPost, "/api/home/filters", strings.NewReader("not json")), "client-1")
	w := httptest.NewRecorder()

	h.ChangeFilters(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("不正なボディでChangeFiltersが呼ばれた")
	}
}

// --- POST /api/home/search テスト ---

func TestHomeHandler_Search(t *testing.T) {
	var got string
	ws := &mockWorkspace{
		searchFn: func(ctx context.Context, text string) error {
			got = text
			return nil
		},
	}
	h := NewHomeHandler(&mockProvider{ws: ws})

	req := withClientID(httptest.NewRequest(http.MethodPost, "/api/home/search", strings.NewReader(`{"search":"election"}`)), "client-1")
	w := httptest.NewRecorder()

	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != "election" {
		t.Errorf("search = %q, want election", got)
	}
}

// --- POST /api/home/more, /api/home/retry テスト ---

func TestHomeHandler_LoadMoreAndRetry(t *testing.T) {
	var more, retry int
	ws := &mockWorkspace{
		loadMoreFn: func(ctx context.Context) error { more++; return nil },
		retryFn:    func(ctx context.Context) error { retry++; return nil },
		view:       home.View{Page: 2, HasMore: true},
	}
	h := NewHomeHandler(&mockProvider{ws: ws})

	w := httptest.NewRecorder()
	h.LoadMore(w, withClientID(httptest.NewRequest(http.MethodPost, "/api/home/more", nil), "client-1"))
	if w.Code != http.StatusOK {
		t.Errorf("LoadMore status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	h.Retry(w, withClientID(httptest.NewRequest(http.MethodPost, "/api/home/retry", nil), "client-1"))
	if w.Code != http.StatusOK {
		t.Errorf("Retry status = %d, want %d", w.Code, http.StatusOK)
	}

	if more != 1 || retry != 1 {
		t.Errorf("呼び出し回数 more=%d retry=%d, want 1, 1", more, retry)
	}

	var view home.View
	json.NewDecoder(w.Body).Decode(&view)
	if view.Page != 2 || !view.HasMore {
		t.Errorf("view = %+v", view)
	}
}

package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/newsdeck/internal/auth"
	"github.com/hitoshi/newsdeck/internal/gateway"
	"github.com/hitoshi/newsdeck/internal/home"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/repository"
	"github.com/hitoshi/newsdeck/internal/security"
)

// newsBackend はニュースAPIの最小限の偽実装。
type newsBackend struct {
	mu       sync.Mutex
	featured map[int]bool
}

func (b *newsBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/articles/{$}", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		var results []model.Article
		for i := 1; i <= 3; i++ {
			id := (page-1)*3 + i
			results = append(results, model.Article{ID: id, Title: "Новость " + strconv.Itoa(id), Topic: model.TopicPolitics})
		}
		json.NewEncoder(w).Encode(map[string]any{"count": 30, "next": "more", "results": results})
	})

	mux.HandleFunc("GET /api/articles/{id}/{$}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		if id == 404 {
			http.Error(w, `{"detail":"Not found."}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(model.Article{ID: id, Title: "Новость", Content: `<p>текст</p><script>alert(1)</script>`})
	})

	mux.HandleFunc("PATCH /api/articles/{id}/toggle_featured/{$}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.Atoi(r.PathValue("id"))
		b.featured[id] = !b.featured[id]
		json.NewEncoder(w).Encode(map[string]bool{"is_featured": b.featured[id]})
	})

	mux.HandleFunc("GET /api/sources/{$}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Source{{ID: 1, Name: "ТАСС"}})
	})

	mux.HandleFunc("GET /api/stats/articles/{$}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.AggregateStats{TotalArticles: 30, TotalSources: 1})
	})

	return mux
}

// testClient はCookieを保持してルーターにリクエストを送る。
type testClient struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
	csrf    string
}

func newTestRouter(t *testing.T) *testClient {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	backend := httptest.NewServer((&newsBackend{featured: make(map[int]bool)}).handler())
	t.Cleanup(backend.Close)

	deps := home.Deps{
		Client:    gateway.NewClient(backend.Client(), backend.URL, gateway.Options{}, logger, nil),
		Sanitizer: security.NewArticleSanitizer(),
		Validator: auth.NewValidator(),
		Logger:    logger,
	}
	registry := home.NewRegistry(repository.NewMemoryClientStorageRepo(), deps, home.Options{}, time.Hour)
	t.Cleanup(registry.Close)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{GeneralPerMinute: 100, MutationPerMinute: 100, CleanupInterval: time.Minute})
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		Workspaces:  NewRegistryAdapter(registry),
		RateLimiter: rl,
		Logger:      logger,
	})
	return &testClient{t: t, router: router, cookies: make(map[string]*http.Cookie)}
}

func (c *testClient) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

// fetchCSRF はCSRFトークンを取得して以降のリクエストに付与する。
func (c *testClient) fetchCSRF() {
	c.t.Helper()
	w := c.do(http.MethodGet, "/api/csrf-token", "")
	var token struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&token); err != nil || token.Token == "" {
		c.t.Fatalf("CSRFトークンを取得できない: status=%d err=%v", w.Code, err)
	}
	c.csrf = token.Token
}

func TestRouter_HomeFlow(t *testing.T) {
	c := newTestRouter(t)

	// 1. 初期表示
	w := c.do(http.MethodGet, "/api/home?topic=politics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/home status = %d", w.Code)
	}
	var view home.View
	json.NewDecoder(w.Body).Decode(&view)
	if view.Title != model.TopicPolitics.Label() {
		t.Errorf("title = %q, want %q", view.Title, model.TopicPolitics.Label())
	}
	if len(view.Articles) != 3 || view.TotalCount != 30 {
		t.Errorf("articles = %d total = %d, want 3, 30", len(view.Articles), view.TotalCount)
	}
	if len(view.Sources) != 1 {
		t.Errorf("sources = %d, want 1", len(view.Sources))
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("セキュリティヘッダーが付与されていない")
	}

	// 2. CSRFトークンなしの更新操作は403
	w = c.do(http.MethodPost, "/api/home/more", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("CSRFなし POST status = %d, want 403", w.Code)
	}

	// 3. 続きを読み込む
	c.fetchCSRF()
	w = c.do(http.MethodPost, "/api/home/more", "")
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/home/more status = %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&view)
	if len(view.Articles) != 6 || view.Page != 2 {
		t.Errorf("articles = %d page = %d, want 6, 2", len(view.Articles), view.Page)
	}

	// 4. 検索
	w = c.do(http.MethodPost, "/api/home/search", `{"search":"выборы"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/home/search status = %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&view)
	if view.Filters.Search != "выборы" || view.Page != 1 {
		t.Errorf("filters = %+v", view.Filters)
	}
}

func TestRouter_ArticleEndpoints(t *testing.T) {
	c := newTestRouter(t)
	c.fetchCSRF()

	// 記事詳細はスクリプトが除去される
	w := c.do(http.MethodGet, "/api/articles/7", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/articles/7 status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("本文にscriptが残っている: %s", w.Body.String())
	}

	// 存在しない記事は404
	if w := c.do(http.MethodGet, "/api/articles/404", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /api/articles/404 status = %d, want 404", w.Code)
	}

	// ローカルお気に入り
	w = c.do(http.MethodPost, "/api/articles/7/favorite", "")
	var fav favoriteResponse
	json.NewDecoder(w.Body).Decode(&fav)
	if w.Code != http.StatusOK || !fav.IsFavorite {
		t.Errorf("favorite status=%d response=%+v", w.Code, fav)
	}

	// 注目フラグ
	w = c.do(http.MethodPost, "/api/articles/7/featured", "")
	var feat featuredResponse
	json.NewDecoder(w.Body).Decode(&feat)
	if w.Code != http.StatusOK || !feat.IsFeatured {
		t.Errorf("featured status=%d response=%+v", w.Code, feat)
	}
}

func TestRouter_AuthRequiredEndpoints(t *testing.T) {
	c := newTestRouter(t)

	for _, path := range []string{"/api/auth/profile", "/api/favorites", "/api/auth/stats"} {
		if w := c.do(http.MethodGet, path, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, w.Code)
		}
	}
}

func TestRouter_HealthOutsideChain(t *testing.T) {
	c := newTestRouter(t)

	w := c.do(http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d", w.Code)
	}
	if _, ok := c.cookies["client_id"]; ok {
		t.Error("/health でクライアントCookieが発行された")
	}
}

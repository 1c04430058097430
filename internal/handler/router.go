package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdeck/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// クライアントごとのWorkspace
	Workspaces WorkspaceProvider

	// ミドルウェア依存
	CORSAllowedOrigin string
	Cookies           middleware.CookieConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 運用エンドポイント
	MetricsHandler http.Handler
	HealthChecker  HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → RateLimit(IP) → ClientIdentity → CSRF → RateLimit(General)
//
// /health と /metrics はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	homeHandler := NewHomeHandler(deps.Workspaces)
	articleHandler := NewArticleHandler(deps.Workspaces)
	authHandler := NewAuthHandler(deps.Workspaces)
	subHandler := NewSubscriptionHandler(deps.Workspaces)
	favHandler := NewFavoriteHandler(deps.Workspaces)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRecoveryMiddleware(logger))
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(deps.RateLimiter.IPMiddleware())
		r.Use(middleware.NewClientIdentityMiddleware(deps.Cookies))
		r.Use(middleware.NewCSRFMiddleware(deps.Cookies))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.Cookies))

		// ホーム画面
		r.Route("/api/home", func(r chi.Router) {
			r.Get("/", homeHandler.Open)
			r.Post("/filters", homeHandler.ChangeFilters)
			r.Post("/search", homeHandler.Search)
			r.Post("/more", homeHandler.LoadMore)
			r.Post("/retry", homeHandler.Retry)
		})

		// 記事
		r.Route("/api/articles/{id}", func(r chi.Router) {
			r.Get("/", articleHandler.GetArticle)

			// トグル系は変更用レート制限を追加
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/favorite", articleHandler.ToggleFavorite)
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/featured", articleHandler.ToggleFeatured)
		})

		r.Delete("/api/notices/{id}", articleHandler.DismissNotice)

		// アカウント
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", authHandler.Profile)
			r.Patch("/profile", authHandler.UpdateProfile)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Get("/stats", authHandler.Stats)
			r.Get("/dashboard", authHandler.Dashboard)
		})

		// 契約
		r.Route("/api/subscription", func(r chi.Router) {
			r.Get("/", subHandler.GetSubscription)
			r.Post("/upgrade", subHandler.Upgrade)
			r.Post("/cancel", subHandler.Cancel)
		})

		// サーバー側お気に入り
		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favHandler.List)
			r.Post("/", favHandler.Add)
			r.Patch("/{id}", favHandler.Update)
			r.Delete("/{id}", favHandler.Remove)

			r.Get("/articles/{id}", favHandler.Check)
			r.With(deps.RateLimiter.MutationMiddleware()).Post("/articles/{id}/toggle", favHandler.Toggle)
		})
	})

	return r
}

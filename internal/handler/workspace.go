// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdeck/internal/filter"
	"github.com/hitoshi/newsdeck/internal/home"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/subscription"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, data model.RegisterData) (*model.User, error)
	Login(ctx context.Context, creds model.LoginCredentials) (*model.User, error)
	Logout(ctx context.Context)
	Profile(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.UserProfile, error)
	ChangePassword(ctx context.Context, data model.PasswordChangeData) error
	Stats(ctx context.Context) (*model.UserStats, error)
	Dashboard(ctx context.Context) (*model.Dashboard, error)
	Authenticated() bool
}

// SubscriptionServiceInterface は契約ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	Load(ctx context.Context) error
	Snapshot() subscription.Snapshot
	Upgrade(ctx context.Context, planID int) (*model.PaymentIntent, error)
	Cancel(ctx context.Context) error
	CheckLimit(feature model.Feature) bool
	RemainingLimit(feature model.Feature) *int
}

// FavoriteArticleServiceInterface はサーバー側お気に入り記事の操作。
type FavoriteArticleServiceInterface interface {
	FavoriteArticles(ctx context.Context) ([]model.FavoriteArticle, error)
	AddFavoriteArticle(ctx context.Context, articleID int, notes string) (model.FavoriteArticle, error)
	RemoveFavoriteArticle(ctx context.Context, id int) error
	UpdateFavoriteArticle(ctx context.Context, id int, notes string) (model.FavoriteArticle, error)
	ToggleFavoriteArticle(ctx context.Context, articleID int) (model.FavoriteToggleResult, error)
	CheckFavoriteArticle(ctx context.Context, articleID int) (bool, error)
}

// WorkspaceInterface は1クライアント分のホーム画面の操作。
type WorkspaceInterface interface {
	Open(ctx context.Context, rawQuery string) error
	View() home.View
	ChangeFilters(ctx context.Context, patch filter.Patch) error
	Search(ctx context.Context, text string) error
	LoadMore(ctx context.Context) error
	Retry(ctx context.Context) error
	Article(ctx context.Context, id int) (home.ArticleView, error)
	ToggleFavorite(ctx context.Context, id int) (bool, error)
	ToggleFeatured(ctx context.Context, id int) (bool, error)
	DismissNotice(id string) bool

	Auth() AuthServiceInterface
	Subscription() SubscriptionServiceInterface
	FavoriteArticles() FavoriteArticleServiceInterface
}

// WorkspaceProvider はクライアントIDからWorkspaceを引き当てる。
type WorkspaceProvider interface {
	Workspace(ctx context.Context, clientID string) (WorkspaceInterface, error)
}

// workspaceFor はリクエストのクライアントのWorkspaceを返す。
// 取得できない場合はエラーレスポンスを書き込んでnilを返す。
func workspaceFor(w http.ResponseWriter, r *http.Request, provider WorkspaceProvider) WorkspaceInterface {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return nil
	}
	ws, err := provider.Workspace(r.Context(), clientID)
	if err != nil {
		slog.Error("failed to load workspace",
			slog.String("client_id", clientID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return nil
	}
	return ws
}

// parseArticleID はURLパスの記事IDを正の整数として解析する。
// 不正な場合は400を書き込んでok=falseを返す。
func parseArticleID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidArticleIDError(raw))
		return 0, false
	}
	return id, true
}

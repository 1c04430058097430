package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdeck/internal/featured"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
)

// ArticleHandler は記事単位の操作のHTTPハンドラー。
type ArticleHandler struct {
	workspaces WorkspaceProvider
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(workspaces WorkspaceProvider) *ArticleHandler {
	return &ArticleHandler{workspaces: workspaces}
}

// favoriteResponse はローカルお気に入りトグルのレスポンス。
type favoriteResponse struct {
	ArticleID  int  `json:"article_id"`
	IsFavorite bool `json:"is_favorite"`
}

// featuredResponse は注目フラグトグルのレスポンス。
type featuredResponse struct {
	ArticleID  int  `json:"article_id"`
	IsFeatured bool `json:"is_featured"`
}

// GetArticle は記事詳細を返す。本文は無害化済み。
// GET /api/articles/{id}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseArticleID(w, r)
	if !ok {
		return
	}
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}

	article, err := ws.Article(r.Context(), id)
	if err != nil {
		if model.IsNotFound(err) {
			middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewArticleNotFoundError(id))
			return
		}
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, article)
}

// ToggleFavorite はローカルお気に入りを反転する。
// POST /api/articles/{id}/favorite
func (h *ArticleHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseArticleID(w, r)
	if !ok {
		return
	}
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}

	on, err := ws.ToggleFavorite(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, favoriteResponse{ArticleID: id, IsFavorite: on})
}

// ToggleFeatured は注目フラグを反転する。同じ記事のトグルが処理中の場合は409。
// POST /api/articles/{id}/featured
func (h *ArticleHandler) ToggleFeatured(w http.ResponseWriter, r *http.Request) {
	id, ok := parseArticleID(w, r)
	if !ok {
		return
	}
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}

	on, err := ws.ToggleFeatured(r.Context(), id)
	if errors.Is(err, featured.ErrToggleInFlight) {
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewToggleInFlightError(id))
		return
	}
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, featuredResponse{ArticleID: id, IsFeatured: on})
}

// DismissNotice は通知を閉じる。
// DELETE /api/notices/{id}
func (h *ArticleHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	if !ws.DismissNotice(chi.URLParam(r, "id")) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "NOTICE_NOT_FOUND",
			Message:  "通知が見つかりません。",
			Category: "system",
			Action:   "既に閉じられたか期限切れです。",
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"net/http"
	"strings"

	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
)

// maxNotesLength はお気に入りメモの最大文字数。
const maxNotesLength = 1000

// FavoriteHandler はサーバー側お気に入り記事のHTTPハンドラー。
// ローカルのお気に入り集合（ArticleHandler.ToggleFavorite）とは別のデータを扱う。
type FavoriteHandler struct {
	workspaces WorkspaceProvider
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(workspaces WorkspaceProvider) *FavoriteHandler {
	return &FavoriteHandler{workspaces: workspaces}
}

// addFavoriteRequest はお気に入り追加リクエストのボディ。
type addFavoriteRequest struct {
	Article int    `json:"article"`
	Notes   string `json:"notes"`
}

// updateFavoriteRequest はメモ更新リクエストのボディ。
type updateFavoriteRequest struct {
	Notes string `json:"notes"`
}

// checkFavoriteResponse はお気に入り確認のレスポンス。
type checkFavoriteResponse struct {
	ArticleID  int  `json:"article_id"`
	IsFavorite bool `json:"is_favorite"`
}

// List はお気に入り記事の一覧を返す。
// GET /api/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	ws := h.loggedIn(w, r)
	if ws == nil {
		return
	}

	favorites, err := ws.FavoriteArticles().FavoriteArticles(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, favorites)
}

// Add はお気に入り記事を追加する。
// POST /api/favorites
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	fields := validateNotes(req.Notes)
	if req.Article <= 0 {
		fields["article"] = "記事を指定してください"
	}
	if len(fields) > 0 {
		middleware.WriteError(w, &model.ValidationError{Fields: fields})
		return
	}
	ws := h.loggedIn(w, r)
	if ws == nil {
		return
	}

	fav, err := ws.FavoriteArticles().AddFavoriteArticle(r.Context(), req.Article, strings.TrimSpace(req.Notes))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, fav)
}

// Update はお気に入りのメモを更新する。
// PATCH /api/favorites/{id}
func (h *FavoriteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseArticleID(w, r)
	if !ok {
		return
	}
	var req updateFavoriteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if fields := validateNotes(req.Notes); len(fields) > 0 {
		middleware.WriteError(w, &model.ValidationError{Fields: fields})
		return
	}
	ws := h.loggedIn(w, r)
	if ws == nil {
		return
	}

	fav, err := ws.FavoriteArticles().UpdateFavoriteArticle(r.Context(), id, strings.TrimSpace(req.Notes))
	if err != nil {
		writeFavoriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, fav)
}

// Remove はお気に入りを削除する。
// DELETE /api/favorites/{id}
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseArticleID(w, r)
	if !ok {
		return
	}
	ws := h.loggedIn(w, r)
	if ws == nil {
		return
	}

	if err := ws.FavoriteArticles().RemoveFavoriteArticle(r.Context(), id); err != nil {
		writeFavoriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle は記事のサーバー側お気に入りを反転する。
// POST /api/favorites/articles/{id}/toggle
func (h *FavoriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseArticleID(w, r)
	if !ok {
		return
	}
	ws := h.loggedIn(w, r)
	if ws == nil {
		return
	}

	result, err := ws.FavoriteArticles().ToggleFavoriteArticle(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, checkFavoriteResponse{ArticleID: id, IsFavorite: result.IsFavorite})
}

// Check は記事がサーバー側お気に入りかどうかを返す。
// GET /api/favorites/articles/{id}
func (h *FavoriteHandler) Check(w http.ResponseWriter, r *http.Request) {
	id, ok := parseArticleID(w, r)
	if !ok {
		return
	}
	ws := h.loggedIn(w, r)
	if ws == nil {
		return
	}

	on, err := ws.FavoriteArticles().CheckFavoriteArticle(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, checkFavoriteResponse{ArticleID: id, IsFavorite: on})
}

func (h *FavoriteHandler) loggedIn(w http.ResponseWriter, r *http.Request) WorkspaceInterface {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil || !requireLogin(w, ws) {
		return nil
	}
	return ws
}

func validateNotes(notes string) map[string]string {
	fields := make(map[string]string)
	if len([]rune(notes)) > maxNotesLength {
		fields["notes"] = "メモは1000文字以内で入力してください"
	}
	return fields
}

func writeFavoriteError(w http.ResponseWriter, err error) {
	if model.IsNotFound(err) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewFavoriteNotFoundError())
		return
	}
	middleware.WriteError(w, err)
}

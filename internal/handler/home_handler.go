package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsdeck/internal/filter"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
)

// HomeHandler はホーム画面（記事一覧と絞り込み）のHTTPハンドラー。
//
// 一覧の取得失敗はView内のerrorとstatusで表現し、HTTPステータスは200を返す。
// 画面は失敗時も描画でき、再試行ボタンからRetryを呼ぶ。
type HomeHandler struct {
	workspaces WorkspaceProvider
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(workspaces WorkspaceProvider) *HomeHandler {
	return &HomeHandler{workspaces: workspaces}
}

// searchRequest は検索リクエストのボディ。
type searchRequest struct {
	Search string `json:"search"`
}

// Open は初期表示を行う。
// GET /api/home?<query>
func (h *HomeHandler) Open(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	ws.Open(r.Context(), r.URL.RawQuery)
	middleware.WriteJSON(w, http.StatusOK, ws.View())
}

// ChangeFilters は絞り込み条件を変更する。
// POST /api/home/filters
// ボディはフォーム値をそのまま文字列で送る（例: {"topic":"science","page":"2"}）。
func (h *HomeHandler) ChangeFilters(w http.ResponseWriter, r *http.Request) {
	var form map[string]string
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	ws.ChangeFilters(r.Context(), filter.PatchFromForm(form))
	middleware.WriteJSON(w, http.StatusOK, ws.View())
}

// Search はヘッダーの検索欄からの検索。
// POST /api/home/search
func (h *HomeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	ws.Search(r.Context(), req.Search)
	middleware.WriteJSON(w, http.StatusOK, ws.View())
}

// LoadMore は次のページを追記する。
// POST /api/home/more
func (h *HomeHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	ws.LoadMore(r.Context())
	middleware.WriteJSON(w, http.StatusOK, ws.View())
}

// Retry は失敗した取得をやり直す。
// POST /api/home/retry
func (h *HomeHandler) Retry(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	ws.Retry(r.Context())
	middleware.WriteJSON(w, http.StatusOK, ws.View())
}

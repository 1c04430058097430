package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
)

// AuthHandler はアカウント関連のHTTPハンドラー。
// トークンはサーバー側のクライアントストレージに保持し、ブラウザには渡さない。
type AuthHandler struct {
	workspaces WorkspaceProvider
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(workspaces WorkspaceProvider) *AuthHandler {
	return &AuthHandler{workspaces: workspaces}
}

// sessionResponse はログイン状態のレスポンス。
type sessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
}

// Register はアカウントを登録してログインする。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var data model.RegisterData
	if !decodeBody(w, r, &data) {
		return
	}
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}

	user, err := ws.Auth().Register(r.Context(), data)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, sessionResponse{Authenticated: true, User: user})
}

// Login はログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.LoginCredentials
	if !decodeBody(w, r, &creds) {
		return
	}
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}

	user, err := ws.Auth().Login(r.Context(), creds)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: user})
}

// Logout はログアウトする。サーバー側の失敗に関わらずローカルのトークンは破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	ws.Auth().Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Profile は現在のユーザーを返す。
// GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	if !requireLogin(w, ws) {
		return
	}

	user, err := ws.Auth().Profile(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: user})
}

// UpdateProfile はプロフィールを部分更新する。
// PATCH /api/auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update model.ProfileUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	if !requireLogin(w, ws) {
		return
	}

	profile, err := ws.Auth().UpdateProfile(r.Context(), update)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, profile)
}

// ChangePassword はパスワードを変更する。
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var data model.PasswordChangeData
	if !decodeBody(w, r, &data) {
		return
	}
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	if !requireLogin(w, ws) {
		return
	}

	if err := ws.Auth().ChangePassword(r.Context(), data); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats はユーザーの利用統計を返す。
// GET /api/auth/stats
func (h *AuthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	if !requireLogin(w, ws) {
		return
	}

	stats, err := ws.Auth().Stats(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, stats)
}

// Dashboard はユーザーダッシュボードを返す。
// GET /api/auth/dashboard
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	if !requireLogin(w, ws) {
		return
	}

	dashboard, err := ws.Auth().Dashboard(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dashboard)
}

// requireLogin は未ログインの場合に401を書き込んでfalseを返す。
// バックエンドへ無駄な401を発生させないために事前に判定する。
func requireLogin(w http.ResponseWriter, ws WorkspaceInterface) bool {
	if ws.Auth().Authenticated() {
		return true
	}
	middleware.WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     model.ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
	return false
}

// decodeBody はJSONボディをvに読み込む。失敗時は400を書き込んでfalseを返す。
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

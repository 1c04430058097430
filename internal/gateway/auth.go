package gateway

import (
	"context"
	"net/http"

	"github.com/hitoshi/newsdeck/internal/model"
)

const (
	pathRegister       = "/api/auth/register/"
	pathLogin          = "/api/auth/login/"
	pathLogout         = "/api/auth/logout/"
	pathProfile        = "/api/auth/profile/"
	pathProfileUpdate  = "/api/auth/profile/update/"
	pathChangePassword = "/api/auth/change-password/"
	pathUserStats      = "/api/auth/stats/"
	pathDashboard      = "/api/auth/dashboard/"
)

// Register はユーザーを登録する。
func (a *API) Register(ctx context.Context, data model.RegisterData) (model.AuthResponse, error) {
	return a.authenticate(ctx, "register", pathRegister, data)
}

// Login はログインしてトークンを受け取る。
func (a *API) Login(ctx context.Context, creds model.LoginCredentials) (model.AuthResponse, error) {
	return a.authenticate(ctx, "login", pathLogin, creds)
}

func (a *API) authenticate(ctx context.Context, endpoint, path string, payload any) (model.AuthResponse, error) {
	body, err := a.call(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     path,
		body:     payload,
	})
	if err != nil {
		return model.AuthResponse{}, err
	}

	var resp model.AuthResponse
	if err := decodeJSON(body, &resp); err != nil {
		return model.AuthResponse{}, err
	}
	return resp, nil
}

// Logout はサーバー側のトークンを破棄する。
func (a *API) Logout(ctx context.Context) error {
	_, err := a.call(ctx, request{
		endpoint: "logout",
		method:   http.MethodPost,
		path:     pathLogout,
	})
	return err
}

// Profile はログイン中のユーザーを取得する。
func (a *API) Profile(ctx context.Context) (model.User, error) {
	var user model.User
	if err := a.getJSON(ctx, "profile", pathProfile, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// UpdateProfile はプロフィールを部分更新する。
func (a *API) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (model.UserProfile, error) {
	body, err := a.call(ctx, request{
		endpoint: "profile_update",
		method:   http.MethodPatch,
		path:     pathProfileUpdate,
		body:     update,
	})
	if err != nil {
		return model.UserProfile{}, err
	}

	var profile model.UserProfile
	if err := decodeJSON(body, &profile); err != nil {
		return model.UserProfile{}, err
	}
	return profile, nil
}

// ChangePassword はパスワードを変更する。
func (a *API) ChangePassword(ctx context.Context, data model.PasswordChangeData) error {
	_, err := a.call(ctx, request{
		endpoint: "change_password",
		method:   http.MethodPost,
		path:     pathChangePassword,
		body:     data,
	})
	return err
}

// UserStats はユーザーの利用統計を取得する。
func (a *API) UserStats(ctx context.Context) (model.UserStats, error) {
	var stats model.UserStats
	if err := a.getJSON(ctx, "user_stats", pathUserStats, &stats); err != nil {
		return model.UserStats{}, err
	}
	return stats, nil
}

// Dashboard はユーザーダッシュボードを取得する。
func (a *API) Dashboard(ctx context.Context) (model.Dashboard, error) {
	var dashboard model.Dashboard
	if err := a.getJSON(ctx, "dashboard", pathDashboard, &dashboard); err != nil {
		return model.Dashboard{}, err
	}
	return dashboard, nil
}

// getJSON はキャッシュしないGETを実行してvにデコードする。
func (a *API) getJSON(ctx context.Context, endpoint, path string, v any) error {
	body, err := a.call(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     path,
	})
	if err != nil {
		return err
	}
	return decodeJSON(body, v)
}

// Package auth はトークン認証によるログイン状態とアカウント操作を提供する。
//
// 認証情報はバックエンドが発行する不透明なトークンで、
// 以降のすべてのリクエストに "Authorization: Token <token>" として付与する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/newsdeck/internal/model"
)

// Gateway はアカウント関連のバックエンド呼び出し。
type Gateway interface {
	Register(ctx context.Context, data model.RegisterData) (model.AuthResponse, error)
	Login(ctx context.Context, creds model.LoginCredentials) (model.AuthResponse, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (model.User, error)
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (model.UserProfile, error)
	ChangePassword(ctx context.Context, data model.PasswordChangeData) error
	UserStats(ctx context.Context) (model.UserStats, error)
	Dashboard(ctx context.Context) (model.Dashboard, error)
}

// Service はアカウント操作のビジネスロジックを提供する。
type Service struct {
	api       Gateway
	tokens    *TokenManager
	validator *Validator
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(api Gateway, tokens *TokenManager, validator *Validator, logger *slog.Logger) *Service {
	return &Service{
		api:       api,
		tokens:    tokens,
		validator: validator,
		logger:    logger,
	}
}

// Register はユーザーを登録してトークンを保存する。
// 入力に誤りがある場合はリクエストを送らずに*model.ValidationErrorを返す。
func (s *Service) Register(ctx context.Context, data model.RegisterData) (*model.User, error) {
	if err := s.validator.Struct(data); err != nil {
		return nil, err
	}

	resp, err := s.api.Register(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Set(ctx, resp.Token); err != nil {
		return nil, err
	}

	s.logger.Info("ユーザーを登録しました", slog.Int("user_id", resp.User.ID))
	return &resp.User, nil
}

// Login はログインしてトークンを保存する。
func (s *Service) Login(ctx context.Context, creds model.LoginCredentials) (*model.User, error) {
	if err := s.validator.Struct(creds); err != nil {
		return nil, err
	}

	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Set(ctx, resp.Token); err != nil {
		return nil, err
	}

	s.logger.Info("ログインしました", slog.Int("user_id", resp.User.ID))
	return &resp.User, nil
}

// Logout はサーバー側のトークンを破棄し、ローカルのセッションを終了する。
// サーバー呼び出しが失敗してもローカルのトークンは必ず破棄する。
func (s *Service) Logout(ctx context.Context) {
	if s.tokens.Authenticated() {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Warn("サーバー側のログアウトに失敗しましたがローカルのセッションは破棄します",
				slog.String("error", err.Error()),
			)
		}
	}
	s.tokens.Invalidate()
}

// Profile はログイン中のユーザーを取得する。
func (s *Service) Profile(ctx context.Context) (*model.User, error) {
	user, err := s.api.Profile(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile はプロフィールを部分更新する。
func (s *Service) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.UserProfile, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, err
	}

	profile, err := s.api.UpdateProfile(ctx, update)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ChangePassword はパスワードを変更する。確認用パスワードが一致しない場合は送信しない。
func (s *Service) ChangePassword(ctx context.Context, data model.PasswordChangeData) error {
	if err := s.validator.Struct(data); err != nil {
		return err
	}
	if err := s.api.ChangePassword(ctx, data); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// Stats はユーザーの利用統計を取得する。
func (s *Service) Stats(ctx context.Context) (*model.UserStats, error) {
	stats, err := s.api.UserStats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Dashboard はユーザーダッシュボードを取得する。
func (s *Service) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	dashboard, err := s.api.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}

// Authenticated はログイン中かどうかを返す。
func (s *Service) Authenticated() bool {
	return s.tokens.Authenticated()
}

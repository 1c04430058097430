package handler

import (
	"context"

	"github.com/hitoshi/newsdeck/internal/home"
)

// RegistryAdapter は home.Registry を WorkspaceProvider に適合させるアダプタ。
type RegistryAdapter struct {
	registry *home.Registry
}

// NewRegistryAdapter はRegistryAdapterを生成する。
func NewRegistryAdapter(registry *home.Registry) *RegistryAdapter {
	return &RegistryAdapter{registry: registry}
}

// Workspace はクライアントのWorkspaceをhandlerのインターフェース型で返す。
func (a *RegistryAdapter) Workspace(ctx context.Context, clientID string) (WorkspaceInterface, error) {
	ws, err := a.registry.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return workspaceAdapter{ws}, nil
}

// workspaceAdapter は home.Workspace を WorkspaceInterface に適合させる。
// 具象型を返すアクセサだけをインターフェース型に包み直す。
type workspaceAdapter struct {
	*home.Workspace
}

func (a workspaceAdapter) Auth() AuthServiceInterface {
	return a.Workspace.Auth()
}

func (a workspaceAdapter) Subscription() SubscriptionServiceInterface {
	return a.Workspace.Subscription()
}

// FavoriteArticles はサーバー側お気に入りの操作としてクライアントに束縛されたAPIを返す。
func (a workspaceAdapter) FavoriteArticles() FavoriteArticleServiceInterface {
	return a.Workspace.API()
}

// compile-time interface check
var (
	_ WorkspaceProvider  = (*RegistryAdapter)(nil)
	_ WorkspaceInterface = workspaceAdapter{}
)

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdeck/internal/filter"
	"github.com/hitoshi/newsdeck/internal/home"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/subscription"
)

// --- モック定義 ---

// mockWorkspace はWorkspaceInterfaceのモック実装。
type mockWorkspace struct {
	openFn           func(ctx context.Context, rawQuery string) error
	view             home.View
	changeFiltersFn  func(ctx context.Context, patch filter.Patch) error
	searchFn         func(ctx context.Context, text string) error
	loadMoreFn       func(ctx context.Context) error
	retryFn          func(ctx context.Context) error
	articleFn        func(ctx context.Context, id int) (home.ArticleView, error)
	toggleFavoriteFn func(ctx context.Context, id int) (bool, error)
	toggleFeaturedFn func(ctx context.Context, id int) (bool, error)
	dismissNoticeFn  func(id string) bool

	auth      *mockAuthService
	sub       *mockSubscriptionService
	favorites *mockFavoriteArticleService
}

func (m *mockWorkspace) Open(ctx context.Context, rawQuery string) error {
	if m.openFn != nil {
		return m.openFn(ctx, rawQuery)
	}
	return nil
}

func (m *mockWorkspace) View() home.View { return m.view }

func (m *mockWorkspace) ChangeFilters(ctx context.Context, patch filter.Patch) error {
	if m.changeFiltersFn != nil {
		return m.changeFiltersFn(ctx, patch)
	}
	return nil
}

func (m *mockWorkspace) Search(ctx context.Context, text string) error {
	if m.searchFn != nil {
		return m.searchFn(ctx, text)
	}
	return nil
}

func (m *mockWorkspace) LoadMore(ctx context.Context) error {
	if m.loadMoreFn != nil {
		return m.loadMoreFn(ctx)
	}
	return nil
}

func (m *mockWorkspace) Retry(ctx context.Context) error {
	if m.retryFn != nil {
		return m.retryFn(ctx)
	}
	return nil
}

func (m *mockWorkspace) Article(ctx context.Context, id int) (home.ArticleView, error) {
	if m.articleFn != nil {
		return m.articleFn(ctx, id)
	}
	return home.ArticleView{}, nil
}

func (m *mockWorkspace) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	if m.toggleFavoriteFn != nil {
		return m.toggleFavoriteFn(ctx, id)
	}
	return false, nil
}

func (m *mockWorkspace) ToggleFeatured(ctx context.Context, id int) (bool, error) {
	if m.toggleFeaturedFn != nil {
		return m.toggleFeaturedFn(ctx, id)
	}
	return false, nil
}

func (m *mockWorkspace) DismissNotice(id string) bool {
	if m.dismissNoticeFn != nil {
		return m.dismissNoticeFn(id)
	}
	return false
}

func (m *mockWorkspace) Auth() AuthServiceInterface {
	if m.auth == nil {
		return &mockAuthService{}
	}
	return m.auth
}

func (m *mockWorkspace) Subscription() SubscriptionServiceInterface {
	if m.sub == nil {
		return &mockSubscriptionService{}
	}
	return m.sub
}

func (m *mockWorkspace) FavoriteArticles() FavoriteArticleServiceInterface {
	if m.favorites == nil {
		return &mockFavoriteArticleService{}
	}
	return m.favorites
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	authenticated   bool
	registerFn      func(ctx context.Context, data model.RegisterData) (*model.User, error)
	loginFn         func(ctx context.Context, creds model.LoginCredentials) (*model.User, error)
	logoutCalled    bool
	profileFn       func(ctx context.Context) (*model.User, error)
	updateProfileFn func(ctx context.Context, update model.ProfileUpdate) (*model.UserProfile, error)
	changePassFn    func(ctx context.Context, data model.PasswordChangeData) error
	statsFn         func(ctx context.Context) (*model.UserStats, error)
	dashboardFn     func(ctx context.Context) (*model.Dashboard, error)
}

func (m *mockAuthService) Register(ctx context.Context, data model.RegisterData) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, data)
	}
	return &model.User{}, nil
}

func (m *mockAuthService) Login(ctx context.Context, creds model.LoginCredentials) (*model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return &model.User{}, nil
}

func (m *mockAuthService) Logout(ctx context.Context) {
	m.logoutCalled = true
}

func (m *mockAuthService) Profile(ctx context.Context) (*model.User, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx)
	}
	return &model.User{}, nil
}

func (m *mockAuthService) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.UserProfile, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, update)
	}
	return &model.UserProfile{}, nil
}

func (m *mockAuthService) ChangePassword(ctx context.Context, data model.PasswordChangeData) error {
	if m.changePassFn != nil {
		return m.changePassFn(ctx, data)
	}
	return nil
}

func (m *mockAuthService) Stats(ctx context.Context) (*model.UserStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.UserStats{}, nil
}

func (m *mockAuthService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx)
	}
	return &model.Dashboard{}, nil
}

func (m *mockAuthService) Authenticated() bool { return m.authenticated }

// mockSubscriptionService はSubscriptionServiceInterfaceのモック実装。
type mockSubscriptionService struct {
	loadFn      func(ctx context.Context) error
	snapshot    subscription.Snapshot
	upgradeFn   func(ctx context.Context, planID int) (*model.PaymentIntent, error)
	cancelFn    func(ctx context.Context) error
	allowed     map[model.Feature]bool
	remaining   map[model.Feature]int
	cancelCalls int
}

func (m *mockSubscriptionService) Load(ctx context.Context) error {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return nil
}

func (m *mockSubscriptionService) Snapshot() subscription.Snapshot { return m.snapshot }

func (m *mockSubscriptionService) Upgrade(ctx context.Context, planID int) (*model.PaymentIntent, error) {
	if m.upgradeFn != nil {
		return m.upgradeFn(ctx, planID)
	}
	return &model.PaymentIntent{}, nil
}

func (m *mockSubscriptionService) Cancel(ctx context.Context) error {
	m.cancelCalls++
	if m.cancelFn != nil {
		return m.cancelFn(ctx)
	}
	return nil
}

func (m *mockSubscriptionService) CheckLimit(feature model.Feature) bool {
	return m.allowed[feature]
}

func (m *mockSubscriptionService) RemainingLimit(feature model.Feature) *int {
	v, ok := m.remaining[feature]
	if !ok {
		return nil
	}
	return &v
}

// mockFavoriteArticleService はFavoriteArticleServiceInterfaceのモック実装。
type mockFavoriteArticleService struct {
	listFn   func(ctx context.Context) ([]model.FavoriteArticle, error)
	addFn    func(ctx context.Context, articleID int, notes string) (model.FavoriteArticle, error)
	removeFn func(ctx context.Context, id int) error
	updateFn func(ctx context.Context, id int, notes string) (model.FavoriteArticle, error)
	toggleFn func(ctx context.Context, articleID int) (model.FavoriteToggleResult, error)
	checkFn  func(ctx context.Context, articleID int) (bool, error)
}

func (m *mockFavoriteArticleService) FavoriteArticles(ctx context.Context) ([]model.FavoriteArticle, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockFavoriteArticleService) AddFavoriteArticle(ctx context.Context, articleID int, notes string) (model.FavoriteArticle, error) {
	if m.addFn != nil {
		return m.addFn(ctx, articleID, notes)
	}
	return model.FavoriteArticle{}, nil
}

func (m *mockFavoriteArticleService) RemoveFavoriteArticle(ctx context.Context, id int) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, id)
	}
	return nil
}

func (m *mockFavoriteArticleService) UpdateFavoriteArticle(ctx context.Context, id int, notes string) (model.FavoriteArticle, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, notes)
	}
	return model.FavoriteArticle{}, nil
}

func (m *mockFavoriteArticleService) ToggleFavoriteArticle(ctx context.Context, articleID int) (model.FavoriteToggleResult, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, articleID)
	}
	return model.FavoriteToggleResult{}, nil
}

func (m *mockFavoriteArticleService) CheckFavoriteArticle(ctx context.Context, articleID int) (bool, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, articleID)
	}
	return false, nil
}

// mockProvider は常に同じWorkspaceを返すWorkspaceProvider。
type mockProvider struct {
	ws  *mockWorkspace
	err error

	gotClientID string
}

func (p *mockProvider) Workspace(_ context.Context, clientID string) (WorkspaceInterface, error) {
	p.gotClientID = clientID
	if p.err != nil {
		return nil, p.err
	}
	return p.ws, nil
}

// --- ヘルパー ---

// withClientID はリクエストのcontextにクライアントIDを設定する。
func withClientID(r *http.Request, clientID string) *http.Request {
	return r.WithContext(middleware.ContextWithClientID(r.Context(), clientID))
}

// withChiURLParam はchiのURLパラメータをリクエストに設定する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

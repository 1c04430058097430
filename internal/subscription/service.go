// Package subscription はプラン・契約・利用上限のクライアント側の状態を管理する。
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/newsdeck/internal/model"
)

// 無料プランの既定の上限。契約情報がどこからも取得できない場合に使う。
const (
	freeDailyArticles = 10
	freeFavorites     = 10
	freeExports       = 0
	freeAPICalls      = 0
)

// Gateway は契約関連のバックエンド呼び出し。
type Gateway interface {
	SubscriptionPlans(ctx context.Context) ([]model.SubscriptionPlan, error)
	CurrentSubscription(ctx context.Context) (*model.UserSubscription, error)
	Usage(ctx context.Context) (model.UsageStats, error)
	SubscriptionDashboard(ctx context.Context) (model.SubscriptionDashboard, error)
	Upgrade(ctx context.Context, planID int) (model.PaymentIntent, error)
	CancelSubscription(ctx context.Context) error
}

// AuthState はログイン状態の参照。
type AuthState interface {
	Authenticated() bool
}

// Snapshot は契約状態のコピー。Usageがnilの場合は利用状況が不明。
type Snapshot struct {
	Plans   []model.SubscriptionPlan `json:"plans"`
	Current *model.UserSubscription  `json:"current"`
	Usage   *model.UsageStats        `json:"usage"`
}

// Service は1クライアント分の契約状態を保持する。
type Service struct {
	api    Gateway
	auth   AuthState
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	plans []model.SubscriptionPlan
	cur   *model.UserSubscription
	usage *model.UsageStats
}

// NewService はServiceを生成する。
func NewService(api Gateway, auth AuthState, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		auth:   auth,
		logger: logger,
		now:    time.Now,
	}
}

// Load は契約状態を取り直す。
// ログイン中はダッシュボードとプラン一覧を並行して取得し、ダッシュボードが失敗した場合は
// 現在の契約と利用状況を個別に取得する。それも失敗した場合は無料プランの既定値を使う。
// 未ログインの場合はプラン一覧のみを取得する。
func (s *Service) Load(ctx context.Context) error {
	if !s.auth.Authenticated() {
		plans, err := s.api.SubscriptionPlans(ctx)
		if err != nil {
			return fmt.Errorf("failed to load subscription plans: %w", err)
		}
		s.set(plans, nil, nil)
		return nil
	}

	// 1. ダッシュボードとプラン一覧を並行取得
	var (
		g         errgroup.Group
		dashboard model.SubscriptionDashboard
		dashErr   error
		plans     []model.SubscriptionPlan
	)
	g.Go(func() error {
		dashboard, dashErr = s.api.SubscriptionDashboard(ctx)
		return nil
	})
	g.Go(func() error {
		var err error
		plans, err = s.api.SubscriptionPlans(ctx)
		return err
	})
	plansErr := g.Wait()

	if model.IsUnauthorized(dashErr) || model.IsUnauthorized(plansErr) {
		// セッション無効化の通知で状態はリセット済み
		return fmt.Errorf("failed to load subscription: %w", firstErr(dashErr, plansErr))
	}
	if plansErr != nil {
		return fmt.Errorf("failed to load subscription plans: %w", plansErr)
	}

	if dashErr == nil {
		usage := dashboard.Usage
		s.setAuthenticated(plans, dashboard.Subscription, &usage)
		return nil
	}

	// 2. 個別エンドポイントにフォールバック
	s.logger.Warn("契約ダッシュボードの取得に失敗したため個別に取得します",
		slog.String("error", dashErr.Error()),
	)
	current, usage, err := s.loadIndividually(ctx)
	if model.IsUnauthorized(err) {
		// セッションが切れたので既定値は適用せず、プラン一覧だけを残す
		s.set(plans, nil, nil)
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	if err != nil {
		// 3. 無料プランの既定値
		s.logger.Warn("契約情報を取得できないため無料プランの上限を適用します",
			slog.String("error", err.Error()),
		)
		defaults := s.freeUsage()
		s.setAuthenticated(plans, nil, &defaults)
		return nil
	}
	s.setAuthenticated(plans, current, &usage)
	return nil
}

func (s *Service) loadIndividually(ctx context.Context) (*model.UserSubscription, model.UsageStats, error) {
	var (
		g       errgroup.Group
		current *model.UserSubscription
		usage   model.UsageStats
	)
	g.Go(func() error {
		var err error
		current, err = s.api.CurrentSubscription(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		usage, err = s.api.Usage(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, model.UsageStats{}, err
	}
	return current, usage, nil
}

func (s *Service) freeUsage() model.UsageStats {
	limit := func(n int) *int { return &n }
	return model.UsageStats{
		DailyArticlesLimit: limit(freeDailyArticles),
		FavoritesLimit:     limit(freeFavorites),
		ExportsLimit:       limit(freeExports),
		APICallsLimit:      limit(freeAPICalls),
		ResetDate:          s.now(),
	}
}

// Upgrade はプランを変更し、契約状態を取り直す。
func (s *Service) Upgrade(ctx context.Context, planID int) (*model.PaymentIntent, error) {
	intent, err := s.api.Upgrade(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx); err != nil {
		s.logger.Warn("プラン変更後の契約情報の再取得に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return &intent, nil
}

// Cancel は契約を解約し、契約状態を取り直す。
func (s *Service) Cancel(ctx context.Context) error {
	if err := s.api.CancelSubscription(ctx); err != nil {
		return err
	}
	if err := s.Load(ctx); err != nil {
		s.logger.Warn("解約後の契約情報の再取得に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// CheckLimit は機能を利用できるかを返す。
// 利用状況が不明な場合はfalse、上限がない場合はtrue。
func (s *Service) CheckLimit(feature model.Feature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.usage == nil {
		return false
	}
	count, limit, ok := s.usage.Usage(feature)
	if !ok {
		return false
	}
	return limit == nil || count < *limit
}

// RemainingLimit は機能の残り利用回数を返す。
// 上限がない場合と利用状況が不明な場合はnil。
func (s *Service) RemainingLimit(feature model.Feature) *int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.usage == nil {
		return nil
	}
	count, limit, ok := s.usage.Usage(feature)
	if !ok || limit == nil {
		return nil
	}
	remaining := *limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// Reset はログイン中のみ有効な情報を破棄する。プラン一覧は残す。
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
	s.usage = nil
}

// Snapshot は現在の契約状態のコピーを返す。
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]model.SubscriptionPlan, len(s.plans))
	copy(plans, s.plans)

	snap := Snapshot{Plans: plans}
	if s.cur != nil {
		cur := *s.cur
		snap.Current = &cur
	}
	if s.usage != nil {
		usage := *s.usage
		snap.Usage = &usage
	}
	return snap
}

func (s *Service) set(plans []model.SubscriptionPlan, current *model.UserSubscription, usage *model.UsageStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = plans
	s.cur = current
	s.usage = usage
}

// setAuthenticated はログイン中にだけ保持する契約情報を反映する。
// 取得中にセッションが無効になっていた場合はプラン一覧だけを反映する。
// 無効化の通知はトークンを消してからResetを呼ぶので、s.muの中で確認すれば取りこぼさない。
func (s *Service) setAuthenticated(plans []model.SubscriptionPlan, current *model.UserSubscription, usage *model.UsageStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plans = plans
	if !s.auth.Authenticated() {
		s.logger.Info("取得中にセッションが無効になったため契約情報は破棄します")
		s.cur = nil
		s.usage = nil
		return
	}
	s.cur = current
	s.usage = usage
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

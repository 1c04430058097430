package gateway

import (
	"context"
	"net/http"

	"github.com/hitoshi/newsdeck/internal/model"
)

const (
	pathSubscriptionPlans     = "/api/auth/subscription-plans/"
	pathSubscriptionCurrent   = "/api/auth/subscription/current/"
	pathSubscriptionUsage     = "/api/auth/subscription/usage/"
	pathSubscriptionDashboard = "/api/auth/subscription/dashboard/"
	pathSubscriptionUpgrade   = "/api/auth/subscription/upgrade/"
	pathSubscriptionCancel    = "/api/auth/subscription/cancel/"
)

// SubscriptionPlans は購入可能なプランの一覧を取得する。
func (a *API) SubscriptionPlans(ctx context.Context) ([]model.SubscriptionPlan, error) {
	body, err := a.call(ctx, request{
		endpoint: "subscription_plans",
		method:   http.MethodGet,
		path:     pathSubscriptionPlans,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[model.SubscriptionPlan](body)
}

// CurrentSubscription は現在の契約を取得する。未契約の場合はnilを返す。
func (a *API) CurrentSubscription(ctx context.Context) (*model.UserSubscription, error) {
	var sub *model.UserSubscription
	if err := a.getJSON(ctx, "subscription_current", pathSubscriptionCurrent, &sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Usage は当日の利用状況を取得する。
func (a *API) Usage(ctx context.Context) (model.UsageStats, error) {
	var usage model.UsageStats
	if err := a.getJSON(ctx, "subscription_usage", pathSubscriptionUsage, &usage); err != nil {
		return model.UsageStats{}, err
	}
	return usage, nil
}

// SubscriptionDashboard は契約・利用状況・プランをまとめて取得する。
func (a *API) SubscriptionDashboard(ctx context.Context) (model.SubscriptionDashboard, error) {
	var dashboard model.SubscriptionDashboard
	if err := a.getJSON(ctx, "subscription_dashboard", pathSubscriptionDashboard, &dashboard); err != nil {
		return model.SubscriptionDashboard{}, err
	}
	return dashboard, nil
}

// Upgrade はプランを変更し、支払い情報を返す。
func (a *API) Upgrade(ctx context.Context, planID int) (model.PaymentIntent, error) {
	body, err := a.call(ctx, request{
		endpoint: "subscription_upgrade",
		method:   http.MethodPost,
		path:     pathSubscriptionUpgrade,
		body:     map[string]int{"plan_id": planID},
	})
	if err != nil {
		return model.PaymentIntent{}, err
	}

	var intent model.PaymentIntent
	if err := decodeJSON(body, &intent); err != nil {
		return model.PaymentIntent{}, err
	}
	return intent, nil
}

// CancelSubscription は契約を解約する。
func (a *API) CancelSubscription(ctx context.Context) error {
	_, err := a.call(ctx, request{
		endpoint: "subscription_cancel",
		method:   http.MethodPost,
		path:     pathSubscriptionCancel,
	})
	return err
}

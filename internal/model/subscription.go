package model

import "time"

// Feature はプラン上限の対象となる機能。
type Feature string

const (
	FeatureArticles  Feature = "articles"
	FeatureFavorites Feature = "favorites"
	FeatureExports   Feature = "exports"
	FeatureAPI       Feature = "api"
)

// PlanLimits はプランごとの上限。nilは無制限を表す。
type PlanLimits struct {
	DailyArticles *int `json:"daily_articles"`
	Favorites     *int `json:"favorites"`
	Exports       *int `json:"exports"`
	APICalls      *int `json:"api_calls"`
}

// SubscriptionPlan は購入可能なプラン。
type SubscriptionPlan struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	PlanType      string     `json:"plan_type"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	BillingPeriod string     `json:"billing_period"`
	Features      []string   `json:"features"`
	IsPopular     bool       `json:"is_popular"`
	IsActive      bool       `json:"is_active"`
	Limits        PlanLimits `json:"limits"`
}

// UserSubscription はユーザーの契約状態。
type UserSubscription struct {
	ID          int              `json:"id"`
	User        int              `json:"user"`
	Plan        SubscriptionPlan `json:"plan"`
	Status      string           `json:"status"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
	AutoRenewal bool             `json:"auto_renewal"`
}

// UsageStats は当日の利用状況。各上限はnilで無制限。
type UsageStats struct {
	DailyArticlesRead  int       `json:"daily_articles_read"`
	DailyArticlesLimit *int      `json:"daily_articles_limit"`
	FavoritesCount     int       `json:"favorites_count"`
	FavoritesLimit     *int      `json:"favorites_limit"`
	ExportsCount       int       `json:"exports_count"`
	ExportsLimit       *int      `json:"exports_limit"`
	APICallsCount      int       `json:"api_calls_count"`
	APICallsLimit      *int      `json:"api_calls_limit"`
	ResetDate          time.Time `json:"reset_date"`
}

// Usage は機能ごとの利用数と上限を返す。未知の機能はok=false。
func (u UsageStats) Usage(f Feature) (count int, limit *int, ok bool) {
	switch f {
	case FeatureArticles:
		return u.DailyArticlesRead, u.DailyArticlesLimit, true
	case FeatureFavorites:
		return u.FavoritesCount, u.FavoritesLimit, true
	case FeatureExports:
		return u.ExportsCount, u.ExportsLimit, true
	case FeatureAPI:
		return u.APICallsCount, u.APICallsLimit, true
	}
	return 0, nil, false
}

// PaymentIntent はアップグレード時の支払い情報。
type PaymentIntent struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method"`
	ClientSecret  string  `json:"client_secret,omitempty"`
}

// SubscriptionDashboard は契約・利用状況・プランをまとめた応答。
type SubscriptionDashboard struct {
	Subscription *UserSubscription  `json:"subscription"`
	Usage        UsageStats         `json:"usage"`
	Plans        []SubscriptionPlan `json:"plans"`
}

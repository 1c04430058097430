package model

import "time"

// User はバックエンドに登録されたユーザー。
type User struct {
	ID              int         `json:"id"`
	Email           string      `json:"email"`
	Username        string      `json:"username"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	FullName        string      `json:"full_name"`
	IsEmailVerified bool        `json:"is_email_verified"`
	CreatedAt       time.Time   `json:"created_at"`
	Profile         UserProfile `json:"profile"`
}

// UserProfile はユーザーの表示設定。
type UserProfile struct {
	Avatar                 *string    `json:"avatar"`
	Bio                    string     `json:"bio"`
	Language               string     `json:"language"`
	Theme                  string     `json:"theme"`
	Timezone               string     `json:"timezone"`
	EmailNotifications     bool       `json:"email_notifications"`
	NewsletterSubscription bool       `json:"newsletter_subscription"`
	ArticlesRead           int        `json:"articles_read"`
	LastActivity           *time.Time `json:"last_activity,omitempty"`
}

// ProfileUpdate はプロフィールの部分更新。nilのフィールドは送信しない。
type ProfileUpdate struct {
	Bio                    *string `json:"bio,omitempty"`
	Language               *string `json:"language,omitempty" validate:"omitempty,oneof=ru en"`
	Theme                  *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark auto"`
	Timezone               *string `json:"timezone,omitempty"`
	EmailNotifications     *bool   `json:"email_notifications,omitempty"`
	NewsletterSubscription *bool   `json:"newsletter_subscription,omitempty"`
}

// LoginCredentials はログインフォームの入力。
type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterData は登録フォームの入力。
type RegisterData struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,min=3,max=150,username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// PasswordChangeData はパスワード変更フォームの入力。
type PasswordChangeData struct {
	OldPassword        string `json:"old_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,min=8"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

// AuthResponse は登録・ログインの応答。
type AuthResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

// UserStats はユーザーの利用統計。
type UserStats struct {
	ArticlesRead              int       `json:"articles_read"`
	FavoriteArticlesCount     int       `json:"favorite_articles_count"`
	CustomSourcesCount        int       `json:"custom_sources_count"`
	SubscriptionStatus        string    `json:"subscription_status"`
	SubscriptionDaysRemaining int       `json:"subscription_days_remaining"`
	APIRequestsToday          int       `json:"api_requests_today"`
	RegistrationDate          time.Time `json:"registration_date"`
	LastActivity              time.Time `json:"last_activity"`
}

// DailyRequests は日別のAPI利用回数。
type DailyRequests struct {
	Day           string `json:"day"`
	RequestsCount int    `json:"requests_count"`
}

// Dashboard はユーザーダッシュボードの集約データ。
type Dashboard struct {
	User            User              `json:"user"`
	Subscription    *UserSubscription `json:"subscription"`
	RecentFavorites []FavoriteArticle `json:"recent_favorites"`
	APIUsageWeek    []DailyRequests   `json:"api_usage_week"`
	Stats           struct {
		TotalFavorites     int `json:"total_favorites"`
		TotalCustomSources int `json:"total_custom_sources"`
		APIRequestsToday   int `json:"api_requests_today"`
	} `json:"stats"`
}

// FavoriteArticle はサーバー側で管理される認証ユーザーのお気に入り記事。
// クライアントローカルのお気に入り集合とは別物で、両者を混同しないこと。
type FavoriteArticle struct {
	ID                 int       `json:"id"`
	Article            int       `json:"article"`
	ArticleTitle       string    `json:"article_title"`
	ArticleURL         string    `json:"article_url"`
	ArticleSource      string    `json:"article_source"`
	ArticlePublishedAt time.Time `json:"article_published_at"`
	Notes              string    `json:"notes"`
	CreatedAt          time.Time `json:"created_at"`
}

// FavoriteToggleResult はサーバー側お気に入りトグルの結果。
type FavoriteToggleResult struct {
	Message    string `json:"message,omitempty"`
	IsFavorite bool   `json:"is_favorite"`
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	BackendAPIURL  string
	RequestTimeout time.Duration
	StaleTime      time.Duration
	CacheSize      int

	// Database（空の場合はメモリストレージ）
	DatabaseURL          string
	StorageRetentionDays int

	// Home
	StatsRefreshInterval time.Duration
	URLSyncDebounce      time.Duration
	MaxAutoAdvance       int
	NoticeTTL            time.Duration
	ClientIdleTimeout    time.Duration
	MaxWorkspaces        int

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral  int
	RateLimitMutation int
	RateLimitPerIP    int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BackendAPIURL = strings.TrimRight(os.Getenv("BACKEND_API_URL"), "/")
	if cfg.BackendAPIURL == "" {
		missing = append(missing, "BACKEND_API_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if err := validateHTTPURL("BACKEND_API_URL", cfg.BackendAPIURL); err != nil {
		return nil, err
	}

	// Optional fields with defaults
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.StorageRetentionDays = getEnvInt("STORAGE_RETENTION_DAYS", 90)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	cfg.StaleTime = getEnvDuration("STALE_TIME", 30*time.Second)
	cfg.CacheSize = getEnvInt("CACHE_SIZE", 512)
	cfg.StatsRefreshInterval = getEnvDuration("STATS_REFRESH_INTERVAL", 60*time.Second)
	cfg.URLSyncDebounce = getEnvDuration("URL_SYNC_DEBOUNCE", 300*time.Millisecond)
	cfg.MaxAutoAdvance = getEnvInt("MAX_AUTO_ADVANCE", 3)
	cfg.NoticeTTL = getEnvDuration("NOTICE_TTL", 5*time.Second)
	cfg.ClientIdleTimeout = getEnvDuration("CLIENT_IDLE_TIMEOUT", 30*time.Minute)
	cfg.MaxWorkspaces = getEnvInt("MAX_WORKSPACES", 10000)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 30)
	cfg.RateLimitPerIP = getEnvInt("RATE_LIMIT_PER_IP", 600)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")

	return cfg, nil
}

// validateHTTPURL は値がhttpまたはhttpsの絶対URLであることを確認する。
func validateHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL: %q", name, raw)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt は正の整数を読み込む。不正値や0以下は既定値にする。
func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

// getEnvDuration はtime.ParseDuration形式の値を読み込む。
// URL_SYNC_DEBOUNCE=0s のように0は有効な値として扱う。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

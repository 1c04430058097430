package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/newsdeck/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralPerMinute  int           // API全般の上限（req/min/client）
	MutationPerMinute int           // トグル等の更新操作の上限（req/min/client）
	IPPerMinute       int           // 接続元IPごとの上限（req/min/IP）
	CleanupInterval   time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/client、更新操作 30 req/min/client、接続元IP 600 req/min/IP。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralPerMinute:  120,
		MutationPerMinute: 30,
		IPPerMinute:       600,
		CleanupInterval:   5 * time.Minute,
	}
}

// errRateLimited は429応答の本文。
var errRateLimited = &model.APIError{
	Code:     "RATE_LIMIT_EXCEEDED",
	Message:  "リクエストが多すぎます。",
	Category: "system",
	Action:   "しばらく待ってから再度お試しください。",
}

// clientLimiter はクライアントごとのリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet は1種類の上限についてクライアントごとのリミッターを管理する。
type limiterSet struct {
	name  string
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

func newLimiterSet(name string, perMinute int) *limiterSet {
	return &limiterSet{
		name:     name,
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		limiters: make(map[string]*clientLimiter),
	}
}

// allow はクライアントのトークンを1つ消費できるかを返す。
func (s *limiterSet) allow(clientID string, now time.Time) bool {
	s.mu.Lock()
	cl, ok := s.limiters[clientID]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[clientID] = cl
	}
	cl.lastAccess = now
	s.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// prune は最終アクセスからttlを超えたエントリを削除する。
func (s *limiterSet) prune(ttl time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for clientID, cl := range s.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(s.limiters, clientID)
		}
	}
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimiter はクライアントごとのレート制限を管理する。
// API全般の上限と、更新操作に対するより厳しい上限の2種類を提供する。
// client_id Cookieは自由に発行できるため、識別より前に接続元IPごとの上限もかける。
type RateLimiter struct {
	config   RateLimiterConfig
	ip       *limiterSet
	general  *limiterSet
	mutation *limiterSet
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultRateLimiterConfig().CleanupInterval
	}
	if config.IPPerMinute <= 0 {
		config.IPPerMinute = DefaultRateLimiterConfig().IPPerMinute
	}
	rl := &RateLimiter{
		config:   config,
		ip:       newLimiterSet("ip", config.IPPerMinute),
		general:  newLimiterSet("general", config.GeneralPerMinute),
		mutation: newLimiterSet("mutation", config.MutationPerMinute),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// IPMiddleware は接続元IPごとのレート制限ミドルウェアを返す。
// クライアント識別ミドルウェアの前に配置し、Cookieを捨てて新しいIDを得続けるリクエストを抑える。
func (rl *RateLimiter) IPMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r)
			if !rl.ip.allow(ip, rl.now()) {
				writeRateLimitResponse(w, rl.ip.limit)
				slog.Warn("rate limit exceeded",
					slog.String("remote_ip", ip),
					slog.String("limit_type", rl.ip.name),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPLimiterCount は管理中の接続元IPリミッターの数を返す。
func (rl *RateLimiter) IPLimiterCount() int {
	return rl.ip.len()
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// クライアント識別ミドルウェアの後に配置する。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general)
}

// MutationMiddleware は更新操作のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) MutationMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.mutation)
}

// GeneralLimiterCount は管理中のAPI全般リミッターの数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.len()
}

// MutationLimiterCount は管理中の更新操作リミッターの数を返す。
func (rl *RateLimiter) MutationLimiterCount() int {
	return rl.mutation.len()
}

func (rl *RateLimiter) middleware(set *limiterSet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID, err := ClientIDFromContext(r.Context())
			if err != nil {
				WriteInternalServerError(w)
				return
			}

			if !set.allow(clientID, rl.now()) {
				writeRateLimitResponse(w, set.limit)
				slog.Warn("rate limit exceeded",
					slog.String("client_id", clientID),
					slog.String("limit_type", set.name),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := rl.now()
	rl.ip.prune(ttl, now)
	rl.general.prune(ttl, now)
	rl.mutation.prune(ttl, now)
}

// remoteIP はRemoteAddrからポートを除いたホスト部分を返す。
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	retryAfterSec := 1
	if limit > 0 {
		retryAfterSec = max(int(math.Ceil(1.0/float64(limit))), 1)
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, errRateLimited)
}

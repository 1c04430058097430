// Package gateway はリモートのニュースAPIバックエンドへのHTTPクライアントを提供する。
//
// すべての呼び出しはタイムアウト付きで実行され、通信失敗は*model.NetworkError、
// 2xx以外の応答は*model.HTTPErrorとして返す。自動リトライは行わない。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/model"
)

const (
	// DefaultTimeout は1リクエストあたりの上限時間。
	DefaultTimeout = 10 * time.Second
	// DefaultStaleTime は匿名GETの応答を再利用する期間。
	DefaultStaleTime = 30 * time.Second
	// DefaultCacheSize はキャッシュする応答の最大件数。
	DefaultCacheSize = 512

	// maxErrorBody はHTTPErrorに保持するレスポンスボディの上限。
	maxErrorBody = 2048
)

// Credentials はリクエストに付与する認証トークンの供給元。
// 401応答を受けると、そのリクエストで送ったトークンを渡してInvalidateTokenが呼ばれる。
type Credentials interface {
	Token() string
	InvalidateToken(used string) bool
}

// Options はClientの動作設定。
type Options struct {
	Timeout   time.Duration
	StaleTime time.Duration // 0以下でキャッシュ無効
	CacheSize int
}

// Client はバックエンドとの通信を担う共有クライアント。
// 応答キャッシュと同一リクエストの集約はすべてのクライアント間で共有する。
// クライアントごとの認証情報はBindで束縛する。
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	logger     *slog.Logger
	metrics    metrics.Recorder
	cache      *expirable.LRU[string, []byte]
	group      singleflight.Group
	now        func() time.Time // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, baseURL string, opts Options, logger *slog.Logger, rec metrics.Recorder) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    opts.Timeout,
		logger:     logger,
		metrics:    rec,
		now:        time.Now,
	}
	if opts.StaleTime > 0 {
		c.cache = expirable.NewLRU[string, []byte](opts.CacheSize, nil, opts.StaleTime)
	}
	return c
}

// Bind は認証情報を束縛したAPIを返す。credsがnilの場合は匿名で呼び出す。
func (c *Client) Bind(creds Credentials) *API {
	return &API{client: c, creds: creds}
}

// InvalidateArticles はキャッシュ済みの記事一覧を破棄する。
func (c *Client) InvalidateArticles() {
	c.invalidatePrefix(pathArticles)
}

func (c *Client) invalidatePrefix(prefix string) {
	if c.cache == nil {
		return
	}
	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
		}
	}
}

// API は1クライアント分の認証情報を持つゲートウェイ。
type API struct {
	client *Client
	creds  Credentials
}

// request は1回分のバックエンド呼び出しの指定。
type request struct {
	endpoint  string // メトリクス用の論理名
	method    string
	path      string
	query     url.Values
	body      any
	cacheable bool
	// validate はキャッシュに載せる前に応答を検査する。失敗した応答はキャッシュしない。
	validate func([]byte) error
}

func (a *API) token() string {
	if a.creds == nil {
		return ""
	}
	return a.creds.Token()
}

// call はリクエストを実行し、成功時のレスポンスボディを返す。
// 匿名のキャッシュ可能なGETは、期限内の応答を再利用し同時実行を1回に集約する。
func (a *API) call(ctx context.Context, r request) ([]byte, error) {
	c := a.client
	token := a.token()

	if !r.cacheable || token != "" || c.cache == nil {
		return a.do(ctx, r, token)
	}

	key := cacheKey(r.path, r.query)
	if body, ok := c.cache.Get(key); ok {
		c.metrics.RecordGatewayRequest(r.endpoint, metrics.OutcomeCacheHit)
		return body, nil
	}

	// 集約した取得は他のクライアントとも共有するため、最初の呼び出し元のキャンセルを引き継がない。
	// 上限時間はdoのタイムアウトで決まる。
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		body, err := a.do(shared, r, "")
		if err != nil {
			return nil, err
		}
		if r.validate != nil {
			if err := r.validate(body); err != nil {
				return nil, err
			}
		}
		c.cache.Add(key, body)
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, &model.NetworkError{Op: r.method + " " + r.path, Err: ctx.Err()}
	}
}

// getDecoded はキャッシュ可能なGETを実行してdecodeで変換する。
// decodeできない応答はキャッシュに残らない。
func getDecoded[T any](ctx context.Context, a *API, r request, decode func([]byte) (T, error)) (T, error) {
	r.validate = func(body []byte) error {
		_, err := decode(body)
		return err
	}
	body, err := a.call(ctx, r)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode(body)
}

// do はHTTPリクエストを1回だけ送信する。
func (a *API) do(ctx context.Context, r request, token string) ([]byte, error) {
	c := a.client

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	var reqBody io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordGatewayLatency(c.now().Sub(start))
	if err != nil {
		c.metrics.RecordGatewayRequest(r.endpoint, metrics.OutcomeNetworkError)
		c.logger.Warn("バックエンドへの通信に失敗しました",
			slog.String("endpoint", r.endpoint),
			slog.String("method", r.method),
			slog.String("path", r.path),
			slog.String("error", err.Error()),
		)
		return nil, &model.NetworkError{Op: r.method + " " + r.path, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.RecordBackendStatus(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordGatewayRequest(r.endpoint, metrics.OutcomeNetworkError)
		return nil, &model.NetworkError{Op: r.method + " " + r.path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordGatewayRequest(r.endpoint, metrics.OutcomeHTTPError)
		if resp.StatusCode == http.StatusUnauthorized && a.creds != nil && token != "" {
			// セッション無効を通知してからエラーを返す。実行中の他のリクエストは中断しない。
			if a.creds.InvalidateToken(token) {
				c.metrics.RecordSessionInvalidated()
			}
		}
		c.logger.Warn("バックエンドがエラーステータスを返しました",
			slog.String("endpoint", r.endpoint),
			slog.String("path", r.path),
			slog.Int("http_status", resp.StatusCode),
		)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &model.HTTPError{Status: resp.StatusCode, Path: r.path, Body: string(body)}
	}

	c.metrics.RecordGatewayRequest(r.endpoint, metrics.OutcomeOK)
	return body, nil
}

// cacheKey はパスと正規化済みクエリからキャッシュキーを作る。
// url.Values.Encodeはキー順に並べるため、同じ条件は同じキーになる。
func cacheKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

// IsNetworkError はerrが通信失敗かどうかを判定する。
func IsNetworkError(err error) bool {
	var netErr *model.NetworkError
	return errors.As(err, &netErr)
}

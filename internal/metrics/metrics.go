// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ゲートウェイ呼び出しの結果ラベル。
const (
	OutcomeOK           = "ok"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
	OutcomeCacheHit     = "cache_hit"
)

// Recorder はメトリクス収集のインターフェース。
// ゲートウェイ、一覧コントローラー、楽観的更新から利用する。
type Recorder interface {
	RecordGatewayRequest(endpoint, outcome string)
	RecordGatewayLatency(duration time.Duration)
	RecordBackendStatus(statusCode int)
	RecordStaleDiscard()
	RecordRollback(kind string)
	RecordSessionInvalidated()
	SetActiveWorkspaces(n int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gatewayRequests    *prometheus.CounterVec
	gatewayLatency     prometheus.Histogram
	backendStatus      *prometheus.CounterVec
	staleDiscards      prometheus.Counter
	rollbacks          *prometheus.CounterVec
	sessionInvalidated prometheus.Counter
	activeWorkspaces   prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_gateway_requests_total",
			Help: "バックエンド呼び出しのエンドポイント・結果別の合計数",
		}, []string{"endpoint", "outcome"}),
		gatewayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsdeck_gateway_latency_seconds",
			Help:    "バックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_backend_status_total",
			Help: "バックエンドのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdeck_stale_responses_discarded_total",
			Help: "世代不一致で破棄された一覧レスポンスの合計数",
		}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_optimistic_rollbacks_total",
			Help: "楽観的更新のロールバック数",
		}, []string{"kind"}),
		sessionInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdeck_session_invalidated_total",
			Help: "401応答によるセッション無効化の合計数",
		}),
		activeWorkspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newsdeck_active_workspaces",
			Help: "メモリ上に保持しているクライアントワークスペース数",
		}),
	}

	reg.MustRegister(
		c.gatewayRequests,
		c.gatewayLatency,
		c.backendStatus,
		c.staleDiscards,
		c.rollbacks,
		c.sessionInvalidated,
		c.activeWorkspaces,
	)

	return c
}

// RecordGatewayRequest はゲートウェイ呼び出しを結果別に記録する。
func (c *Collector) RecordGatewayRequest(endpoint, outcome string) {
	c.gatewayRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordGatewayLatency はバックエンド呼び出しのレイテンシを記録する。
func (c *Collector) RecordGatewayLatency(duration time.Duration) {
	c.gatewayLatency.Observe(duration.Seconds())
}

// RecordBackendStatus はバックエンドのHTTPステータスコードを記録する。
func (c *Collector) RecordBackendStatus(statusCode int) {
	c.backendStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordStaleDiscard は破棄された古いレスポンスを記録する。
func (c *Collector) RecordStaleDiscard() {
	c.staleDiscards.Inc()
}

// RecordRollback は楽観的更新のロールバックを記録する。kindは "featured" や "favorite"。
func (c *Collector) RecordRollback(kind string) {
	c.rollbacks.WithLabelValues(kind).Inc()
}

// RecordSessionInvalidated はセッション無効化を記録する。
func (c *Collector) RecordSessionInvalidated() {
	c.sessionInvalidated.Inc()
}

// SetActiveWorkspaces は保持中のワークスペース数を設定する。
func (c *Collector) SetActiveWorkspaces(n int) {
	c.activeWorkspaces.Set(float64(n))
}

// Nop は何も記録しないRecorder。メトリクス不要な場面とテストで使う。
type Nop struct{}

func (Nop) RecordGatewayRequest(string, string) {}
func (Nop) RecordGatewayLatency(time.Duration)  {}
func (Nop) RecordBackendStatus(int)             {}
func (Nop) RecordStaleDiscard()                 {}
func (Nop) RecordRollback(string)               {}
func (Nop) RecordSessionInvalidated()           {}
func (Nop) SetActiveWorkspaces(int)             {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)

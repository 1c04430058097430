// Package statsrefresh は集計値を定期的に取り直し、全クライアントで共有するスナップショットを保持する。
package statsrefresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/newsdeck/internal/model"
)

// DefaultInterval は集計値を取り直す間隔。
const DefaultInterval = 60 * time.Second

// StatsFetcher は集計値を取得する。
type StatsFetcher interface {
	FetchStats(ctx context.Context) (model.AggregateStats, error)
}

// Refresher は集計値の定期取得と最新値の保持を行う。
// 取得に失敗した場合は前回の値を保持し続ける。
type Refresher struct {
	fetcher StatsFetcher
	logger  *slog.Logger

	mu        sync.RWMutex
	stats     model.AggregateStats
	fetchedAt time.Time
	ok        bool
}

// NewRefresher はRefresherを生成する。
func NewRefresher(fetcher StatsFetcher, logger *slog.Logger) *Refresher {
	return &Refresher{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Start はinterval間隔で集計値を取り直す。起動直後に1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("集計値の定期取得を開始しました",
		slog.Duration("interval", interval),
	)

	r.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("集計値の定期取得を停止しました")
			return
		case <-ticker.C:
			r.runAndLog(ctx)
		}
	}
}

func (r *Refresher) runAndLog(ctx context.Context) {
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Warn("集計値の取得に失敗しました。前回の値を使い続けます",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は集計値を1回取得してスナップショットを更新する。
func (r *Refresher) RunOnce(ctx context.Context) error {
	stats, err := r.fetcher.FetchStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh stats: %w", err)
	}

	r.mu.Lock()
	r.stats = stats
	r.fetchedAt = time.Now()
	r.ok = true
	r.mu.Unlock()
	return nil
}

// Stats は最新の集計値を返す。一度も取得できていない場合はok=false。
func (r *Refresher) Stats() (stats model.AggregateStats, fetchedAt time.Time, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats, r.fetchedAt, r.ok
}

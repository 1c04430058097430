package home

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/repository"
	"github.com/hitoshi/newsdeck/internal/storage"
)

const (
	// DefaultIdleTimeout はアクセスのないWorkspaceを破棄するまでの時間。
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultMaxWorkspaces は同時に保持するWorkspaceの上限。
	// 上限に達すると最も長くアクセスのないWorkspaceから閉じる。
	DefaultMaxWorkspaces = 10000
)

// entry はWorkspaceと最終アクセス時刻を保持する。
type entry struct {
	workspace  *Workspace
	lastAccess time.Time
}

// Registry はクライアントIDごとのWorkspaceを管理する。
// Workspaceは初回アクセス時に生成し、一定時間アクセスがないか上限を超えると破棄する。
// 破棄したクライアントのお気に入りとトークンはストレージに残っているので、次のアクセスで復元される。
type Registry struct {
	repo        repository.ClientStorageRepository
	deps        Deps
	opts        Options
	idleTimeout time.Duration
	metrics     metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time

	// mu はentryの最終アクセス時刻と生成時のダブルチェックを守る
	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
}

// NewRegistry はRegistryを生成する。idleTimeoutが0以下の場合はDefaultIdleTimeout、
// opts.MaxWorkspacesが0以下の場合はDefaultMaxWorkspacesを使う。
func NewRegistry(repo repository.ClientStorageRepository, deps Deps, opts Options, idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if opts.MaxWorkspaces <= 0 {
		opts.MaxWorkspaces = DefaultMaxWorkspaces
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	r := &Registry{
		repo:        repo,
		deps:        deps,
		opts:        opts,
		idleTimeout: idleTimeout,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         time.Now,
	}
	// サイズが正なのでエラーにはならない
	r.entries, _ = lru.NewWithEvict(opts.MaxWorkspaces, func(_ string, e *entry) {
		e.workspace.Close()
	})
	return r
}

// Get はクライアントのWorkspaceを返す。なければストレージから復元して生成する。
func (r *Registry) Get(ctx context.Context, clientID string) (*Workspace, error) {
	r.mu.Lock()
	if e, ok := r.entries.Get(clientID); ok {
		e.lastAccess = r.now()
		r.mu.Unlock()
		return e.workspace, nil
	}
	r.mu.Unlock()

	// ストレージの読み込みはロックの外で行う
	ws, err := NewWorkspace(ctx, clientID, storage.NewClientStorage(r.repo, clientID), r.deps, r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// ダブルチェック
	if e, ok := r.entries.Get(clientID); ok {
		e.lastAccess = r.now()
		ws.Close()
		return e.workspace, nil
	}

	if r.entries.Add(clientID, &entry{workspace: ws, lastAccess: r.now()}) {
		r.logger.Warn("ワークスペース数が上限に達したため最も古いものを破棄しました",
			slog.Int("max_workspaces", r.opts.MaxWorkspaces),
		)
	}
	r.metrics.SetActiveWorkspaces(r.entries.Len())
	return ws, nil
}

// Len は保持しているWorkspaceの数を返す。
func (r *Registry) Len() int {
	return r.entries.Len()
}

// StartEviction はバックグラウンドで定期的にアイドルなWorkspaceを破棄する。
// ctxがキャンセルされると停止する。
func (r *Registry) StartEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Evict()
		case <-ctx.Done():
			return
		}
	}
}

// Evict は最終アクセスからidleTimeoutを超えたWorkspaceを破棄し、破棄した数を返す。
// 破棄したWorkspaceは保留中のURL変更を反映してから閉じる。
func (r *Registry) Evict() int {
	now := r.now()

	r.mu.Lock()
	evicted := 0
	for _, clientID := range r.entries.Keys() {
		e, ok := r.entries.Peek(clientID)
		if ok && now.Sub(e.lastAccess) > r.idleTimeout {
			r.entries.Remove(clientID)
			evicted++
		}
	}
	remaining := r.entries.Len()
	r.mu.Unlock()

	r.metrics.SetActiveWorkspaces(remaining)

	if evicted > 0 {
		r.logger.Info("アイドル状態のワークスペースを破棄しました",
			slog.Int("evicted_count", evicted),
			slog.Int("active_count", remaining),
		)
	}
	return evicted
}

// Close はすべてのWorkspaceを閉じる。シャットダウン時に呼ぶ。
func (r *Registry) Close() {
	r.mu.Lock()
	r.entries.Purge()
	r.mu.Unlock()

	r.metrics.SetActiveWorkspaces(0)
}

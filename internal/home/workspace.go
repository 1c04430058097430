// Package home は1クライアント分のホーム画面の状態をまとめる。
//
// Workspaceは絞り込み条件、URL同期、記事一覧、ローカルお気に入り、
// 注目記事ストア、通知、認証、契約状態を束ね、画面操作を1つずつ受け付ける。
package home

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/newsdeck/internal/articlelist"
	"github.com/hitoshi/newsdeck/internal/auth"
	"github.com/hitoshi/newsdeck/internal/favorite"
	"github.com/hitoshi/newsdeck/internal/featured"
	"github.com/hitoshi/newsdeck/internal/filter"
	"github.com/hitoshi/newsdeck/internal/gateway"
	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/notice"
	"github.com/hitoshi/newsdeck/internal/security"
	"github.com/hitoshi/newsdeck/internal/storage"
	"github.com/hitoshi/newsdeck/internal/subscription"
	"github.com/hitoshi/newsdeck/internal/urlsync"
)

// StatsSource は定期更新された集計値の共有スナップショット。
type StatsSource interface {
	Stats() (stats model.AggregateStats, fetchedAt time.Time, ok bool)
}

// Deps は全Workspaceで共有する依存。
type Deps struct {
	Client    *gateway.Client
	Stats     StatsSource
	Sanitizer security.Sanitizer
	Validator *auth.Validator
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

// Options はWorkspaceの設定。SyncDelayが0の場合はURLへ即時に反映する。
// MaxWorkspacesはRegistryが同時に保持する数の上限。
type Options struct {
	SyncDelay      time.Duration
	MaxAutoAdvance int
	NoticeTTL      time.Duration
	HistorySize    int
	MaxWorkspaces  int
}

// Workspace は1クライアント分のホーム画面。
type Workspace struct {
	clientID  string
	api       *gateway.API
	stats     StatsSource
	sanitizer security.Sanitizer
	logger    *slog.Logger

	history      *urlsync.MemoryHistory
	urlSync      *urlsync.Synchronizer
	list         *articlelist.Controller
	favorites    *favorite.Set
	featured     *featured.Store
	notices      *notice.Queue
	tokens       *auth.TokenManager
	auth         *auth.Service
	subscription *subscription.Service

	mu          sync.RWMutex
	state       filter.State
	sources     []model.Source
	sourcesOK   bool
	directStats *model.AggregateStats
}

// NewWorkspace はストレージからお気に入りとトークンを復元してWorkspaceを生成する。
func NewWorkspace(ctx context.Context, clientID string, store storage.Storage, deps Deps, opts Options) (*Workspace, error) {
	logger := deps.Logger.With(slog.String("client_id", clientID))

	favorites, err := favorite.Load(ctx, store, logger)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenManager(ctx, store, logger)
	if err != nil {
		return nil, err
	}

	api := deps.Client.Bind(tokens)
	notices := notice.NewQueue(opts.NoticeTTL)
	history := urlsync.NewMemoryHistory(opts.HistorySize)
	initial := filter.Default()

	w := &Workspace{
		clientID:     clientID,
		api:          api,
		stats:        deps.Stats,
		sanitizer:    deps.Sanitizer,
		logger:       logger,
		history:      history,
		urlSync:      urlsync.New(history, opts.SyncDelay, initial),
		list:         articlelist.NewController(api, favorites, opts.MaxAutoAdvance, deps.Metrics, logger),
		favorites:    favorites,
		featured:     featured.NewStore(api, notices, deps.Metrics, logger),
		notices:      notices,
		tokens:       tokens,
		auth:         auth.NewService(api, tokens, deps.Validator, logger),
		subscription: subscription.NewService(api, tokens, logger),
		state:        initial,
	}

	tokens.OnInvalidate(func() {
		w.subscription.Reset()
		w.logger.Info("セッションが無効になったためログイン中の情報を破棄しました")
	})

	return w, nil
}

// Open は初期表示を行う。URLクエリから条件を復元し、一覧・配信元・集計値を並行して取得する。
// 配信元と集計値の失敗はプレースホルダー表示になるだけで、エラーとしては返さない。
func (w *Workspace) Open(ctx context.Context, rawQuery string) error {
	state, err := urlsync.Parse(rawQuery)
	if err != nil {
		w.logger.Warn("URLクエリを解析できないため既定の条件で表示します",
			slog.String("query", rawQuery),
			slog.String("error", err.Error()),
		)
	}

	w.mu.Lock()
	w.state = state
	gen := w.list.Begin(state)
	w.mu.Unlock()
	w.urlSync.Reset(state)

	var g errgroup.Group
	g.Go(func() error {
		return w.run(ctx, gen, state)
	})
	g.Go(func() error {
		w.loadSources(ctx)
		return nil
	})
	g.Go(func() error {
		w.loadStats(ctx)
		return nil
	})
	return g.Wait()
}

// ChangeFilters は条件を変更して一覧を取り直す。空の変更は何もしない。
func (w *Workspace) ChangeFilters(ctx context.Context, patch filter.Patch) error {
	if patch.IsEmpty() {
		return nil
	}

	// 条件の更新と一覧の世代更新は同じ排他区間で行う
	w.mu.Lock()
	next := filter.ApplyChange(w.state, patch)
	w.state = next
	gen := w.list.Begin(next)
	w.mu.Unlock()

	w.urlSync.Push(next)
	return w.run(ctx, gen, next)
}

// Search はヘッダーの検索欄からの検索。他の条件を残したまま検索語を置き換える。
func (w *Workspace) Search(ctx context.Context, text string) error {
	return w.ChangeFilters(ctx, filter.Patch{Search: &text})
}

// LoadMore は次のページを追記する。読み進めたページはURLにも反映する。
func (w *Workspace) LoadMore(ctx context.Context) error {
	err := w.list.LoadMore(ctx)
	w.afterFetch()
	return err
}

// Retry は失敗した取得をやり直す。
func (w *Workspace) Retry(ctx context.Context) error {
	err := w.list.Retry(ctx)
	w.afterFetch()
	return err
}

// ToggleFavorite はローカルお気に入りを反転し、お気に入り絞り込み中なら一覧に反映する。
func (w *Workspace) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	on, err := w.favorites.Toggle(ctx, id)
	if err != nil {
		w.notices.Push(notice.LevelError, "お気に入りを保存できませんでした。")
		return on, err
	}
	w.list.Refilter()
	return on, nil
}

// ToggleFeatured は注目フラグを楽観的に反転する。
// 同じ記事のトグルが実行中の場合はfeatured.ErrToggleInFlightを返す。
func (w *Workspace) ToggleFeatured(ctx context.Context, id int) (bool, error) {
	return w.featured.Toggle(ctx, id)
}

// Article は記事1件を取得し、表示用に無害化して返す。
func (w *Workspace) Article(ctx context.Context, id int) (ArticleView, error) {
	a, err := w.api.FetchArticle(ctx, id)
	if err != nil {
		return ArticleView{}, err
	}
	w.featured.Seed([]model.Article{a})
	return w.articleView(a), nil
}

// DismissNotice は通知を閉じる。
func (w *Workspace) DismissNotice(id string) bool {
	return w.notices.Dismiss(id)
}

// Auth はこのクライアントの認証サービスを返す。
func (w *Workspace) Auth() *auth.Service {
	return w.auth
}

// Subscription はこのクライアントの契約状態を返す。
func (w *Workspace) Subscription() *subscription.Service {
	return w.subscription
}

// API はこのクライアントの資格情報に紐づいたゲートウェイを返す。
func (w *Workspace) API() *gateway.API {
	return w.api
}

// History はURLの履歴を返す。
func (w *Workspace) History() []string {
	return w.history.Entries()
}

// Close は保留中のURL変更を反映してタイマーを止める。
func (w *Workspace) Close() {
	w.urlSync.Flush()
	w.urlSync.Stop()
}

// run はBegin済みの世代で一覧を取得し、注目フラグの初期値を記録する。
func (w *Workspace) run(ctx context.Context, gen uint64, state filter.State) error {
	err := w.list.Run(ctx, gen, state)
	w.featured.Seed(w.list.Snapshot().Items)
	return err
}

// afterFetch は追記や再試行の後に注目フラグとURLのページ番号を揃える。
// スナップショットはw.muの中で取るので、途中で条件が変わった場合は取得中の状態が見え、
// 古い一覧のページ番号を新しい条件に書き込むことはない。
func (w *Workspace) afterFetch() {
	w.mu.Lock()
	snap := w.list.Snapshot()
	if snap.Status != articlelist.StatusSuccess || snap.Page == w.state.Page {
		w.mu.Unlock()
		w.featured.Seed(snap.Items)
		return
	}
	next := w.state.WithPage(snap.Page)
	w.state = next
	w.mu.Unlock()

	w.featured.Seed(snap.Items)
	w.urlSync.Push(next)
}

func (w *Workspace) loadSources(ctx context.Context) {
	sources, err := w.api.FetchSources(ctx)
	if err != nil {
		w.logger.Warn("配信元一覧の取得に失敗しました", slog.String("error", err.Error()))
		return
	}
	w.mu.Lock()
	w.sources = sources
	w.sourcesOK = true
	w.mu.Unlock()
}

// loadStats は共有スナップショットがまだない場合のみ直接取得する。
func (w *Workspace) loadStats(ctx context.Context) {
	if w.stats != nil {
		if _, _, ok := w.stats.Stats(); ok {
			return
		}
	}
	stats, err := w.api.FetchStats(ctx)
	if err != nil {
		w.logger.Warn("集計値の取得に失敗しました", slog.String("error", err.Error()))
		return
	}
	w.mu.Lock()
	w.directStats = &stats
	w.mu.Unlock()
}

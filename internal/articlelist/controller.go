// Package articlelist は記事一覧の取得状態を管理する。
//
// 一覧は置き換え（Load）と追記（LoadMore）の2つのモードで取得する。
// 取得のたびに世代番号を記録し、応答が返った時点で世代が進んでいれば
// その応答は古いものとして破棄する。
package articlelist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/newsdeck/internal/filter"
	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/model"
)

// DefaultMaxAutoAdvance はお気に入り絞り込みで表示件数が0のときに追加で読むページ数の上限。
const DefaultMaxAutoAdvance = 3

// Status は一覧の取得状態。
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Fetcher は記事を1ページ分取得する。
type Fetcher interface {
	FetchArticles(ctx context.Context, state filter.State) (model.PagedResult[model.Article], error)
}

// FavoriteChecker はお気に入り絞り込みに使う集合。
type FavoriteChecker interface {
	IsFavorite(id int) bool
	Len() int
}

// Snapshot はある時点の一覧の状態。呼び出し側が自由に扱える値のコピー。
type Snapshot struct {
	Status                 Status
	Items                  []model.Article
	TotalCount             int
	HasMore                bool
	MoreAvailableNoneShown bool
	Page                   int
	State                  filter.State
	Generation             uint64
	Err                    error
}

// pendingRequest は最後に発行した取得要求。Retryで再実行する。
type pendingRequest struct {
	state  filter.State
	append bool
}

// Controller は1クライアント分の記事一覧。
type Controller struct {
	fetcher        Fetcher
	favorites      FavoriteChecker
	metrics        metrics.Recorder
	logger         *slog.Logger
	maxAutoAdvance int

	mu            sync.Mutex
	status        Status
	items         []model.Article
	totalCount    int
	hasMore       bool
	moreNoneShown bool
	state         filter.State
	generation    uint64
	err           error
	last          *pendingRequest
}

// NewController はControllerを生成する。maxAutoAdvanceが負の場合は既定値を使う。
func NewController(fetcher Fetcher, favorites FavoriteChecker, maxAutoAdvance int, rec metrics.Recorder, logger *slog.Logger) *Controller {
	if maxAutoAdvance < 0 {
		maxAutoAdvance = DefaultMaxAutoAdvance
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Controller{
		fetcher:        fetcher,
		favorites:      favorites,
		metrics:        rec,
		logger:         logger,
		maxAutoAdvance: maxAutoAdvance,
		status:         StatusIdle,
		state:          filter.Default(),
	}
}

// Load は絞り込み条件で一覧を取り直す（置き換えモード）。
// 世代を進めるため、実行中の取得の応答はすべて破棄される。
func (c *Controller) Load(ctx context.Context, state filter.State) error {
	return c.Run(ctx, c.Begin(state), state)
}

// Begin は置き換えモードの取得を開始し、その世代番号を返す。
// 呼び出し側の条件の更新と同じ排他区間で呼ぶと、表示中の一覧が常に最後に
// 開始した条件のものになる。取得と反映はRunで行う。
func (c *Controller) Begin(state filter.State) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginLocked(state)
}

// Run はBeginで開始した世代の取得を行い、結果を反映する。
func (c *Controller) Run(ctx context.Context, gen uint64, state filter.State) error {
	res, err := c.fetch(ctx, state)
	return c.commit(gen, res, err, false)
}

func (c *Controller) beginLocked(state filter.State) uint64 {
	c.generation++
	c.status = StatusLoading
	c.items = nil
	c.totalCount = 0
	c.hasMore = false
	c.moreNoneShown = false
	c.state = state
	c.err = nil
	c.last = &pendingRequest{state: state}
	return c.generation
}

// LoadMore は現在の条件で次のページを追記する（追記モード）。
// 取得中、または続きがない場合は何もしない。
// 先読みしても表示対象が見つからなかった場合は、その先から読み進める。
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusLoading || (!c.hasMore && !c.moreNoneShown) {
		c.mu.Unlock()
		return nil
	}
	next := c.state.WithPage(c.state.Page + 1)
	gen := c.generation
	c.status = StatusLoading
	c.err = nil
	c.last = &pendingRequest{state: next, append: true}
	c.mu.Unlock()

	res, err := c.fetch(ctx, next)
	return c.commit(gen, res, err, true)
}

// Retry は最後に失敗した取得をやり直す。エラー状態でなければ何もしない。
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusError || c.last == nil {
		c.mu.Unlock()
		return nil
	}
	last := *c.last
	if !last.append {
		// 失敗した置き換えは最新の条件なので、同じ排他区間で世代を進める
		gen := c.beginLocked(last.state)
		c.mu.Unlock()
		return c.Run(ctx, gen, last.state)
	}
	gen := c.generation
	c.status = StatusLoading
	c.err = nil
	c.mu.Unlock()

	res, err := c.fetch(ctx, last.state)
	return c.commit(gen, res, err, true)
}

// Refilter はお気に入り集合の変更を表示中の一覧に反映する。
// お気に入り絞り込み中に外された記事を取り除く。
func (c *Controller) Refilter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.OnlyFavorites {
		return
	}
	c.items = c.visible(c.state, c.items)
	c.hasMore = c.hasMore && len(c.items) > 0
}

// Snapshot は現在の状態のコピーを返す。
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]model.Article, len(c.items))
	copy(items, c.items)

	return Snapshot{
		Status:                 c.status,
		Items:                  items,
		TotalCount:             c.totalCount,
		HasMore:                c.hasMore,
		MoreAvailableNoneShown: c.moreNoneShown,
		Page:                   c.state.Page,
		State:                  c.state,
		Generation:             c.generation,
		Err:                    c.err,
	}
}

// fetchResult は1回の取得（自動ページ送りを含む）の結果。
type fetchResult struct {
	state     filter.State // 最後に読んだページの条件
	items     []model.Article
	total     int
	hasNext   bool
	noneShown bool
}

// fetch は1ページ取得し、お気に入り絞り込み後に表示件数が0で続きがある場合は
// maxAutoAdvanceページまで先を読む。お気に入りが空なら結果は空と確定しているので先読みしない。
func (c *Controller) fetch(ctx context.Context, state filter.State) (fetchResult, error) {
	current := state
	for advanced := 0; ; advanced++ {
		page, err := c.fetcher.FetchArticles(ctx, current)
		if err != nil {
			return fetchResult{}, err
		}

		res := fetchResult{
			state:   current,
			items:   c.visible(current, page.Items),
			total:   page.TotalCount,
			hasNext: page.HasNext,
		}

		canAdvance := current.OnlyFavorites && c.favorites.Len() > 0
		if len(res.items) > 0 || !res.hasNext || !canAdvance {
			return res, nil
		}
		if advanced >= c.maxAutoAdvance {
			res.noneShown = true
			return res, nil
		}

		c.logger.Debug("お気に入り絞り込みで表示対象がないため次のページを読みます",
			slog.Int("page", current.Page),
		)
		current = current.WithPage(current.Page + 1)
	}
}

// visible はお気に入り絞り込みを適用する。
func (c *Controller) visible(state filter.State, items []model.Article) []model.Article {
	if !state.OnlyFavorites {
		return items
	}
	out := make([]model.Article, 0, len(items))
	for _, a := range items {
		if c.favorites.IsFavorite(a.ID) {
			out = append(out, a)
		}
	}
	return out
}

// commit は取得結果を反映する。世代が進んでいれば破棄する。
func (c *Controller) commit(gen uint64, res fetchResult, err error, appendMode bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.metrics.RecordStaleDiscard()
		c.logger.Debug("古い一覧レスポンスを破棄しました",
			slog.Uint64("generation", gen),
			slog.Uint64("current_generation", c.generation),
		)
		return nil
	}

	if err != nil {
		// 置き換えモードでは一覧はLoad開始時点で空になっている
		c.status = StatusError
		c.err = err
		return err
	}

	if appendMode {
		c.items = append(c.items, res.items...)
	} else {
		c.items = res.items
	}
	c.state = res.state
	c.totalCount = res.total
	c.hasMore = res.hasNext && len(res.items) > 0
	c.moreNoneShown = res.noneShown
	c.status = StatusSuccess
	c.err = nil
	return nil
}

package home

import (
	"strconv"

	"github.com/hitoshi/newsdeck/internal/articlelist"
	"github.com/hitoshi/newsdeck/internal/filter"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/notice"
	"github.com/hitoshi/newsdeck/internal/urlsync"
)

// Placeholder は取得できなかった補助情報の代わりに表示する文字列。
const Placeholder = "—"

// defaultTitle は条件がない場合のページタイトル。
const defaultTitle = "Все новости"

// View はホーム画面の読み取りモデル。
type View struct {
	Title                  string          `json:"title"`
	Query                  string          `json:"query"`
	Filters                FiltersView     `json:"filters"`
	Status                 string          `json:"status"`
	Articles               []ArticleView   `json:"articles"`
	TotalCount             int             `json:"total_count"`
	HasMore                bool            `json:"has_more"`
	MoreAvailableNoneShown bool            `json:"more_available_none_shown"`
	Page                   int             `json:"page"`
	Error                  *ErrorView      `json:"error,omitempty"`
	Stats                  StatsView       `json:"stats"`
	Sources                []model.Source  `json:"sources"`
	SourcesPlaceholder     string          `json:"sources_placeholder,omitempty"`
	Notices                []notice.Notice `json:"notices"`
	Authenticated          bool            `json:"authenticated"`
	FavoriteCount          int             `json:"favorite_count"`
}

// FiltersView は絞り込み条件のJSON表現。
type FiltersView struct {
	Search        string `json:"search"`
	Topic         string `json:"topic"`
	TopicLabel    string `json:"topic_label,omitempty"`
	SourceID      int    `json:"source,omitempty"`
	OnlyAnalyzed  bool   `json:"analyzed"`
	OnlyFavorites bool   `json:"favorites"`
	DateFrom      string `json:"date_from,omitempty"`
	DateTo        string `json:"date_to,omitempty"`
	Ordering      string `json:"ordering"`
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
}

// ArticleView は一覧の1件。注目フラグは楽観的な表示値で上書きされている。
type ArticleView struct {
	model.Article
	IsFavorite      bool   `json:"is_favorite"`
	FeaturedPending bool   `json:"featured_pending"`
	TopicLabel      string `json:"topic_label"`
	TopicColor      string `json:"topic_color"`
}

// StatsView は集計値の表示。取得できない項目はPlaceholder。
type StatsView struct {
	TotalArticles    string `json:"total_articles"`
	TotalSources     string `json:"total_sources"`
	FeaturedArticles string `json:"featured_articles"`
	AnalyzedArticles string `json:"analyzed_articles"`
	RecentArticles   string `json:"recent_articles"`
	Available        bool   `json:"available"`
}

// ErrorView は一覧取得エラーの表示。
type ErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// View は現在の状態から読み取りモデルを組み立てる。
func (w *Workspace) View() View {
	w.mu.RLock()
	state := w.state
	sources := append([]model.Source(nil), w.sources...)
	sourcesOK := w.sourcesOK
	direct := w.directStats
	snap := w.list.Snapshot()
	w.mu.RUnlock()

	v := View{
		Title:                  PageTitle(state),
		Query:                  urlsync.Encode(state),
		Filters:                filtersView(state),
		Status:                 string(snap.Status),
		Articles:               make([]ArticleView, 0, len(snap.Items)),
		TotalCount:             snap.TotalCount,
		HasMore:                snap.HasMore,
		MoreAvailableNoneShown: snap.MoreAvailableNoneShown,
		Page:                   snap.Page,
		Stats:                  w.statsView(direct),
		Sources:                sources,
		Notices:                w.notices.Active(),
		Authenticated:          w.tokens.Authenticated(),
		FavoriteCount:          w.favorites.Len(),
	}

	for _, a := range snap.Items {
		v.Articles = append(v.Articles, w.articleView(a))
	}

	if snap.Status == articlelist.StatusError && snap.Err != nil {
		_, apiErr := model.ClassifyError(snap.Err)
		v.Error = &ErrorView{Code: apiErr.Code, Message: apiErr.Message, Action: apiErr.Action}
	}

	if !sourcesOK {
		v.Sources = []model.Source{}
		v.SourcesPlaceholder = Placeholder
	}

	return v
}

// PageTitle はトピックまたは検索語からページタイトルを決める。
func PageTitle(state filter.State) string {
	if state.Topic != model.TopicAll {
		if label := state.Topic.Label(); label != "" {
			return label
		}
	}
	if state.Search != "" {
		return `Поиск: "` + state.Search + `"`
	}
	return defaultTitle
}

func (w *Workspace) articleView(a model.Article) ArticleView {
	if w.sanitizer != nil {
		a = w.sanitizer.SanitizeArticle(a)
	}
	a.IsFeatured = w.featured.IsFeatured(a.ID)
	return ArticleView{
		Article:         a,
		IsFavorite:      w.favorites.IsFavorite(a.ID),
		FeaturedPending: w.featured.InFlight(a.ID),
		TopicLabel:      a.Topic.Label(),
		TopicColor:      a.Topic.Color(),
	}
}

// statsView は共有スナップショットを優先し、なければ直接取得した値を使う。
func (w *Workspace) statsView(direct *model.AggregateStats) StatsView {
	var stats *model.AggregateStats
	if w.stats != nil {
		if s, _, ok := w.stats.Stats(); ok {
			stats = &s
		}
	}
	if stats == nil {
		stats = direct
	}
	if stats == nil {
		return StatsView{
			TotalArticles:    Placeholder,
			TotalSources:     Placeholder,
			FeaturedArticles: Placeholder,
			AnalyzedArticles: Placeholder,
			RecentArticles:   Placeholder,
		}
	}
	return StatsView{
		TotalArticles:    strconv.Itoa(stats.TotalArticles),
		TotalSources:     strconv.Itoa(stats.TotalSources),
		FeaturedArticles: strconv.Itoa(stats.FeaturedArticles),
		AnalyzedArticles: strconv.Itoa(stats.AnalyzedArticles),
		RecentArticles:   strconv.Itoa(stats.RecentArticlesCount),
		Available:        true,
	}
}

func filtersView(s filter.State) FiltersView {
	return FiltersView{
		Search:        s.Search,
		Topic:         string(s.Topic),
		TopicLabel:    s.Topic.Label(),
		SourceID:      s.SourceID,
		OnlyAnalyzed:  s.OnlyAnalyzed,
		OnlyFavorites: s.OnlyFavorites,
		DateFrom:      s.DateFrom.String(),
		DateTo:        s.DateTo.String(),
		Ordering:      string(s.Ordering),
		Page:          s.Page,
		PageSize:      s.PageSize,
	}
}

package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hitoshi/newsdeck/internal/filter"
	"github.com/hitoshi/newsdeck/internal/model"
)

const (
	pathArticles = "/api/articles/"
	pathSources  = "/api/sources/"
	pathStats    = "/api/stats/articles/"
)

// FetchArticles は絞り込み条件に一致する記事を1ページ分取得する。
// お気に入り絞り込みはサーバーには送らず、呼び出し側で後段フィルタする。
func (a *API) FetchArticles(ctx context.Context, state filter.State) (model.PagedResult[model.Article], error) {
	return getDecoded(ctx, a, request{
		endpoint:  "articles",
		method:    http.MethodGet,
		path:      pathArticles,
		query:     filter.APIParams(state),
		cacheable: true,
	}, decodePage[model.Article])
}

// FetchArticle は記事を1件取得する。
func (a *API) FetchArticle(ctx context.Context, id int) (model.Article, error) {
	return getDecoded(ctx, a, request{
		endpoint:  "article",
		method:    http.MethodGet,
		path:      articlePath(id),
		cacheable: true,
	}, decodeObject[model.Article])
}

// FetchSources はニュースソースの一覧を取得する。
func (a *API) FetchSources(ctx context.Context) ([]model.Source, error) {
	return getDecoded(ctx, a, request{
		endpoint:  "sources",
		method:    http.MethodGet,
		path:      pathSources,
		cacheable: true,
	}, decodeList[model.Source])
}

// FetchStats は集計値を取得する。
func (a *API) FetchStats(ctx context.Context) (model.AggregateStats, error) {
	return getDecoded(ctx, a, request{
		endpoint:  "stats",
		method:    http.MethodGet,
		path:      pathStats,
		cacheable: true,
	}, decodeObject[model.AggregateStats])
}

// ToggleFeatured は注目記事フラグを反転し、サーバー確定後の値を返す。
// 応答は記事全体と {message, is_featured} のどちらの形でも受け付ける。
// 成功時はキャッシュ済みの記事一覧を破棄する。
func (a *API) ToggleFeatured(ctx context.Context, id int) (model.FeaturedResult, error) {
	body, err := a.call(ctx, request{
		endpoint: "toggle_featured",
		method:   http.MethodPatch,
		path:     articlePath(id) + "toggle_featured/",
	})
	if err != nil {
		return model.FeaturedResult{}, err
	}

	var result struct {
		IsFeatured *bool `json:"is_featured"`
	}
	if err := decodeJSON(body, &result); err != nil {
		return model.FeaturedResult{}, err
	}
	if result.IsFeatured == nil {
		return model.FeaturedResult{}, fmt.Errorf("toggle_featured response for article %d has no is_featured", id)
	}

	a.client.InvalidateArticles()
	return model.FeaturedResult{IsFeatured: *result.IsFeatured}, nil
}

func articlePath(id int) string {
	return pathArticles + strconv.Itoa(id) + "/"
}

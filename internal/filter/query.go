package filter

import (
	"net/url"
	"strconv"

	"github.com/hitoshi/newsdeck/internal/model"
)

// URLクエリのキー。
const (
	keySearch    = "search"
	keyTopic     = "topic"
	keySource    = "source"
	keyAnalyzed  = "analyzed"
	keyDateFrom  = "date_from"
	keyDateTo    = "date_to"
	keyOrdering  = "ordering"
	keyFavorites = "favorites"
	keyPage      = "page"
	keyPageSize  = "page_size"
)

// ToQuery はStateをURLクエリに変換する。
// 既定値のフィールドは省略し、空の値を "key=" として書き出すことはない。
// url.Values.Encode はキーをソートするため、同じStateは同じクエリ文字列になる。
func ToQuery(s State) url.Values {
	s = s.normalize()
	q := url.Values{}

	if s.Search != "" {
		q.Set(keySearch, s.Search)
	}
	if s.Topic != model.TopicAll {
		q.Set(keyTopic, string(s.Topic))
	}
	if s.SourceID != 0 {
		q.Set(keySource, strconv.Itoa(s.SourceID))
	}
	if s.OnlyAnalyzed {
		q.Set(keyAnalyzed, "true")
	}
	if !s.DateFrom.IsZero() {
		q.Set(keyDateFrom, s.DateFrom.String())
	}
	if !s.DateTo.IsZero() {
		q.Set(keyDateTo, s.DateTo.String())
	}
	if s.Ordering != model.DefaultOrdering {
		q.Set(keyOrdering, string(s.Ordering))
	}
	if s.OnlyFavorites {
		q.Set(keyFavorites, "true")
	}
	if s.Page != 1 {
		q.Set(keyPage, strconv.Itoa(s.Page))
	}
	if s.PageSize != DefaultPageSize {
		q.Set(keyPageSize, strconv.Itoa(s.PageSize))
	}

	return q
}

// ParseQuery はURLクエリからStateを復元する。
// 存在しないキーは既定値（topic=""、ordering=published_at、page=1）になる。
// 解釈できない値も既定値として扱う。
func ParseQuery(q url.Values) State {
	s := Default()

	s.Search = q.Get(keySearch)

	if t, err := model.ParseTopic(q.Get(keyTopic)); err == nil {
		s.Topic = t
	}
	if v := q.Get(keySource); v != "" {
		s.SourceID = parsePositiveInt(v, 0)
	}
	s.OnlyAnalyzed = q.Get(keyAnalyzed) == "true"
	s.OnlyFavorites = q.Get(keyFavorites) == "true"

	if v := q.Get(keyDateFrom); v != "" {
		if d, err := ParseDate(v); err == nil {
			s.DateFrom = d
		}
	}
	if v := q.Get(keyDateTo); v != "" {
		if d, err := ParseDate(v); err == nil {
			s.DateTo = d
		}
	}
	if v := q.Get(keyOrdering); v != "" {
		if o, err := model.ParseOrdering(v); err == nil {
			s.Ordering = o
		}
	}
	if v := q.Get(keyPage); v != "" {
		s.Page = parsePositiveInt(v, 1)
	}
	if v := q.Get(keyPageSize); v != "" {
		s.PageSize = parsePositiveInt(v, DefaultPageSize)
	}

	return s
}

// APIParams はバックエンドの記事一覧APIに送るクエリを組み立てる。
// 空のフィールドは送らない。favoritesはクライアント側で絞り込むため送らない。
func APIParams(s State) url.Values {
	s = s.normalize()
	q := url.Values{}

	if s.Search != "" {
		q.Set("search", s.Search)
	}
	if s.Topic != model.TopicAll {
		q.Set("topic", string(s.Topic))
	}
	if s.SourceID != 0 {
		q.Set("source", strconv.Itoa(s.SourceID))
	}
	if s.OnlyAnalyzed {
		q.Set("is_analyzed", "true")
	}
	if !s.DateFrom.IsZero() {
		q.Set("published_at__gte", s.DateFrom.String())
	}
	if !s.DateTo.IsZero() {
		q.Set("published_at__lte", s.DateTo.String())
	}
	q.Set("ordering", s.Ordering.Descending())
	q.Set("page", strconv.Itoa(s.Page))
	q.Set("page_size", strconv.Itoa(s.PageSize))

	return q
}

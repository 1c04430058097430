package model

import (
	"fmt"
	"time"
)

// Ordering は記事一覧の並び順を表す。
// このシステムでは常に降順で適用する。
type Ordering string

const (
	OrderingPublishedAt Ordering = "published_at"
	OrderingCreatedAt   Ordering = "created_at"
	OrderingReadCount   Ordering = "read_count"
)

// DefaultOrdering は並び順未指定時の既定値。
const DefaultOrdering = OrderingPublishedAt

// ParseOrdering は文字列を並び順に変換する。
// 先頭の "-" は降順指定として許容する。
func ParseOrdering(s string) (Ordering, error) {
	if len(s) > 0 && s[0] == '-' {
		s = s[1:]
	}
	switch o := Ordering(s); o {
	case OrderingPublishedAt, OrderingCreatedAt, OrderingReadCount:
		return o, nil
	default:
		return "", fmt.Errorf("unknown ordering: %q", s)
	}
}

// Descending はバックエンドに送る降順指定を返す（例: "-published_at"）。
func (o Ordering) Descending() string {
	return "-" + string(o)
}

// SourceType はニュースソースの取り込み方式を表す。
type SourceType string

const (
	SourceTypeRSS  SourceType = "rss"
	SourceTypeHTML SourceType = "html"
	SourceTypeSPA  SourceType = "spa"
	SourceTypeAPI  SourceType = "api"
	SourceTypeTG   SourceType = "tg"
)

// Source はニュースの配信元。クライアントからは読み取り専用。
type Source struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	Type            SourceType `json:"type"`
	TypeDisplay     string     `json:"type_display,omitempty"`
	IsActive        bool       `json:"is_active"`
	Description     string     `json:"description,omitempty"`
	UpdateFrequency int        `json:"update_frequency,omitempty"`
	LastParsed      *time.Time `json:"last_parsed,omitempty"`
	ArticlesCount   int        `json:"articles_count"`
}

// Article はバックエンドが所有する記事。
// クライアントが変更するのはIsFeaturedの楽観的な表示のみ。
type Article struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Summary      string    `json:"summary"`
	ShortContent string    `json:"short_content"`
	URL          string    `json:"url"`
	PublishedAt  time.Time `json:"published_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Topic        Topic     `json:"topic"`
	Tags         []string  `json:"tags"`
	Locations    []string  `json:"locations"`
	IsAnalyzed   bool      `json:"is_analyzed"`
	IsFeatured   bool      `json:"is_featured"`
	IsActive     bool      `json:"is_active"`
	ReadCount    int       `json:"read_count"`
	Source       Source    `json:"source"`
}

// PagedResult は大きな結果集合の1ページ分。
// TotalCountは全ページを通したサーバー側の件数。
type PagedResult[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"total_count"`
	HasNext    bool `json:"has_next"`
}

// TagCount はタグごとの記事数。
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// LocationCount は地名ごとの記事数。
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// AggregateStats は表示専用の集計値。業務ロジックには使わない。
type AggregateStats struct {
	TotalArticles       int             `json:"total_articles"`
	TotalSources        int             `json:"total_sources"`
	FeaturedArticles    int             `json:"featured_articles"`
	AnalyzedArticles    int             `json:"analyzed_articles"`
	ArticlesByTopic     map[string]int  `json:"articles_by_topic"`
	ArticlesBySource    map[string]int  `json:"articles_by_source"`
	RecentArticlesCount int             `json:"recent_articles_count"`
	TopTags             []TagCount      `json:"top_tags"`
	TopLocations        []LocationCount `json:"top_locations"`
}

// FeaturedResult は注目記事トグルの確定結果。サーバーの値が正となる。
type FeaturedResult struct {
	IsFeatured bool `json:"is_featured"`
}

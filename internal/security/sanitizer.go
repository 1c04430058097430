// Package security はバックエンドから受け取った記事本文の無害化を提供する。
//
// 記事の本文・要約はバックエンドのパーサーが外部サイトから取り込んだHTMLで、
// そのままブラウザに渡すとスクリプトが実行されうる。
// bluemondayの許可リストポリシーで安全なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/newsdeck/internal/model"
)

// Sanitizer は記事のHTMLを無害化する。
type Sanitizer interface {
	// SanitizeArticle は本文と要約を許可リストで、タイトルはタグをすべて除去して返す。
	SanitizeArticle(article model.Article) model.Article
}

// ArticleSanitizer はSanitizerの実装。ポリシーはスレッドセーフに共有できる。
type ArticleSanitizer struct {
	body  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewArticleSanitizer はArticleSanitizerを生成する。
// 本文のポリシー:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img
//   - script, iframe, style および on* 属性は除去
//   - imgのsrcはhttpsのみ
//   - aタグには target="_blank" と rel="noopener noreferrer" を付与
func NewArticleSanitizer() *ArticleSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &ArticleSanitizer{
		body:  p,
		plain: bluemonday.StrictPolicy(),
	}
}

// Sanitize は本文ポリシーでHTMLを無害化する。
func (s *ArticleSanitizer) Sanitize(rawHTML string) string {
	return s.body.Sanitize(rawHTML)
}

// SanitizeArticle は記事の表示用テキストを無害化したコピーを返す。
func (s *ArticleSanitizer) SanitizeArticle(article model.Article) model.Article {
	article.Title = s.plain.Sanitize(article.Title)
	article.Content = s.body.Sanitize(article.Content)
	article.Summary = s.body.Sanitize(article.Summary)
	article.ShortContent = s.plain.Sanitize(article.ShortContent)
	return article
}

var _ Sanitizer = (*ArticleSanitizer)(nil)

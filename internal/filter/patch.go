package filter

import (
	"strconv"

	"github.com/hitoshi/newsdeck/internal/model"
)

// Patch はStateの部分更新。nilのフィールドは変更しない。
type Patch struct {
	Search        *string
	Topic         *model.Topic
	SourceID      *int
	OnlyAnalyzed  *bool
	OnlyFavorites *bool
	DateFrom      *Date
	DateTo        *Date
	Ordering      *model.Ordering
	Page          *int
}

// touchesFilters はページ以外のフィールドを含むかどうかを返す。
func (p Patch) touchesFilters() bool {
	return p.Search != nil || p.Topic != nil || p.SourceID != nil ||
		p.OnlyAnalyzed != nil || p.OnlyFavorites != nil ||
		p.DateFrom != nil || p.DateTo != nil || p.Ordering != nil
}

// IsEmpty は何も変更しないパッチかどうかを返す。
func (p Patch) IsEmpty() bool {
	return p.Page == nil && !p.touchesFilters()
}

// ApplyChange はcurrentにpatchを適用した新しいStateを返す純粋関数。
// ページ以外のフィールドを1つでも変更した場合、ページは1に戻る。
// ページのみの変更は他のフィールドを保持する。
func ApplyChange(current State, patch Patch) State {
	next := current

	if patch.Search != nil {
		next.Search = *patch.Search
	}
	if patch.Topic != nil {
		next.Topic = *patch.Topic
	}
	if patch.SourceID != nil {
		next.SourceID = *patch.SourceID
	}
	if patch.OnlyAnalyzed != nil {
		next.OnlyAnalyzed = *patch.OnlyAnalyzed
	}
	if patch.OnlyFavorites != nil {
		next.OnlyFavorites = *patch.OnlyFavorites
	}
	if patch.DateFrom != nil {
		next.DateFrom = *patch.DateFrom
	}
	if patch.DateTo != nil {
		next.DateTo = *patch.DateTo
	}
	if patch.Ordering != nil {
		next.Ordering = *patch.Ordering
	}

	switch {
	case patch.touchesFilters():
		next.Page = 1
	case patch.Page != nil:
		next.Page = *patch.Page
	}

	return next.normalize()
}

// PatchFromForm はフォーム入力（文字列）からPatchを組み立てる。
// キーはURLクエリと同じ名前を使う。存在するキーだけがパッチに含まれる。
// 空文字は「未指定」、解釈できない数値や日付も「未指定」として扱い、エラーにはしない。
func PatchFromForm(form map[string]string) Patch {
	var p Patch

	if v, ok := form[keySearch]; ok {
		p.Search = &v
	}
	if v, ok := form[keyTopic]; ok {
		t, err := model.ParseTopic(v)
		if err != nil {
			t = model.TopicAll
		}
		p.Topic = &t
	}
	if v, ok := form[keySource]; ok {
		id := parsePositiveInt(v, 0)
		p.SourceID = &id
	}
	if v, ok := form[keyAnalyzed]; ok {
		b := v == "true"
		p.OnlyAnalyzed = &b
	}
	if v, ok := form[keyFavorites]; ok {
		b := v == "true"
		p.OnlyFavorites = &b
	}
	if v, ok := form[keyDateFrom]; ok {
		d, _ := ParseDate(v)
		p.DateFrom = &d
	}
	if v, ok := form[keyDateTo]; ok {
		d, _ := ParseDate(v)
		p.DateTo = &d
	}
	if v, ok := form[keyOrdering]; ok {
		o, err := model.ParseOrdering(v)
		if err != nil {
			o = model.DefaultOrdering
		}
		p.Ordering = &o
	}
	if v, ok := form[keyPage]; ok {
		page := parsePositiveInt(v, 1)
		p.Page = &page
	}

	return p
}

// parsePositiveInt は正の整数を解釈する。それ以外はfallbackを返す。
func parsePositiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

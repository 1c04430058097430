// Package filter は記事一覧の絞り込み条件（FilterState）を扱う。
//
// Stateは不変の値オブジェクトで、変更のたびに丸ごと置き換える。
// URLクエリ文字列との相互変換はロスレスであり、
// ParseQuery(ToQuery(s)) は常に s と等しくなる。
package filter

import (
	"fmt"
	"time"

	"github.com/hitoshi/newsdeck/internal/model"
)

// DefaultPageSize は1ページあたりの記事数。
const DefaultPageSize = 12

// dateLayout は日付のクエリ表現。
const dateLayout = "2006-01-02"

// Date は時刻を持たない暦日。ゼロ値は未指定を表す。
// ==で比較できるようtime.Timeではなく年月日で保持する。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate は "2006-01-02" 形式の文字列をDateに変換する。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// IsZero は未指定かどうかを返す。
func (d Date) IsZero() bool {
	return d == Date{}
}

// String は "2006-01-02" 形式を返す。未指定の場合は空文字。
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// State は「どの記事を表示したいか」の唯一の情報源。
// SourceIDの0とDateのゼロ値は未指定を表す。
type State struct {
	Search        string
	Topic         model.Topic
	SourceID      int
	OnlyAnalyzed  bool
	OnlyFavorites bool
	DateFrom      Date
	DateTo        Date
	Ordering      model.Ordering
	Page          int
	PageSize      int
}

// Default は初期状態のStateを返す。
func Default() State {
	return State{
		Topic:    model.TopicAll,
		Ordering: model.DefaultOrdering,
		Page:     1,
		PageSize: DefaultPageSize,
	}
}

// Equal は構造的な等価性を判定する。
func (s State) Equal(other State) bool {
	return s == other
}

// IsFiltered はいずれかの絞り込み条件が指定されているかを返す。
// 並び順とページは含めない。
func (s State) IsFiltered() bool {
	return s.Search != "" || s.Topic != model.TopicAll || s.SourceID != 0 ||
		s.OnlyAnalyzed || s.OnlyFavorites || !s.DateFrom.IsZero() || !s.DateTo.IsZero()
}

// WithPage はページだけを差し替えたStateを返す。
func (s State) WithPage(page int) State {
	return ApplyChange(s, Patch{Page: &page})
}

// normalize は範囲外の値を既定値に寄せる。
func (s State) normalize() State {
	if s.Page < 1 {
		s.Page = 1
	}
	if s.PageSize < 1 {
		s.PageSize = DefaultPageSize
	}
	if s.Ordering == "" {
		s.Ordering = model.DefaultOrdering
	}
	if s.SourceID < 0 {
		s.SourceID = 0
	}
	return s
}

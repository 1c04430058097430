// Package urlsync はFilterStateとページのURLクエリを同期する。
//
// Stateの変更はデバウンスしてから履歴に反映するため、
// 1文字入力するごとに履歴エントリが積まれることはない。
package urlsync

import (
	"net/url"
	"sync"
	"time"

	"github.com/hitoshi/newsdeck/internal/filter"
)

// History はURLクエリの書き込み先。
// Replaceはロック保持中に呼ばれるため、Synchronizerを呼び返してはならない。
type History interface {
	Replace(query string)
}

// Synchronizer はStateの変更をデバウンスしてHistoryに反映する。
type Synchronizer struct {
	history History
	delay   time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	pending    string
	hasPending bool
	committed  string
}

// New はSynchronizerを生成する。delayが0以下の場合は即時に反映する。
// initialには初期表示時のクエリを渡す（同じクエリの再書き込みを避けるため）。
func New(history History, delay time.Duration, initial filter.State) *Synchronizer {
	return &Synchronizer{
		history:   history,
		delay:     delay,
		committed: Encode(initial),
	}
}

// Encode はStateの正規化されたクエリ文字列を返す。
func Encode(s filter.State) string {
	return filter.ToQuery(s).Encode()
}

// Parse は初期表示時にURLクエリ文字列からStateを復元する。
// 先頭の "?" は無視する。
func Parse(rawQuery string) (filter.State, error) {
	if len(rawQuery) > 0 && rawQuery[0] == '?' {
		rawQuery = rawQuery[1:]
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return filter.Default(), err
	}
	return filter.ParseQuery(q), nil
}

// Push はStateをURLに反映するよう予約する。
// デバウンス期間内の連続したPushは最後の1件だけが反映される。
func (s *Synchronizer) Push(state filter.State) {
	q := Encode(state)

	s.mu.Lock()
	defer s.mu.Unlock()

	if q == s.committed {
		// 反映済みのクエリに戻った場合は保留中の変更を取り消す
		s.cancelLocked()
		return
	}

	s.pending = q
	s.hasPending = true

	if s.delay <= 0 {
		s.commitLocked()
		return
	}

	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.Flush)
	} else {
		s.timer.Reset(s.delay)
	}
}

// Flush は保留中の変更を即座に反映する。
func (s *Synchronizer) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked()
}

// Stop は保留中の変更を破棄してタイマーを止める。
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Reset はブラウザ側のナビゲーションで既にURLが変わった場合に呼ぶ。
// 保留中の変更を破棄し、履歴には書き込まずに反映済みのクエリを置き換える。
func (s *Synchronizer) Reset(state filter.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.committed = Encode(state)
}

// Current は反映済みまたは保留中の最新クエリを返す。
func (s *Synchronizer) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasPending {
		return s.pending
	}
	return s.committed
}

// Committed は履歴に反映済みのクエリを返す。
func (s *Synchronizer) Committed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

func (s *Synchronizer) commitLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.hasPending {
		return
	}
	s.hasPending = false
	if s.pending == s.committed {
		return
	}
	s.committed = s.pending
	s.history.Replace(s.committed)
}

func (s *Synchronizer) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.hasPending = false
	s.pending = ""
}

// Package featured は注目記事フラグの楽観的トグルを扱う。
//
// トグルは表示値を即座に反転してからサーバーを呼び出し、
// 失敗した場合は元の値に戻して通知を出す。同じ記事への同時トグルは拒否する。
package featured

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/notice"
)

// ErrToggleInFlight は同じ記事のトグルがまだ完了していないことを表す。
var ErrToggleInFlight = errors.New("featured toggle already in flight")

// Toggler はサーバー側で注目フラグを反転する。
type Toggler interface {
	ToggleFeatured(ctx context.Context, id int) (model.FeaturedResult, error)
}

// Notifier は一時通知の出力先。
type Notifier interface {
	Push(level notice.Level, message string) string
}

// Store は記事ごとの表示上の注目フラグと実行中ロックを保持する。
type Store struct {
	mu       sync.Mutex
	values   map[int]bool
	inFlight map[int]struct{}

	toggler  Toggler
	notifier Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewStore はStoreを生成する。
func NewStore(toggler Toggler, notifier Notifier, rec metrics.Recorder, logger *slog.Logger) *Store {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Store{
		values:   make(map[int]bool),
		inFlight: make(map[int]struct{}),
		toggler:  toggler,
		notifier: notifier,
		metrics:  rec,
		logger:   logger,
	}
}

// Seed は新たに表示する記事のサーバー値を記録する。
// トグル実行中の記事は楽観値を保つため上書きしない。
func (s *Store) Seed(articles []model.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range articles {
		if _, busy := s.inFlight[a.ID]; busy {
			continue
		}
		s.values[a.ID] = a.IsFeatured
	}
}

// IsFeatured は表示上の注目フラグを返す。
func (s *Store) IsFeatured(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[id]
}

// InFlight はidのトグルが実行中かどうかを返す。
func (s *Store) InFlight(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

// Toggle はidの注目フラグを楽観的に反転し、確定値を返す。
// 失敗時は反転前の値に戻してエラーを返す。他の記事の値には触れない。
func (s *Store) Toggle(ctx context.Context, id int) (bool, error) {
	// 1. ロック取得と楽観的な反転
	s.mu.Lock()
	if _, busy := s.inFlight[id]; busy {
		current := s.values[id]
		s.mu.Unlock()
		return current, ErrToggleInFlight
	}
	prev := s.values[id]
	s.inFlight[id] = struct{}{}
	s.values[id] = !prev
	s.mu.Unlock()

	// 2. サーバー呼び出し
	result, err := s.toggler.ToggleFeatured(ctx, id)

	// 3. 確定またはロールバック
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)

	if err != nil {
		s.values[id] = prev
		s.metrics.RecordRollback("featured")
		s.notifier.Push(notice.LevelError, "注目記事の更新に失敗しました。もう一度お試しください。")
		s.logger.Warn("注目記事のトグルに失敗したため元に戻しました",
			slog.Int("article_id", id),
			slog.String("error", err.Error()),
		)
		return prev, err
	}

	s.values[id] = result.IsFeatured
	return result.IsFeatured, nil
}

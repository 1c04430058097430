// Package favorite はクライアントローカルのお気に入り集合を管理する。
// サーバー側のお気に入り記事（model.FavoriteArticle）とは別物で、通信は行わない。
package favorite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hitoshi/newsdeck/internal/storage"
)

// Set は記事IDの集合。変更のたびに集合全体をストレージへ同期的に書き込む。
type Set struct {
	mu      sync.RWMutex
	ids     map[int]struct{}
	storage storage.Storage
	logger  *slog.Logger
}

// Load はストレージから集合を復元する。
// 保存値が壊れている場合は警告を出して空集合から始める。
func Load(ctx context.Context, store storage.Storage, logger *slog.Logger) (*Set, error) {
	s := &Set{
		ids:     make(map[int]struct{}),
		storage: store,
		logger:  logger,
	}

	raw, found, err := store.Get(ctx, storage.KeyFavorites)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	if !found || raw == "" {
		return s, nil
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		logger.Warn("保存されたお気に入りを読み込めないため空にします",
			slog.String("error", err.Error()),
		)
		return s, nil
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s, nil
}

// Toggle はidの所属を反転し、反転後にお気に入りかどうかを返す。
// 書き込みに失敗した場合は反転を取り消してエラーを返す。
func (s *Set) Toggle(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, was := s.ids[id]
	if was {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}

	if err := s.persistLocked(ctx); err != nil {
		if was {
			s.ids[id] = struct{}{}
		} else {
			delete(s.ids, id)
		}
		return was, err
	}
	return !was, nil
}

// Clear は集合を空にして保存する。
func (s *Set) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ids
	s.ids = make(map[int]struct{})
	if err := s.persistLocked(ctx); err != nil {
		s.ids = prev
		return err
	}
	return nil
}

// IsFavorite はidがお気に入りかどうかを返す。
func (s *Set) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Len はお気に入りの件数を返す。
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs は昇順に並べたIDのコピーを返す。
func (s *Set) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

func (s *Set) sortedLocked() []int {
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Set) persistLocked(ctx context.Context) error {
	b, err := json.Marshal(s.sortedLocked())
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := s.storage.Set(ctx, storage.KeyFavorites, string(b)); err != nil {
		return fmt.Errorf("failed to persist favorites: %w", err)
	}
	return nil
}

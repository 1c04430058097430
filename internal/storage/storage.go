// Package storage はクライアント単位の永続キー・バリューストアを提供する。
// ブラウザのlocalStorageに相当し、お気に入り集合と認証トークンの保存に使う。
package storage

import (
	"context"

	"github.com/hitoshi/newsdeck/internal/repository"
)

// 永続化キー。
const (
	KeyFavorites = "favorites"
	KeyAuthToken = "auth_token"
)

// Storage は1クライアント分の永続ストア。
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ClientStorage はリポジトリを1つのクライアントIDに束縛したStorage実装。
type ClientStorage struct {
	repo     repository.ClientStorageRepository
	clientID string
}

// NewClientStorage はClientStorageを生成する。
func NewClientStorage(repo repository.ClientStorageRepository, clientID string) *ClientStorage {
	return &ClientStorage{repo: repo, clientID: clientID}
}

// Get はキーの値を取得する。
func (s *ClientStorage) Get(ctx context.Context, key string) (string, bool, error) {
	return s.repo.Get(ctx, s.clientID, key)
}

// Set はキーに値を書き込む。
func (s *ClientStorage) Set(ctx context.Context, key, value string) error {
	return s.repo.Put(ctx, s.clientID, key, value)
}

// Remove はキーを削除する。
func (s *ClientStorage) Remove(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, s.clientID, key)
}

// compile-time interface check
var _ Storage = (*ClientStorage)(nil)

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/newsdeck/internal/storage"
)

// invalidateTimeout はセッション無効化時にストレージから削除する際の上限時間。
const invalidateTimeout = 5 * time.Second

// TokenManager は1クライアント分の認証トークンを保持する。
// トークンはクライアントストレージのauth_tokenキーに永続化する。
type TokenManager struct {
	// writeMu はストレージとメモリ上のトークンの更新を直列化する
	writeMu sync.Mutex

	mu        sync.RWMutex
	token     string
	storage   storage.Storage
	logger    *slog.Logger
	observers []func()
}

// NewTokenManager はストレージから保存済みのトークンを読み込んでTokenManagerを生成する。
func NewTokenManager(ctx context.Context, store storage.Storage, logger *slog.Logger) (*TokenManager, error) {
	token, _, err := store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth token: %w", err)
	}
	return &TokenManager{
		token:   token,
		storage: store,
		logger:  logger,
	}, nil
}

// Token は現在のトークンを返す。未ログインの場合は空文字。
func (m *TokenManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Authenticated はトークンを保持しているかどうかを返す。
func (m *TokenManager) Authenticated() bool {
	return m.Token() != ""
}

// Set はトークンを保存する。
func (m *TokenManager) Set(ctx context.Context, token string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.storage.Set(ctx, storage.KeyAuthToken, token); err != nil {
		return fmt.Errorf("failed to store auth token: %w", err)
	}
	m.setToken(token)
	return nil
}

// Clear はトークンを破棄する。メモリ上のトークンはストレージの結果によらず消す。
func (m *TokenManager) Clear(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.clearLocked(ctx)
}

func (m *TokenManager) clearLocked(ctx context.Context) error {
	m.setToken("")
	if err := m.storage.Remove(ctx, storage.KeyAuthToken); err != nil {
		return fmt.Errorf("failed to remove auth token: %w", err)
	}
	return nil
}

func (m *TokenManager) setToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

// OnInvalidate はセッション無効化時に呼ばれる関数を登録する。
func (m *TokenManager) OnInvalidate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Invalidate は現在のトークンを破棄し、登録された関数に通知する。ログアウトから呼ばれる。
func (m *TokenManager) Invalidate() {
	m.writeMu.Lock()
	m.clearWithTimeout()
	m.writeMu.Unlock()

	m.notify()
}

// InvalidateToken はusedが現在のトークンと一致する場合だけInvalidateと同じ処理を行う。
// バックエンドの401応答から呼ばれる。古いトークンで送ったリクエストの401で、
// その後にログインし直したセッションを消さないようにする。
func (m *TokenManager) InvalidateToken(used string) bool {
	m.writeMu.Lock()
	if used == "" || m.Token() != used {
		m.writeMu.Unlock()
		m.logger.Debug("古いトークンへの401のためセッションは維持します")
		return false
	}
	m.clearWithTimeout()
	m.writeMu.Unlock()

	m.notify()
	return true
}

func (m *TokenManager) clearWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	if err := m.clearLocked(ctx); err != nil {
		m.logger.Warn("認証トークンの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

func (m *TokenManager) notify() {
	m.mu.RLock()
	observers := make([]func(), len(m.observers))
	copy(observers, m.observers)
	m.mu.RUnlock()

	for _, fn := range observers {
		fn()
	}
}

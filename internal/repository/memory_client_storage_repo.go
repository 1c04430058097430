package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	updatedAt time.Time
}

// MemoryClientStorageRepo はメモリ上のクライアントストレージ。
// DATABASE_URL未設定時の開発用とテストで使う。プロセス終了で内容は失われる。
type MemoryClientStorageRepo struct {
	mu      sync.RWMutex
	entries map[string]map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryClientStorageRepo はMemoryClientStorageRepoを生成する。
func NewMemoryClientStorageRepo() *MemoryClientStorageRepo {
	return &MemoryClientStorageRepo{
		entries: make(map[string]map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get は指定クライアントのキーの値を取得する。
func (r *MemoryClientStorageRepo) Get(_ context.Context, clientID, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[clientID][key]
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Put は値を書き込む。
func (r *MemoryClientStorageRepo) Put(_ context.Context, clientID, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.entries[clientID]
	if !ok {
		m = make(map[string]memoryEntry)
		r.entries[clientID] = m
	}
	m[key] = memoryEntry{value: value, updatedAt: r.now()}
	return nil
}

// Delete はキーを削除する。
func (r *MemoryClientStorageRepo) Delete(_ context.Context, clientID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.entries[clientID]; ok {
		delete(m, key)
		if len(m) == 0 {
			delete(r.entries, clientID)
		}
	}
	return nil
}

// DeleteUpdatedBefore は指定時刻より前に更新されたエントリを削除する。
func (r *MemoryClientStorageRepo) DeleteUpdatedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for clientID, m := range r.entries {
		for key, e := range m {
			if e.updatedAt.Before(before) {
				delete(m, key)
				n++
			}
		}
		if len(m) == 0 {
			delete(r.entries, clientID)
		}
	}
	return n, nil
}

// compile-time interface check
var _ ClientStorageRepository = (*MemoryClientStorageRepo)(nil)

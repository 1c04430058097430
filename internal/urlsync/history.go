package urlsync

import "sync"

// defaultMaxEntries は保持する履歴エントリの上限。
const defaultMaxEntries = 50

// MemoryHistory はクライアントごとのURL履歴をメモリ上に保持する。
// 古いエントリから捨てる。
type MemoryHistory struct {
	mu         sync.RWMutex
	entries    []string
	maxEntries int
}

// NewMemoryHistory はMemoryHistoryを生成する。maxEntriesが0以下の場合は50件。
func NewMemoryHistory(maxEntries int) *MemoryHistory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryHistory{maxEntries: maxEntries}
}

// Replace はクエリを履歴の末尾に記録する。
func (h *MemoryHistory) Replace(query string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, query)
	if over := len(h.entries) - h.maxEntries; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
}

// Current は最新のクエリを返す。履歴が空の場合はok=false。
func (h *MemoryHistory) Current() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return "", false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries は履歴のコピーを古い順に返す。
func (h *MemoryHistory) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len は履歴の件数を返す。
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

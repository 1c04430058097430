// Package notice は一定時間で自動的に消える一時通知を管理する。
package notice

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL は通知の表示期間。
const DefaultTTL = 5 * time.Second

// Level は通知の重要度。
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice は1件の通知。
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Queue は通知の一覧。期限切れの通知は参照時に取り除く。
type Queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	notices map[string]Notice
	now     func() time.Time
}

// NewQueue はQueueを生成する。ttlが0以下の場合はDefaultTTLを使う。
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:     ttl,
		notices: make(map[string]Notice),
		now:     time.Now,
	}
}

// Push は通知を追加してIDを返す。
func (q *Queue) Push(level Level, message string) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	n := Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(q.ttl),
	}
	q.notices[n.ID] = n
	return n.ID
}

// Active は期限内の通知を古い順に返す。
func (q *Queue) Active() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	active := make([]Notice, 0, len(q.notices))
	for id, n := range q.notices {
		if !now.Before(n.ExpiresAt) {
			delete(q.notices, id)
			continue
		}
		active = append(active, n)
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active
}

// Dismiss は通知を消す。存在した場合はtrueを返す。
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.notices[id]; !ok {
		return false
	}
	delete(q.notices, id)
	return true
}

package notice

import (
	"testing"
	"time"
)

func TestQueue_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q := NewQueue(5 * time.Second)
	q.now = func() time.Time { return now }

	q.Push(LevelError, "更新に失敗しました")

	now = now.Add(4 * time.Second)
	if got := q.Active(); len(got) != 1 {
		t.Fatalf("期限内の通知数 = %d, want 1", len(got))
	}

	now = now.Add(time.Second)
	if got := q.Active(); len(got) != 0 {
		t.Errorf("期限切れの通知が残っている: %+v", got)
	}
}

func TestQueue_ActiveIsOrderedByCreation(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q := NewQueue(0)
	q.now = func() time.Time { return now }

	q.Push(LevelInfo, "first")
	now = now.Add(time.Millisecond)
	q.Push(LevelInfo, "second")

	got := q.Active()
	if len(got) != 2 || got[0].Message != "first" || got[1].Message != "second" {
		t.Errorf("Active() = %+v", got)
	}
}

func TestQueue_Dismiss(t *testing.T) {
	q := NewQueue(time.Minute)
	id := q.Push(LevelInfo, "x")

	if !q.Dismiss(id) {
		t.Error("Dismiss が false を返した")
	}
	if q.Dismiss(id) {
		t.Error("2回目の Dismiss が true を返した")
	}
	if len(q.Active()) != 0 {
		t.Error("Dismiss後も通知が残っている")
	}
}

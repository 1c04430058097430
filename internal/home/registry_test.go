package home

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/repository"
	"github.com/hitoshi/newsdeck/internal/storage"
)

// gaugeRecorder はアクティブ数のみを記録する。
type gaugeRecorder struct {
	metrics.Nop
	active int
}

func (g *gaugeRecorder) SetActiveWorkspaces(n int) {
	g.active = n
}

func TestRegistry_ReturnsSameWorkspacePerClient(t *testing.T) {
	rec := &gaugeRecorder{}
	deps := newTestDeps(t, &fakeBackend{})
	deps.Metrics = rec
	r := NewRegistry(repository.NewMemoryClientStorageRepo(), deps, Options{}, time.Minute)
	ctx := context.Background()

	a1, err := r.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}
	a2, _ := r.Get(ctx, "a")
	b, _ := r.Get(ctx, "b")

	if a1 != a2 {
		t.Error("同じクライアントに別のWorkspaceが返った")
	}
	if a1 == b {
		t.Error("別のクライアントに同じWorkspaceが返った")
	}
	if rec.active != 2 {
		t.Errorf("active = %d, want 2", rec.active)
	}
}

func TestRegistry_RestoresFavoritesAndTokenFromStorage(t *testing.T) {
	repo := repository.NewMemoryClientStorageRepo()
	ctx := context.Background()
	store := storage.NewClientStorage(repo, "a")
	store.Set(ctx, storage.KeyFavorites, "[4,8]")
	store.Set(ctx, storage.KeyAuthToken, "tok")

	r := NewRegistry(repo, newTestDeps(t, &fakeBackend{}), Options{}, time.Minute)
	ws, err := r.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}

	v := ws.View()
	if v.FavoriteCount != 2 {
		t.Errorf("FavoriteCount = %d, want 2", v.FavoriteCount)
	}
	if !v.Authenticated {
		t.Error("保存済みトークンが復元されていない")
	}
}

func TestRegistry_EvictsIdleWorkspaces(t *testing.T) {
	r := NewRegistry(repository.NewMemoryClientStorageRepo(), newTestDeps(t, &fakeBackend{}), Options{}, time.Minute)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	r.Get(ctx, "old")

	r.now = func() time.Time { return base.Add(50 * time.Second) }
	r.Get(ctx, "new")

	r.now = func() time.Time { return base.Add(90 * time.Second) }
	if n := r.Evict(); n != 1 {
		t.Errorf("破棄数 = %d, want 1", n)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_EvictionFlushesPendingURL(t *testing.T) {
	r := NewRegistry(repository.NewMemoryClientStorageRepo(), newTestDeps(t, &fakeBackend{total: 1}), Options{SyncDelay: time.Hour}, time.Minute)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	ws, _ := r.Get(ctx, "a")
	ws.Search(ctx, "x")

	if len(ws.History()) != 0 {
		t.Fatal("デバウンス中に履歴が積まれた")
	}

	r.now = func() time.Time { return base.Add(time.Hour) }
	r.Evict()

	if h := ws.History(); len(h) != 1 || h[0] != "search=x" {
		t.Errorf("History = %v, want [search=x]", h)
	}
}

func TestRegistry_StartEvictionStopsOnCancel(t *testing.T) {
	r := NewRegistry(repository.NewMemoryClientStorageRepo(), newTestDeps(t, &fakeBackend{}), Options{}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.StartEviction(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("キャンセル後も停止しない")
	}
}

// 上限を超えると最も長くアクセスのないWorkspaceを閉じ、他は保持する。
func TestRegistry_CapEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(repository.NewMemoryClientStorageRepo(), newTestDeps(t, &fakeBackend{total: 1}), Options{SyncDelay: time.Hour, MaxWorkspaces: 2}, time.Hour)
	ctx := context.Background()

	a, _ := r.Get(ctx, "a")
	b, _ := r.Get(ctx, "b")
	b.Search(ctx, "x")
	// aに触れてbを最古にする
	r.Get(ctx, "a")

	if _, err := r.Get(ctx, "c"); err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if h := b.History(); len(h) != 1 || h[0] != "search=x" {
		t.Errorf("破棄されたWorkspaceの保留URLが反映されていない: %v", h)
	}
	if got, _ := r.Get(ctx, "a"); got != a {
		t.Error("最近使ったWorkspaceが破棄された")
	}
}

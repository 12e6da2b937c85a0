package channels

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hartleigh/tivod/internal/infrastructure/config"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
)

type fakeRegional struct {
	entries []RegionalChannel
	err     error
	calls   atomic.Int32
	gate    chan struct{}
}

func (f *fakeRegional) FetchRegional(_ context.Context, _ string) ([]RegionalChannel, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.entries, f.err
}

type fakePlatform struct {
	entries []PlatformChannel
	err     error
	calls   atomic.Int32
}

func (f *fakePlatform) FetchPlatform(_ context.Context) ([]PlatformChannel, error) {
	f.calls.Add(1)
	return f.entries, f.err
}

type memCache struct {
	mu      sync.Mutex
	store   map[string][]byte
	written map[string]time.Time
}

func newMemCache() *memCache {
	return &memCache{store: make(map[string][]byte), written: make(map[string]time.Time)}
}

func (c *memCache) Get(_ context.Context, tier, scope string, ttl time.Duration) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := tier + "/" + scope
	payload, ok := c.store[key]
	if !ok {
		return nil, false, nil
	}
	if time.Since(c.written[key]) >= ttl {
		delete(c.store, key)
		return nil, false, nil
	}
	return payload, true, nil
}

func (c *memCache) Put(_ context.Context, tier, scope string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := tier + "/" + scope
	c.store[key] = payload
	c.written[key] = time.Now()
	return nil
}

func (c *memCache) Delete(_ context.Context, tier, scope string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, tier+"/"+scope)
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

func newTestService(t *testing.T, reg *fakeRegional, plat *fakePlatform, cache Cache) *Service {
	t.Helper()
	return newTestServiceTTL(t, reg, plat, cache, time.Hour)
}

func newTestServiceTTL(t *testing.T, reg *fakeRegional, plat *fakePlatform, cache Cache, ttl time.Duration) *Service {
	t.Helper()
	return NewService(reg, plat, cache, "Eng-Lon", ttl, false, testLogger())
}

func TestServiceDirectoryFetchesOnceWhileFresh(t *testing.T) {
	reg := &fakeRegional{entries: testRegional()}
	plat := &fakePlatform{entries: testPlatform()}
	svc := newTestService(t, reg, plat, newMemCache())

	ctx := context.Background()
	dir, err := svc.Directory(ctx)
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if len(dir.Entries) == 0 {
		t.Fatal("empty directory")
	}

	// Reads within the TTL are served from the snapshot, no further
	// fetching.
	if _, err := svc.Directory(ctx); err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if got := reg.calls.Load(); got != 1 {
		t.Errorf("regional fetch calls = %d, want 1", got)
	}
	if got := plat.calls.Load(); got != 1 {
		t.Errorf("platform fetch calls = %d, want 1", got)
	}
}

func TestServiceDirectoryRefreshesWhenStale(t *testing.T) {
	reg := &fakeRegional{entries: testRegional()}
	plat := &fakePlatform{entries: testPlatform()}
	svc := newTestServiceTTL(t, reg, plat, newMemCache(), 10*time.Millisecond)

	ctx := context.Background()
	if _, err := svc.Directory(ctx); err != nil {
		t.Fatalf("Directory() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	// The snapshot has outlived the tier TTL; the next read re-runs
	// fetch+merge rather than serving it forever.
	if _, err := svc.Directory(ctx); err != nil {
		t.Fatalf("Directory() after TTL error = %v", err)
	}
	if got := reg.calls.Load(); got != 2 {
		t.Errorf("regional fetch calls after TTL expiry = %d, want 2", got)
	}
	if got := plat.calls.Load(); got != 2 {
		t.Errorf("platform fetch calls after TTL expiry = %d, want 2", got)
	}
}

func TestServiceDirectoryStaleSurvivesFailedRefresh(t *testing.T) {
	reg := &fakeRegional{entries: testRegional()}
	plat := &fakePlatform{entries: testPlatform()}
	svc := newTestServiceTTL(t, reg, plat, newMemCache(), 10*time.Millisecond)

	ctx := context.Background()
	first, err := svc.Directory(ctx)
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}

	reg.entries, reg.err = nil, errors.New("scrape failed")
	plat.entries, plat.err = nil, errors.New("api failed")
	time.Sleep(30 * time.Millisecond)

	dir, err := svc.Directory(ctx)
	if err != nil {
		t.Fatalf("Directory() with dark sources error = %v", err)
	}
	if len(dir.Entries) != len(first.Entries) {
		t.Errorf("got %d entries, want the stale directory's %d", len(dir.Entries), len(first.Entries))
	}
}

func TestServiceDirectoryUsesPersistedCache(t *testing.T) {
	cache := newMemCache()
	ctx := context.Background()

	want, err := Merge("Eng-Lon", testRegional(), testPlatform(), false)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	payload, _ := json.Marshal(want)
	if err := cache.Put(ctx, TierChannels, "Eng-Lon", payload); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reg := &fakeRegional{err: errors.New("network down")}
	plat := &fakePlatform{err: errors.New("network down")}
	svc := newTestService(t, reg, plat, cache)

	dir, err := svc.Directory(ctx)
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if len(dir.Entries) != len(want.Entries) {
		t.Errorf("got %d entries, want %d", len(dir.Entries), len(want.Entries))
	}
	if reg.calls.Load() != 0 {
		t.Error("fetcher called despite warm cache")
	}
}

func TestServiceCorruptCacheIsMiss(t *testing.T) {
	cache := newMemCache()
	ctx := context.Background()
	if err := cache.Put(ctx, TierChannels, "Eng-Lon", []byte("{not json")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reg := &fakeRegional{entries: testRegional()}
	plat := &fakePlatform{entries: testPlatform()}
	svc := newTestService(t, reg, plat, cache)

	dir, err := svc.Directory(ctx)
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if len(dir.Entries) == 0 {
		t.Fatal("empty directory after corrupt cache entry")
	}
	if reg.calls.Load() != 1 {
		t.Error("corrupt cache entry should fall through to a fetch")
	}
}

func TestServiceRefreshNoDataKeepsPrevious(t *testing.T) {
	reg := &fakeRegional{entries: testRegional()}
	plat := &fakePlatform{entries: testPlatform()}
	svc := newTestService(t, reg, plat, newMemCache())

	ctx := context.Background()
	if _, err := svc.Directory(ctx); err != nil {
		t.Fatalf("Directory() error = %v", err)
	}

	// Both sources go dark; the refresh fails but the previous
	// directory stays authoritative.
	reg.entries, reg.err = nil, errors.New("scrape failed")
	plat.entries, plat.err = nil, errors.New("api failed")

	if _, err := svc.Refresh(ctx); !errors.Is(err, ErrNoData) {
		t.Fatalf("Refresh() error = %v, want ErrNoData", err)
	}

	dir, err := svc.Directory(ctx)
	if err != nil {
		t.Fatalf("Directory() after failed refresh error = %v", err)
	}
	if len(dir.Entries) == 0 {
		t.Error("previous directory was lost after failed refresh")
	}
}

func TestServiceRefreshCoalesces(t *testing.T) {
	reg := &fakeRegional{entries: testRegional(), gate: make(chan struct{})}
	plat := &fakePlatform{entries: testPlatform()}
	svc := newTestService(t, reg, plat, newMemCache())

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx); err != nil {
				t.Errorf("Refresh() error = %v", err)
			}
		}()
	}

	// Both callers are queued on the in-flight refresh before the
	// gated fetch is allowed to complete.
	time.Sleep(50 * time.Millisecond)
	close(reg.gate)
	wg.Wait()

	if got := reg.calls.Load(); got != 1 {
		t.Errorf("regional fetch calls = %d, want 1", got)
	}
	if got := plat.calls.Load(); got != 1 {
		t.Errorf("platform fetch calls = %d, want 1", got)
	}
}

func TestServiceInvalidate(t *testing.T) {
	cache := newMemCache()
	reg := &fakeRegional{entries: testRegional()}
	plat := &fakePlatform{entries: testPlatform()}
	svc := newTestService(t, reg, plat, cache)

	ctx := context.Background()
	if _, err := svc.Directory(ctx); err != nil {
		t.Fatalf("Directory() error = %v", err)
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok, _ := cache.Get(ctx, TierChannels, "Eng-Lon", time.Hour); ok {
		t.Error("cache entry survived Invalidate")
	}

	// Next read re-fetches.
	if _, err := svc.Directory(ctx); err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if got := reg.calls.Load(); got != 2 {
		t.Errorf("regional fetch calls = %d, want 2", got)
	}
}

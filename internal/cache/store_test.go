package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hartleigh/tivod/internal/infrastructure/config"
	"github.com/hartleigh/tivod/internal/infrastructure/database"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"

	_ "github.com/hartleigh/tivod/migrations" // register embedded schema
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "cache_test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
	return NewStore(db, logger)
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, TierChannels, "Eng-Lon", []byte(`{"entries":[]}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	payload, ok, err := s.Get(ctx, TierChannels, "Eng-Lon", time.Hour)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() miss for freshly written entry")
	}
	if string(payload) != `{"entries":[]}` {
		t.Errorf("payload = %q", payload)
	}

	// Unknown scope misses without error.
	if _, ok, err := s.Get(ctx, TierChannels, "Wales", time.Hour); err != nil || ok {
		t.Errorf("Get() for unknown scope = %v, %v; want miss", ok, err)
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }

	if err := s.Put(ctx, TierAuth, "user@example.com", []byte("token")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Just before the TTL boundary the entry is live.
	s.now = func() time.Time { return base.Add(time.Hour - time.Second) }
	if _, ok, _ := s.Get(ctx, TierAuth, "user@example.com", time.Hour); !ok {
		t.Error("entry expired before its TTL")
	}

	// Exactly at the boundary it is gone and purged.
	s.now = func() time.Time { return base.Add(time.Hour) }
	if _, ok, _ := s.Get(ctx, TierAuth, "user@example.com", time.Hour); ok {
		t.Error("entry still live at TTL boundary")
	}

	// The purge is durable, not just filtered.
	s.now = func() time.Time { return base }
	if _, ok, _ := s.Get(ctx, TierAuth, "user@example.com", time.Hour); ok {
		t.Error("expired entry was not purged on access")
	}
}

func TestStorePutReplacesAndRestartsAge(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	if err := s.Put(ctx, TierListings, "station-1", []byte("old")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	if err := s.Put(ctx, TierListings, "station-1", []byte("new")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// 50 minutes after the first write, 20 after the second: still live.
	s.now = func() time.Time { return base.Add(50 * time.Minute) }
	payload, ok, err := s.Get(ctx, TierListings, "station-1", 45*time.Minute)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want hit", ok, err)
	}
	if string(payload) != "new" {
		t.Errorf("payload = %q, want %q", payload, "new")
	}
}

func TestStoreTierIsolation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seed := map[string]string{
		TierAuth:     "user@example.com",
		TierChannels: "Eng-Lon",
		TierListings: "station-1",
	}
	for tier, scope := range seed {
		if err := s.Put(ctx, tier, scope, []byte("payload")); err != nil {
			t.Fatalf("Put(%s) error = %v", tier, err)
		}
	}

	if err := s.InvalidateTier(ctx, TierAuth); err != nil {
		t.Fatalf("InvalidateTier() error = %v", err)
	}

	if _, ok, _ := s.Get(ctx, TierAuth, seed[TierAuth], time.Hour); ok {
		t.Error("auth tier survived invalidation")
	}
	if _, ok, _ := s.Get(ctx, TierChannels, seed[TierChannels], time.Hour); !ok {
		t.Error("channels tier was removed by auth invalidation")
	}
	if _, ok, _ := s.Get(ctx, TierListings, seed[TierListings], time.Hour); !ok {
		t.Error("listings tier was removed by auth invalidation")
	}
}

func TestStoreInvalidateUnknownTier(t *testing.T) {
	s := testStore(t)
	if err := s.InvalidateTier(context.Background(), "sessions"); !errors.Is(err, ErrUnknownTier) {
		t.Errorf("InvalidateTier(sessions) error = %v, want ErrUnknownTier", err)
	}
}

func TestStoreCorruptTimestampIsMiss(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO cache_entries (tier, scope, payload, fetched_at) VALUES (?, ?, ?, ?)",
		TierChannels, "Eng-Lon", []byte("payload"), "not-a-timestamp",
	); err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}

	if _, ok, err := s.Get(ctx, TierChannels, "Eng-Lon", time.Hour); err != nil || ok {
		t.Errorf("Get() with corrupt timestamp = %v, %v; want clean miss", ok, err)
	}
}

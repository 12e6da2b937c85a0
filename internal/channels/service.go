package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hartleigh/tivod/internal/infrastructure/logging"
)

// RegionalFetcher retrieves the scraped regional listing table.
type RegionalFetcher interface {
	FetchRegional(ctx context.Context, region string) ([]RegionalChannel, error)
}

// PlatformFetcher retrieves the account's platform channel listing.
type PlatformFetcher interface {
	FetchPlatform(ctx context.Context) ([]PlatformChannel, error)
}

// Cache is the persistence collaborator for the channels tier.
// Implementations evaluate the TTL lazily on Get.
type Cache interface {
	Get(ctx context.Context, tier, scope string, ttl time.Duration) ([]byte, bool, error)
	Put(ctx context.Context, tier, scope string, payload []byte) error
	Delete(ctx context.Context, tier, scope string) error
}

// TierChannels is the cache tier holding merged directories.
const TierChannels = "channels"

// Service owns the channel directory for one account/region scope.
//
// Reads are served from an in-memory snapshot that is replaced wholesale
// on refresh, so readers in flight always see a complete directory.
// Concurrent refresh triggers for the same scope coalesce into a single
// upstream fetch pair.
type Service struct {
	regional RegionalFetcher
	platform PlatformFetcher
	cache    Cache

	region          string
	ttl             time.Duration
	dropListingOnly bool
	logger          *logging.Logger

	group singleflight.Group

	mu       sync.RWMutex
	current  *Directory
	loadedAt time.Time
}

// NewService creates a directory service for one region scope.
func NewService(regional RegionalFetcher, platform PlatformFetcher, cache Cache, region string, ttl time.Duration, dropListingOnly bool, logger *logging.Logger) *Service {
	return &Service{
		regional:        regional,
		platform:        platform,
		cache:           cache,
		region:          region,
		ttl:             ttl,
		dropListingOnly: dropListingOnly,
		logger:          logger.With("component", "channels", "region", region),
	}
}

// Region returns the scope this service serves.
func (s *Service) Region() string {
	return s.region
}

// Directory returns the current channel directory. Staleness is
// evaluated lazily on every read: the in-memory snapshot is served while
// younger than the tier TTL, then the persistent cache is consulted, then
// fetch+merge runs. A refresh failure falls back to the stale snapshot
// when one exists.
func (s *Service) Directory(ctx context.Context) (*Directory, error) {
	s.mu.RLock()
	cur := s.current
	loaded := s.loadedAt
	s.mu.RUnlock()
	if cur != nil && (s.ttl <= 0 || time.Since(loaded) < s.ttl) {
		return cur, nil
	}

	if payload, ok, err := s.cache.Get(ctx, TierChannels, s.region, s.ttl); err != nil {
		s.logger.Warn("channels cache read failed", "error", err)
	} else if ok {
		var dir Directory
		if err := json.Unmarshal(payload, &dir); err != nil {
			// Corrupt record behaves as a miss.
			s.logger.Warn("discarding corrupt channels cache entry", "error", err)
		} else {
			s.mu.Lock()
			s.current = &dir
			s.loadedAt = time.Now()
			s.mu.Unlock()
			return &dir, nil
		}
	}

	dir, err := s.Refresh(ctx)
	if err != nil {
		if cur != nil {
			// The stale snapshot stays authoritative until a
			// rebuild succeeds.
			s.logger.Warn("refresh failed, serving previous directory", "error", err)
			return cur, nil
		}
		return nil, err
	}
	return dir, nil
}

// Refresh bypasses the cache TTL and re-runs fetch+merge for this scope
// immediately. Concurrent calls coalesce into one in-flight refresh and
// all receive its result.
//
// A source that fails contributes an empty table and a warning; the
// merge fails with ErrNoData only when both sources are empty, in which
// case the previous directory (if any) remains authoritative.
func (s *Service) Refresh(ctx context.Context) (*Directory, error) {
	v, err, _ := s.group.Do(s.region, func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	dir, ok := v.(*Directory)
	if !ok {
		return nil, fmt.Errorf("channels: unexpected refresh result %T", v)
	}
	return dir, nil
}

func (s *Service) refresh(ctx context.Context) (*Directory, error) {
	regional, err := s.regional.FetchRegional(ctx, s.region)
	if err != nil {
		s.logger.Warn("regional listing fetch failed", "error", err)
		regional = nil
	}

	platform, err := s.platform.FetchPlatform(ctx)
	if err != nil {
		s.logger.Warn("platform listing fetch failed", "error", err)
		platform = nil
	}

	dir, err := Merge(s.region, regional, platform, s.dropListingOnly)
	if err != nil {
		// The previous snapshot and cache entry stay authoritative.
		s.logger.Warn("refresh produced no data, keeping previous directory", "error", err)
		return nil, err
	}

	if dir.Conflicts > 0 {
		s.logger.Warn("duplicate channels dropped during merge", "conflicts", dir.Conflicts)
	}

	payload, err := json.Marshal(dir)
	if err != nil {
		return nil, fmt.Errorf("encoding directory: %w", err)
	}
	if err := s.cache.Put(ctx, TierChannels, s.region, payload); err != nil {
		s.logger.Warn("channels cache write failed", "error", err)
	}

	s.mu.Lock()
	s.current = dir
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("channel directory refreshed",
		"entries", len(dir.Entries), "conflicts", dir.Conflicts)
	return dir, nil
}

// Invalidate drops both the persisted and in-memory directory for this
// scope. The next Directory call triggers a fresh fetch+merge. Other
// cache tiers are untouched.
func (s *Service) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return s.cache.Delete(ctx, TierChannels, s.region)
}

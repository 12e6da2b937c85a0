package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hartleigh/tivod/internal/infrastructure/database"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
)

// Cache tiers. Each tier expires and invalidates independently.
const (
	// TierAuth holds platform login sessions, scoped by account username.
	TierAuth = "auth"

	// TierChannels holds merged channel directories, scoped by region.
	TierChannels = "channels"

	// TierListings holds programme listings, scoped by station identifier.
	TierListings = "listings"
)

// ErrUnknownTier is returned when a tier name is not recognised.
var ErrUnknownTier = errors.New("cache: unknown tier")

var knownTiers = map[string]bool{
	TierAuth:     true,
	TierChannels: true,
	TierListings: true,
}

// ValidTier reports whether name is a recognised cache tier.
func ValidTier(name string) bool {
	return knownTiers[name]
}

// Store persists tiered cache entries in SQLite.
//
// Writers fully replace a (tier, scope) record in one statement, so a
// concurrent reader sees either the old record or the new one, never a
// partial write. Clearing a shared tier affects every device that reads
// it; that cross-device effect is the point of the shared scope.
type Store struct {
	db     *database.DB
	logger *logging.Logger
	now    func() time.Time
}

// NewStore creates a cache store backed by the given database.
func NewStore(db *database.DB, logger *logging.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With("component", "cache"),
		now:    time.Now,
	}
}

// Get returns the payload for (tier, scope) if one exists and is younger
// than ttl. Expired records are purged on access; a record with an
// unreadable timestamp is treated the same way. There is no background
// sweeper.
func (s *Store) Get(ctx context.Context, tier, scope string, ttl time.Duration) ([]byte, bool, error) {
	var payload []byte
	var fetchedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, fetched_at FROM cache_entries WHERE tier = ? AND scope = ?",
		tier, scope,
	).Scan(&payload, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	at, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		s.logger.Warn("purging cache entry with unreadable timestamp",
			"tier", tier, "scope", scope)
		return nil, false, s.Delete(ctx, tier, scope)
	}

	if s.now().Sub(at) >= ttl {
		s.logger.Debug("purging expired cache entry",
			"tier", tier, "scope", scope, "age", s.now().Sub(at))
		return nil, false, s.Delete(ctx, tier, scope)
	}

	return payload, true, nil
}

// Put stores the payload for (tier, scope), replacing any existing
// record atomically. The record's age restarts from now.
func (s *Store) Put(ctx context.Context, tier, scope string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (tier, scope, payload, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(tier, scope) DO UPDATE SET
		     payload = excluded.payload,
		     fetched_at = excluded.fetched_at`,
		tier, scope, payload, s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Delete removes the record for (tier, scope). Missing records are not
// an error.
func (s *Store) Delete(ctx context.Context, tier, scope string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE tier = ? AND scope = ?", tier, scope,
	); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// InvalidateTier removes every record in one tier, leaving the other
// tiers untouched.
func (s *Store) InvalidateTier(ctx context.Context, tier string) error {
	if !ValidTier(tier) {
		return fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE tier = ?", tier,
	)
	if err != nil {
		return fmt.Errorf("invalidating cache tier: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("cache tier invalidated", "tier", tier, "entries", n)
	}
	return nil
}

package guide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hartleigh/tivod/internal/channels"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
)

// Cache tiers used by the guide service.
const (
	// TierAuth holds sessions, scoped by account username.
	TierAuth = "auth"

	// TierListings holds programme schedules, scoped by station ID.
	// Listings are shared across devices tuned to the same station.
	TierListings = "listings"
)

// Cache is the persistence collaborator for sessions and listings.
type Cache interface {
	Get(ctx context.Context, tier, scope string, ttl time.Duration) ([]byte, bool, error)
	Put(ctx context.Context, tier, scope string, payload []byte) error
	Delete(ctx context.Context, tier, scope string) error
}

// Service wraps the API client with session lifetime management.
//
// Sessions live in the auth cache tier, scoped by username, so every
// device configured against the same account reuses one login. When
// the platform rejects a cached session the service performs one full
// re-login and retries the fetch once; a second rejection propagates.
type Service struct {
	client   *Client
	cache    Cache
	username string
	password string

	authTTL     time.Duration
	listingsTTL time.Duration
	logger      *logging.Logger

	// Serializes logins so concurrent fetches cannot stampede the
	// login flow.
	loginMu sync.Mutex
}

// NewService creates a session-managing guide service.
func NewService(client *Client, cache Cache, username, password string, authTTL, listingsTTL time.Duration, logger *logging.Logger) *Service {
	return &Service{
		client:      client,
		cache:       cache,
		username:    username,
		password:    password,
		authTTL:     authTTL,
		listingsTTL: listingsTTL,
		logger:      logger.With("component", "guide"),
	}
}

// FetchPlatform implements the platform side of the directory merge.
func (s *Service) FetchPlatform(ctx context.Context) ([]channels.PlatformChannel, error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.client.Channels(ctx, session)
	if !errors.Is(err, ErrUnauthorized) {
		return list, err
	}

	// The cached session expired. One full re-login, one retry.
	s.logger.Info("cached session rejected, logging in again")
	session, err = s.relogin(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.Channels(ctx, session)
}

// Listings returns the programme schedule for a station, served from
// the listings cache tier when fresh.
func (s *Service) Listings(ctx context.Context, stationID string, start time.Time, duration time.Duration) ([]Program, error) {
	if payload, ok, err := s.cache.Get(ctx, TierListings, stationID, s.listingsTTL); err != nil {
		s.logger.Warn("listings cache read failed", "error", err)
	} else if ok {
		var programs []Program
		if err := json.Unmarshal(payload, &programs); err == nil {
			// A cached schedule may have been fetched hours ago and no
			// longer reach far enough ahead; fall through when it has
			// run out.
			if _, live := Current(programs, start); live {
				return programs, nil
			}
		} else {
			s.logger.Warn("discarding corrupt listings cache entry", "station", stationID)
		}
	}

	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	programs, err := s.client.Listings(ctx, session, stationID, start, duration)
	if errors.Is(err, ErrUnauthorized) {
		if session, err = s.relogin(ctx); err != nil {
			return nil, err
		}
		programs, err = s.client.Listings(ctx, session, stationID, start, duration)
	}
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(programs); err == nil {
		if err := s.cache.Put(ctx, TierListings, stationID, payload); err != nil {
			s.logger.Warn("listings cache write failed", "error", err)
		}
	}
	return programs, nil
}

// session returns a cached session or performs a fresh login.
func (s *Service) session(ctx context.Context) (*Session, error) {
	if payload, ok, err := s.cache.Get(ctx, TierAuth, s.username, s.authTTL); err != nil {
		s.logger.Warn("auth cache read failed", "error", err)
	} else if ok {
		var session Session
		if err := json.Unmarshal(payload, &session); err == nil && session.Valid() {
			return &session, nil
		}
		s.logger.Warn("discarding corrupt auth cache entry")
	}
	return s.relogin(ctx)
}

// relogin performs a full login and replaces the cached session.
func (s *Service) relogin(ctx context.Context) (*Session, error) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	session, err := s.client.Login(ctx, s.username, s.password)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := s.cache.Put(ctx, TierAuth, s.username, payload); err != nil {
		s.logger.Warn("auth cache write failed", "error", err)
	}
	return session, nil
}

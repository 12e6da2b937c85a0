package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hartleigh/tivod/internal/cache"
)

// handleInvalidateCache clears one persisted cache tier. Clearing the
// channels tier also drops the in-memory directory so the next read
// rebuilds from upstream.
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "cache not configured")
		return
	}

	tier := chi.URLParam(r, "tier")
	if err := s.cache.InvalidateTier(r.Context(), tier); err != nil {
		if errors.Is(err, cache.ErrUnknownTier) {
			writeBadRequest(w, "unknown cache tier: "+tier)
			return
		}
		s.logger.Error("cache invalidation failed", "tier", tier, "error", err)
		writeInternalError(w, "cache invalidation failed")
		return
	}

	if tier == cache.TierChannels && s.channels != nil {
		if err := s.channels.Invalidate(r.Context()); err != nil {
			s.logger.Warn("directory invalidation failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tier":   tier,
	})
}

package api

import (
	"errors"
	"net/http"

	"github.com/hartleigh/tivod/internal/channels"
)

// handleListChannels returns the merged channel directory.
func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	if s.channels == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "channel directory not configured")
		return
	}
	dir, err := s.channels.Directory(r.Context())
	if err != nil {
		s.writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"region":    dir.Region,
		"channels":  dir.Entries,
		"count":     len(dir.Entries),
		"conflicts": dir.Conflicts,
	})
}

// handleRefreshChannels forces a rebuild of the channel directory from
// the upstream sources.
func (s *Server) handleRefreshChannels(w http.ResponseWriter, r *http.Request) {
	if s.channels == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "channel directory not configured")
		return
	}
	dir, err := s.channels.Refresh(r.Context())
	if err != nil {
		s.writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"region":    dir.Region,
		"count":     len(dir.Entries),
		"conflicts": dir.Conflicts,
	})
}

// writeDirectoryError maps directory build failures to HTTP responses.
func (s *Server) writeDirectoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, channels.ErrNoData) {
		writeError(w, http.StatusBadGateway, ErrCodeDeviceUnreachable, "no channel source produced data")
		return
	}
	s.logger.Error("channel directory build failed", "error", err)
	writeInternalError(w, "channel directory unavailable")
}

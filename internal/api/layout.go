package api

import (
	"errors"
	"net/http"

	"goveeremote/internal/discovery"
	"goveeremote/internal/pages"
)

// handleGetLayout returns the full synthesized layout: pages, command
// bindings, and physical button mappings.
func (s *Server) handleGetLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentLayout())
}

// handleGetPages returns just the UI pages, as the remote renders them.
func (s *Server) handleGetPages(w http.ResponseWriter, _ *http.Request) {
	layout := s.currentLayout()
	writeJSON(w, http.StatusOK, map[string]any{
		"pages": layout.Pages,
		"count": len(layout.Pages),
	})
}

// handleSetupVerify checks the configured API key against the cloud and
// reports the account's device count. An invalid key is a 401 so setup
// UIs can distinguish it from a transient cloud problem.
func (s *Server) handleSetupVerify(w http.ResponseWriter, r *http.Request) {
	if s.discovery == nil {
		writeUpstreamError(w, "discovery not configured")
		return
	}

	count, err := s.discovery.Verify(r.Context())
	switch {
	case errors.Is(err, discovery.ErrKeyInvalid):
		writeUnauthorized(w, "the Govee API key was rejected by the cloud")
		return
	case errors.Is(err, discovery.ErrNoDevices):
		writeJSON(w, http.StatusOK, map[string]any{"verified": true, "devices": 0})
		return
	case err != nil:
		s.logger.Warn("setup verification failed", "error", err)
		writeUpstreamError(w, "verification failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"verified": true, "devices": count})
}

// handleDiscoveryRefresh re-discovers devices from the Govee cloud,
// refreshes their states, and regenerates the layout.
func (s *Server) handleDiscoveryRefresh(w http.ResponseWriter, r *http.Request) {
	if s.discovery == nil {
		writeUpstreamError(w, "discovery not configured")
		return
	}

	ctx := r.Context()
	count, err := s.discovery.Discover(ctx)
	if err != nil {
		s.logger.Warn("discovery refresh failed", "error", err)
		writeUpstreamError(w, "device discovery failed: "+err.Error())
		return
	}

	// State sync failures degrade to stale cached state; the refreshed
	// device list is still worth a new layout.
	if err := s.discovery.SyncStates(ctx); err != nil {
		s.logger.Warn("state sync failed during refresh", "error", err)
	}

	layout := pages.Synthesize(s.registry.Snapshot(), s.pageOpts)
	s.UpdateLayout(layout)

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": count,
		"pages":   len(layout.Pages),
	})
}

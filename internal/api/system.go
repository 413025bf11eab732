package api

import (
	"net/http"
	"time"
)

// handleStatus returns a runtime snapshot: registry statistics, layout
// size, connected WebSocket clients, and uptime.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	layout := s.currentLayout()

	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"devices":        s.registry.GetStats(),
		"layout": map[string]any{
			"pages":    len(layout.Pages),
			"commands": len(layout.Bindings),
		},
		"websocket_clients": clients,
	})
}

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"goveeremote/internal/dispatch"
	"goveeremote/internal/pages"
)

// handleCommand dispatches a command ID from the synthesized layout.
// The response body is the per-device outcome regardless of status;
// partial failures are a 200 so the remote can inspect the results.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	commandID := chi.URLParam(r, "id")

	outcome := s.dispatcher.Dispatch(r.Context(), commandID)
	writeOutcome(w, outcome)
}

// handleButton dispatches a physical button press (POWER, VOLUME_UP,
// VOLUME_DOWN) through its layout mapping.
func (s *Server) handleButton(w http.ResponseWriter, r *http.Request) {
	button := pages.PhysicalButton(chi.URLParam(r, "button"))

	outcome := s.dispatcher.DispatchButton(r.Context(), button)
	writeOutcome(w, outcome)
}

// writeOutcome maps a dispatch outcome to an HTTP response.
func writeOutcome(w http.ResponseWriter, outcome dispatch.Outcome) {
	switch {
	case outcome.Status == dispatch.StatusUnknown:
		msg := "unknown command"
		if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		if errors.Is(outcome.Err, dispatch.ErrNoLayout) {
			writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, msg)
			return
		}
		writeNotFound(w, msg)
	case outcome.Status == dispatch.StatusFailed:
		writeJSON(w, http.StatusBadGateway, outcome)
	default:
		writeJSON(w, http.StatusOK, outcome)
	}
}

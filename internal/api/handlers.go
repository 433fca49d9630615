package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/goodtune/sitewarden/internal/storage"
	"github.com/goodtune/sitewarden/internal/window"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleQuery answers a blocked-state query for one hostname. The query
// path never fails: storage trouble degrades to an unrestricted answer
// inside the engine.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		writeError(w, http.StatusBadRequest, "host parameter is required")
		return
	}

	state := s.policy.Query(r.Context(), host)
	writeJSON(w, http.StatusOK, state)
}

// focusRequest is the focus-change ingress payload. An empty or absent
// domain reports focus loss.
type focusRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	var req focusRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	s.tracker.ReportFocusChange(r.Context(), req.Domain, s.clock.Now())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active_domain": s.tracker.ActiveDomain(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings().Get(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load settings")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings storage.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.store.Settings().Set(r.Context(), settings); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save settings")
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	// Re-read so the response carries the bumped revision.
	saved, err := s.store.Settings().Get(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to reload settings")
		writeError(w, http.StatusInternalServerError, "Failed to reload settings")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleGetUsage returns the live usage view: expired windows read as
// zero without being rewritten in the store.
func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.store.Settings().Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load settings")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve usage")
		return
	}

	usage, err := s.store.Usage().Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load usage")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve usage")
		return
	}

	live := window.ForSettings(settings).LiveView(usage, s.clock.Now())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"usage": live,
		"count": len(live),
	})
}

func (s *Server) handleResetUsage(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.Usage().Reset(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to reset usage")
		writeError(w, http.StatusInternalServerError, "Failed to reset usage")
		return
	}

	s.logger.Info().Int("deleted", deleted).Msg("Usage reset")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
	})
}

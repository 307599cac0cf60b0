package worker

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/supportlens/supportlens/internal/grounding"
	"github.com/supportlens/supportlens/internal/llm"
	"github.com/supportlens/supportlens/internal/query"
	"github.com/supportlens/supportlens/internal/snapshot"
	"github.com/supportlens/supportlens/pkg/models"
)

// queryRequest is the body shared by the interpret and ask endpoints.
type queryRequest struct {
	Query string `json:"query"`
}

// askResponse carries a grounded answer plus the interpretation that
// routed it.
type askResponse struct {
	Answer         string                       `json:"answer"`
	Interpretation *models.InterpretationResult `json:"interpretation"`
}

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON error response")
	}
}

// decodeQuery parses and validates the request body. A false return means
// the response has already been written.
func decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	if err := query.ValidateQuery(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return req.Query, true
}

// handleHealth reports liveness plus basic state for probes.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":          "ok",
		"version":         s.version,
		"uptime_seconds":  int64(time.Since(s.startTime).Seconds()),
		"snapshot_loaded": s.snapshots.Current() != nil,
		"tiers":           s.store.Tiers(),
	})
}

// handleInterpret resolves a raw query to a structured interpretation.
func (s *Service) handleInterpret(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.interpreter.Interpret(r.Context(), q))
}

// handleAsk answers a question grounded on the serialized snapshot. The
// interpretation is returned alongside so clients can show routing info.
func (s *Service) handleAsk(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	result := s.interpreter.Interpret(r.Context(), q)

	built, err := s.builder.Context(r.Context())
	if err != nil {
		if errors.Is(err, grounding.ErrNoSnapshot) {
			writeError(w, http.StatusServiceUnavailable, "dataset not loaded yet")
			return
		}
		writeError(w, http.StatusInternalServerError, "context build failed")
		return
	}

	answer, err := s.llmClient.AnswerQuestion(r.Context(), q, built.SummaryText+"\n"+built.StatsSummary)
	if err != nil {
		var modelErr *llm.ModelError
		if errors.As(err, &modelErr) && modelErr.RateLimited() {
			writeError(w, http.StatusTooManyRequests, "model rate limited, try again shortly")
			return
		}
		log.Warn().Err(err).Msg("Grounded answer failed")
		writeError(w, http.StatusBadGateway, "model unavailable")
		return
	}

	writeJSON(w, askResponse{Answer: answer, Interpretation: result})
}

// handleContextStatus exposes the context cache introspection view.
func (s *Service) handleContextStatus(w http.ResponseWriter, r *http.Request) {
	status := s.builder.Status()
	writeJSON(w, map[string]interface{}{
		"context":               status,
		"snapshot_last_updated": s.snapshots.LastUpdated(),
	})
}

// handleContextRefresh is the administrative "refresh now" command: it
// busts the context cache unconditionally and re-fetches the snapshot when
// a vendor endpoint is configured.
func (s *Service) handleContextRefresh(w http.ResponseWriter, r *http.Request) {
	s.builder.Invalidate()

	refreshed := false
	snap, err := s.snapshots.Refresh(r.Context())
	switch {
	case err == nil:
		refreshed = true
	case errors.Is(err, snapshot.ErrNoFetcher):
		// Cache busted; nothing to fetch.
	default:
		log.Warn().Err(err).Msg("Manual snapshot refresh failed")
		writeError(w, http.StatusBadGateway, "snapshot refresh failed")
		return
	}

	resp := map[string]interface{}{
		"invalidated": true,
		"refreshed":   refreshed,
	}
	if snap != nil {
		resp["items"] = len(snap.Items)
		resp["last_updated"] = snap.LastUpdated
	}
	writeJSON(w, resp)
}

// handleStats reports interpretation counters and cache state.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"interpreter":    s.interpreter.Stats(),
		"cached_queries": s.interpreter.CacheLen(),
		"context":        s.builder.Status(),
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"version":        s.version,
	})
}

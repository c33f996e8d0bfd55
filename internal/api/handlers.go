// Package api provides HTTP handlers for the sales agent endpoints.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
	"github.com/Kushal-Kongara/hackerday-sf/internal/orchestrator"
	"github.com/Kushal-Kongara/hackerday-sf/internal/outcome"
)

// webhookPayload tolerates the shapes call providers actually deliver: the
// event type under "type" or "event", the call id at the top level or inside
// the data object under "id" or "callId".
type webhookPayload struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	CallID string `json:"callId"`
	Data   struct {
		ID         string            `json:"id"`
		CallID     string            `json:"callId"`
		Transcript string            `json:"transcript"`
		Messages   []outcome.Message `json:"messages"`
		Summary    string            `json:"summary"`
	} `json:"data"`
}

// event normalizes the payload into the aggregator's shape.
func (p webhookPayload) event() outcome.Event {
	eventType := p.Type
	if eventType == "" {
		eventType = p.Event
	}
	callID := p.Data.ID
	if callID == "" {
		callID = p.Data.CallID
	}
	if callID == "" {
		callID = p.CallID
	}
	return outcome.Event{
		Type:       eventType,
		CallID:     callID,
		Transcript: p.Data.Transcript,
		Messages:   p.Data.Messages,
		Summary:    p.Data.Summary,
	}
}

// eventsHandler receives provider webhook events (POST /events). Providers
// deliver at least once and retry on non-2xx, so the receiver acknowledges
// everything it can decode, including events for unknown calls.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.eventsHandler: processing webhook event", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.eventsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.eventsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	event := payload.event()
	verdict := s.orch.Tracker().Apply(event)
	if verdict != nil {
		slog.Info("Server.eventsHandler: call completed",
			"call_id", verdict.CallID, "success", verdict.Success)
	}

	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// callsHandler triggers one pipeline run (POST /calls).
func (s *Server) callsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.callsHandler: processing call request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.callsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req orchestrator.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.callsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.UserID == "" || req.PhoneNumber == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required fields: user_id, phone_number"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultRequestTimeout)
	defer cancel()

	result, err := s.orch.ProcessSalesCall(ctx, req.UserID, req.PhoneNumber)
	if err != nil {
		slog.Error("Server.callsHandler: pipeline run failed", "user_id", req.UserID, "error", err.Error())
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(err.Error()))
		return
	}

	slog.Info("Server.callsHandler: call initiated", "user_id", req.UserID, "call_id", result.CallID)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// batchHandler triggers a batch of pipeline runs (POST /calls/batch).
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.batchHandler: processing batch request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.batchHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var requests []orchestrator.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&requests); err != nil {
		slog.Warn("Server.batchHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if len(requests) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Batch must contain at least one request"))
		return
	}

	batch := s.orch.ProcessBatch(r.Context(), requests)
	writeJSONResponse(w, http.StatusOK, models.Success(batch))
}

// statusHandler reports the orchestrator snapshot (GET /status).
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.statusHandler: processing status request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.statusHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.orch.SystemStatus()))
}

// healthHandler provides a health check endpoint for monitoring and load balancing.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"tracked_calls": s.orch.Tracker().TrackedCalls(),
	})
}

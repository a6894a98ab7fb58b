//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/catenadev/catena-rag-server/internal/engine"
)

// Request validation bounds, counted in characters, not bytes.
const (
	maxQuestionLength       = 5000
	maxHistoryContentLength = 10000
)

// HealthResponse is the response for the health check endpoint. The
// collection fields are populated once the vector index is ready.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Description    string `json:"description,omitempty"`
	Collection     string `json:"collection,omitempty"`
	Passages       int64  `json:"passages,omitempty"`
	Model          string `json:"model,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles the GET /v1/health endpoint. It always answers 200;
// readiness gating applies to /v1/ask, not here.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "loading",
		Version: s.version,
	}

	if s.engines.Ready() {
		stats := s.engines.Stats(r.Context())
		resp.Status = "ok"
		resp.Description = s.engines.Description()
		resp.Collection = s.engines.CollectionName()
		resp.Passages = stats.Passages
		resp.Model = s.engines.RAGModel()
		resp.EmbeddingModel = s.engines.EmbeddingModel()
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// handleAsk handles the POST /v1/ask endpoint.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !s.engines.Ready() {
		s.respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
			"the document index is still loading, try again shortly")
		return
	}

	var req engine.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"invalid request body: "+err.Error())
		return
	}

	if code, msg := s.validateAskRequest(&req); code != "" {
		s.respondError(w, http.StatusBadRequest, code, msg)
		return
	}

	if req.Stream {
		s.handleStreamingAsk(w, r, req)
		return
	}

	resp, err := s.engines.Engine().Ask(r.Context(), req)
	if err != nil {
		// Ask already logs the internal detail; only the generic
		// message goes to the client.
		s.respondError(w, http.StatusInternalServerError, "EXECUTION_ERROR",
			engine.GenericErrorMessage)
		return
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// validateAskRequest normalizes and bounds-checks an ask request in place.
// Returns an empty code when the request is acceptable.
func (s *Server) validateAskRequest(req *engine.AskRequest) (code, message string) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return "INVALID_REQUEST", "question is required"
	}
	if utf8.RuneCountInString(req.Question) > maxQuestionLength {
		return "INVALID_REQUEST", "question is too long"
	}

	for _, msg := range req.History {
		if msg.Role != engine.RoleUser && msg.Role != engine.RoleAssistant {
			return "INVALID_REQUEST", "history roles must be 'user' or 'assistant'"
		}
		if utf8.RuneCountInString(msg.Content) > maxHistoryContentLength {
			return "INVALID_REQUEST", "history message is too long"
		}
	}

	// Only the most recent messages are considered.
	if limit := s.config.Engine.MaxHistory; limit > 0 && len(req.History) > limit {
		req.History = req.History[len(req.History)-limit:]
	}

	return "", ""
}

// handleStreamingAsk answers a question as a Server-Sent Event stream:
// zero or more chunk events, then either a sources event followed by done,
// or a single error event.
func (s *Server) handleStreamingAsk(w http.ResponseWriter, r *http.Request, req engine.AskRequest) {
	// Check if the response writer supports flushing
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "STREAMING_ERROR",
			"streaming not supported")
		return
	}

	// The server-wide write timeout would cut long generations short.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("failed to clear write deadline", "error", err)
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := s.engines.Engine().AskStream(r.Context(), req)
	defer stream.Close()

	for {
		ev, ok := stream.Next(r.Context())
		if !ok {
			// Client disconnected or the stream is exhausted; either
			// way the terminal event, if any, has already been sent.
			if r.Context().Err() != nil {
				s.logger.Debug("client disconnected during streaming")
			}
			return
		}

		s.sendSSE(w, flusher, ev)

		if ev.Type == engine.EventDone || ev.Type == engine.EventError {
			return
		}
	}
}

// sendSSE sends a Server-Sent Event.
func (s *Server) sendSSE(w http.ResponseWriter, flusher http.Flusher, event engine.StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal SSE event", "error", err)
		return
	}

	// SSE format: data: {json}\n\n
	if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		s.logger.Error("failed to write SSE event", "error", err)
		return
	}
	flusher.Flush()
}

// respondJSON sends a JSON response with RFC 8631 Link header for API discovery.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	// RFC 8631: Link header for API documentation discovery
	w.Header().Set("Link", `</v1/openapi.json>; rel="service-desc"`)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// respondError sends an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

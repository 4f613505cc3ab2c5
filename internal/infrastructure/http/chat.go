package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/usecases"
)

const maxChatBody = 1 << 20

type chatRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
	Mode  string `json:"mode"`
}

type tokenEvent struct {
	Content string `json:"content"`
}

type progressResponse struct {
	RequestID string                   `json:"request_id"`
	Events    []entities.ProgressEvent `json:"events"`
	Done      bool                     `json:"done"`
}

// handleChat answers POST /chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, "query is required")
		return
	}

	q := entities.Query{
		Text:      req.Query,
		Mode:      entities.ParseMode(req.Mode),
		Model:     req.Model,
		RequestID: RequestIDFrom(r.Context()),
	}

	resp, err := s.chat.HandleChat(r.Context(), q, s.recorder(q.RequestID, nil))
	if err != nil {
		s.writeChatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.shape(resp))
}

// handleChatStream answers GET /chat/stream as server-sent events: one
// "progress" event per state transition, "token" events carrying the quick
// answer as it is generated, then a "result" or "error" event.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	text := params.Get("q")
	if strings.TrimSpace(text) == "" {
		writeError(w, r, http.StatusBadRequest, "query is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	q := entities.Query{
		Text:      text,
		Mode:      entities.ParseMode(params.Get("mode")),
		Model:     params.Get("model"),
		RequestID: RequestIDFrom(r.Context()),
	}

	// Progress and token callbacks run on this goroutine, so writing here is safe.
	send := func(ev entities.ProgressEvent) {
		sendSSE(w, flusher, "progress", ev)
	}
	token := func(text string) {
		sendSSE(w, flusher, "token", tokenEvent{Content: text})
	}

	resp, err := s.chat.StreamChat(r.Context(), q, s.recorder(q.RequestID, send), token)
	if err != nil {
		_, msg := chatErrorStatus(err)
		s.logger.Error("chat stream failed", zap.String("request_id", q.RequestID), zap.Error(err))
		sendSSE(w, flusher, "error", errorResponse{Error: msg, RequestID: q.RequestID})
		return
	}
	sendSSE(w, flusher, "result", s.shape(resp))
}

// handleProgress answers GET /api/chat/{id}/progress.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.progress == nil {
		writeError(w, r, http.StatusNotFound, "progress reporting disabled")
		return
	}
	events, ok := s.progress.Snapshot(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown request id")
		return
	}
	done := len(events) > 0 && events[len(events)-1].State == entities.StateDone
	writeJSON(w, http.StatusOK, progressResponse{RequestID: id, Events: events, Done: done})
}

// recorder fans progress events into the polling store and next.
func (s *Server) recorder(requestID string, next usecases.ProgressFunc) usecases.ProgressFunc {
	store := s.opts.ReportProgress && s.progress != nil
	if !store && next == nil {
		return nil
	}
	return func(ev entities.ProgressEvent) {
		if store {
			s.progress.Append(requestID, ev)
		}
		if next != nil {
			next(ev)
		}
	}
}

func (s *Server) shape(resp *entities.ChatResponse) *entities.ChatResponse {
	if !s.opts.IntermediateOutputs {
		resp.DebugSteps = nil
	}
	return resp
}

func (s *Server) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := chatErrorStatus(err)
	s.logger.Error("chat failed",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, r, status, msg)
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	flusher.Flush()
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/bedtimenews/newsagent/internal/agent"
)

const (
	maxRequestBytes   = 1 << 20 // 1 MiB
	maxQuestionLength = 2000    // runes
)

// ChatRequest is the POST /chat payload.
type ChatRequest struct {
	Question string `json:"question"`
	Stream   bool   `json:"stream,omitempty"`
}

// ChatResponse is the non-streaming answer.
type ChatResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if utf8.RuneCountInString(req.Question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("question exceeds %d characters", maxQuestionLength))
		return
	}

	if req.Stream {
		s.streamChat(w, r, req.Question)
		return
	}

	answer, err := s.engine.Query(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("query failed", "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer})
}

// streamChat replays workflow events as server-sent events. Each event is
// one `data:` frame of JSON; the stream ends with a `data: [DONE]` frame.
// Errors after the stream started are delivered as an error event since
// the status line is already on the wire.
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, question string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(ev agent.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		flusher.Flush()
		return nil
	}

	if _, err := s.engine.StreamQuery(r.Context(), question, emit); err != nil {
		s.logger.Error("stream query failed", "error", err, "request_id", RequestID(r.Context()))

		errEvent, _ := json.Marshal(map[string]string{
			"type":    "error",
			"content": "query failed",
		})
		_, _ = fmt.Fprintf(w, "data: %s\n\n", errEvent)
		flusher.Flush()
		return
	}

	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jamesfry/footballgpt/internal/orchestrator"
)

// sseWriter wraps an http.ResponseWriter to emit named Server-Sent Events.
// Grounded on the teacher's internal/a2a/sse/sse.go (header set, Flush per
// event, trailing close event), generalised to a named event type since
// spec.md §6's SSE surface uses a small {start, chunk, end, error} enum
// rather than a single untyped data frame.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, f: flusher}, true
}

func (s *sseWriter) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// sseSink adapts orchestrator.Sink to the SSE {start, chunk, end, error}
// event enum (spec.md §6). The orchestrator's first Emit call is always
// the cache/classification event, which becomes "start"; token deltas
// become "chunk" events; the terminal Emit call becomes "end" or "error".
type sseSink struct {
	w      *sseWriter
	convID string
}

func newSSESink(w *sseWriter, conversationID string) *sseSink {
	return &sseSink{w: w, convID: conversationID}
}

func (s *sseSink) Token(content string) {
	s.w.send("chunk", map[string]any{"content": content})
}

func (s *sseSink) Emit(e orchestrator.Event) {
	switch e.Type {
	case orchestrator.EventFinalResponse:
		s.w.send("end", map[string]any{"conversation_id": s.convID, "content": e.Content})
	case orchestrator.EventError:
		s.w.send("error", map[string]any{"conversation_id": s.convID, "message": e.Content})
	default:
		s.w.send("start", map[string]any{
			"conversation_id": s.convID,
			"event":           string(e.Type),
			"category":        e.Category,
			"ttl_seconds":     e.TTLSeconds,
		})
	}
}

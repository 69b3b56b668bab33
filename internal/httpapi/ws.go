package httpapi

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jamesfry/footballgpt/internal/observability"
	"github.com/jamesfry/footballgpt/internal/orchestrator"
)

// upgrader allows all origins: this surface is consumed by the project's
// own frontend, not a third-party embed, and CORS is enforced upstream of
// the Go process in production.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the wire shape for both directions of /ws/chat/{conn_id},
// grounded on the teacher's WSMessage (pkg/api/websocket.go), generalised
// with a Data payload instead of a flat SessionID field since this surface
// is per-connection rather than hub-broadcast.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type wsIncoming struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// wsSink adapts orchestrator.Sink to the WebSocket event enum spec.md §6
// describes: message_received, typing, cache_hit, cache_miss, no_cache,
// token, final_response, message_complete, error.
type wsSink struct {
	conn *websocket.Conn
	mu   *sync.Mutex // guards concurrent writes to the shared connection
}

func (s *wsSink) send(msgType string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.WriteJSON(wsMessage{Type: msgType, Data: data})
}

func (s *wsSink) Token(content string) {
	s.send("token", map[string]any{"content": content})
}

func (s *wsSink) Emit(e orchestrator.Event) {
	switch e.Type {
	case orchestrator.EventFinalResponse:
		s.send("final_response", map[string]any{"content": e.Content})
		s.send("message_complete", nil)
	case orchestrator.EventError:
		s.send("error", map[string]any{"message": e.Content})
		s.send("message_complete", nil)
	default:
		s.send(string(e.Type), map[string]any{"category": e.Category, "ttl_seconds": e.TTLSeconds})
	}
}

// handleWSChat upgrades the connection and runs one orchestrator turn per
// inbound message, each a fully synchronous request/response exchange over
// the socket. Per-connection rather than hub/broadcast: each /ws/chat/
// {conn_id} connection is its own independent chat session, not a shared
// topic other clients observe.
func (s *Server) handleWSChat(w http.ResponseWriter, r *http.Request) {
	log := observability.LoggerFromContext(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	sink := &wsSink{conn: conn, mu: &writeMu}

	for {
		var in wsIncoming
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		if in.Message == "" {
			continue
		}

		sink.send("message_received", map[string]any{"message": in.Message})
		sink.send("typing", nil)

		s.orch.Respond(r.Context(), in.Message, in.ConversationID, sink)
	}
}

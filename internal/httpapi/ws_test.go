package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWSChatStreamsTokensAndCompletes(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat/conn-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsIncoming{Message: "what's the news today", ConversationID: "conv-ws-1"}))

	sawFinal := false
	sawComplete := false
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && !sawComplete {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "final_response":
			sawFinal = true
		case "message_complete":
			sawComplete = true
		}
	}

	require.True(t, sawFinal, "expected a final_response event")
	require.True(t, sawComplete, "expected a message_complete event")
}

func TestWSChatIgnoresEmptyMessages(t *testing.T) {
	srv, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat/conn-2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsIncoming{Message: ""}))
	require.NoError(t, conn.WriteJSON(wsIncoming{Message: "hello", ConversationID: "conv-ws-2"}))

	deadline := time.Now().Add(3 * time.Second)
	sawReceived := false
	for time.Now().Before(deadline) && !sawReceived {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "message_received" {
			sawReceived = true
		}
	}
	require.True(t, sawReceived)
}

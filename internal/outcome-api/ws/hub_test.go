package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// send + ping/pong garante que o hub já processou as mensagens anteriores
func sendAndSync(t *testing.T, conn *websocket.Conn, msgs ...ClientMsg) {
	t.Helper()
	for _, m := range append(msgs, ClientMsg{Type: "ping"}) {
		require.NoError(t, conn.WriteJSON(m))
	}
	var pong ServerMsg
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, "pong", pong.Type)
}

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	hub := NewHub(func(*http.Request) bool { return true }, zap.NewNop())
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, srv
}

func TestHub_BroadcastToSubscribers(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dial(t, srv)
	sendAndSync(t, conn, ClientMsg{Type: "subscribe", EventID: "E1"})
	assert.Equal(t, 1, hub.Subscribers("E1"))

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	dispatch(hub, `{"betId":7,"userId":"u1","eventId":"E1","status":"WON","settledAt":"`+at.Format(time.RFC3339)+`"}`, zap.NewNop())

	var got struct {
		Type    string            `json:"type"`
		EventID string            `json:"eventId"`
		Payload events.BetSettled `json:"payload"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "bet_settled", got.Type)
	assert.Equal(t, "E1", got.EventID)
	assert.Equal(t, int64(7), got.Payload.BetID)
	assert.True(t, at.Equal(got.Payload.SettledAt))
}

func TestHub_UnsubscribeAndDisconnect(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dial(t, srv)

	sendAndSync(t, conn, ClientMsg{Type: "subscribe", EventID: "E1"}, ClientMsg{Type: "subscribe", EventID: "E2"})
	assert.Equal(t, 1, hub.Subscribers("E2"))

	sendAndSync(t, conn, ClientMsg{Type: "unsubscribe", EventID: "E2"})
	assert.Equal(t, 0, hub.Subscribers("E2"))
	assert.Equal(t, 1, hub.Subscribers("E1"))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers("E1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SubscribeRequiresEventID(t *testing.T) {
	_, srv := newHubServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe"}))
	var msg ServerMsg
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
}

func TestDispatch_IgnoresInvalidPayload(t *testing.T) {
	hub, _ := newHubServer(t)
	assert.NotPanics(t, func() { dispatch(hub, "not-json", zap.NewNop()) })
}

package hub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_WelcomeOnConnect(t *testing.T) {
	h := New(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "welcome", msg["type"])
	require.NotEmpty(t, msg["client_id"])
}

func TestHub_SubscribeAcksAndReceivesBroadcast(t *testing.T) {
	h := New(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	var welcome map[string]any
	require.NoError(t, conn.ReadJSON(&welcome))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "channel": "events"}))

	var ack map[string]any
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "subscribed", ack["type"])

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	h.Broadcast(ChannelEvents, map[string]any{"hello": "world"})

	var evt map[string]any
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, "event", evt["type"])
	require.Equal(t, "world", evt["event"].(map[string]any)["hello"])
}

func TestHub_ActionBroadcastCarriesPipelineAndNodeScopeAtTopLevel(t *testing.T) {
	h := New(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	var welcome map[string]any
	require.NoError(t, conn.ReadJSON(&welcome))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "channel": "actions"}))
	var ack map[string]any
	require.NoError(t, conn.ReadJSON(&ack))

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	h.Broadcast(ChannelActions, ActionPayload{
		PipelineID: "demo-cpu-alert",
		NodeID:     "notify",
		Result:     map[string]any{"success": true},
	})

	var action map[string]any
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&action))
	require.Equal(t, "action", action["type"])
	require.Equal(t, "demo-cpu-alert", action["pipeline_id"])
	require.Equal(t, "notify", action["node_id"])
	require.Equal(t, true, action["result"].(map[string]any)["success"])
}

func TestHub_UnknownMessageTypeReturnsErrorWithoutClosing(t *testing.T) {
	h := New(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	var welcome map[string]any
	require.NoError(t, conn.ReadJSON(&welcome))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "bogus"}))

	var errMsg map[string]any
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&errMsg))
	require.Equal(t, "error", errMsg["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong map[string]any
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, "pong", pong["type"])
}

func TestHub_DisconnectPurgesSubscriptions(t *testing.T) {
	h := New(nil)
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	var welcome map[string]any
	require.NoError(t, conn.ReadJSON(&welcome))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "channel": "system"}))
	var ack map[string]any
	require.NoError(t, conn.ReadJSON(&ack))

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

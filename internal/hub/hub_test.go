package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onairlive/onair/internal/config"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   50 * time.Millisecond,
		PongWait:       time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 65536,
	}
}

// testHub sets up a Hub behind a test HTTP server that upgrades connections
// and runs the read/write pumps. Returns the hub, a dial function, and a
// registry of server-side clients keyed by the order they connected.
func testHub(t *testing.T) (*Hub, func() (*ws.Conn, *Client)) {
	t.Helper()

	h := NewHub(testConfig())
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	clientCh := make(chan *Client, 16)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		client := &Client{
			ID:   uuid.New().String(),
			Hub:  h,
			Conn: conn,
			Send: make(chan []byte, 256),
		}
		h.Register(client)
		clientCh <- client

		go client.WritePump()
		go client.ReadPump(func(*Client, []byte) {})
	}))
	t.Cleanup(server.Close)

	dial := func() (*ws.Conn, *Client) {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })

		select {
		case client := <-clientCh:
			return conn, client
		case <-time.After(time.Second):
			t.Fatal("server never registered the client")
			return nil, nil
		}
	}

	return h, dial
}

func readFrame(t *testing.T, conn *ws.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &frame))
	return frame
}

func TestHub_DeliverToAbsentUserIsNoOp(t *testing.T) {
	h := NewHub(testConfig())
	assert.False(t, h.DeliverToUser("ghost", map[string]string{"type": "notification"}))
}

func TestHub_DeliverToBoundUser(t *testing.T) {
	h, dial := testHub(t)

	conn, client := dial()
	h.Bind(client, "u1")
	require.True(t, h.IsOnline("u1"))

	require.True(t, h.DeliverToUser("u1", map[string]string{"type": "notification", "data": "hi"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "notification", frame["type"])
	assert.Equal(t, "hi", frame["data"])
}

func TestHub_UnauthenticatedClientNotAddressable(t *testing.T) {
	h, dial := testHub(t)

	_, client := dial()
	_ = client

	assert.False(t, h.IsOnline("u1"))
	assert.False(t, h.DeliverToUser("u1", map[string]string{"type": "notification"}))
}

func TestHub_LastConnectionWins(t *testing.T) {
	h, dial := testHub(t)

	_, first := dial()
	h.Bind(first, "u1")

	second, secondClient := dial()
	h.Bind(secondClient, "u1")

	require.True(t, h.IsOnline("u1"))
	require.True(t, h.DeliverToUser("u1", map[string]string{"type": "notification", "data": "new"}))

	frame := readFrame(t, second)
	assert.Equal(t, "new", frame["data"])
}

func TestHub_StaleCloseDoesNotEvictNewerConnection(t *testing.T) {
	h, dial := testHub(t)

	_, first := dial()
	h.Bind(first, "u1")

	_, secondClient := dial()
	h.Bind(secondClient, "u1")

	// A late close event from the replaced connection must not remove the
	// newer one.
	h.Unregister(first)

	assert.True(t, h.IsOnline("u1"))
	assert.True(t, h.DeliverToUser("u1", map[string]string{"type": "notification"}))
}

func TestHub_UnregisterRemovesUserEntry(t *testing.T) {
	h, dial := testHub(t)

	_, client := dial()
	h.Bind(client, "u1")
	require.True(t, h.IsOnline("u1"))

	h.Unregister(client)
	assert.False(t, h.IsOnline("u1"))
	assert.False(t, h.DeliverToUser("u1", map[string]string{"type": "notification"}))
}

func TestHub_DisconnectCleansUp(t *testing.T) {
	h, dial := testHub(t)

	conn, client := dial()
	h.Bind(client, "u1")

	conn.Close()

	require.Eventually(t, func() bool {
		return !h.IsOnline("u1")
	}, time.Second, 10*time.Millisecond)
}

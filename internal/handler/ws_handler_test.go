package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onairlive/onair/internal/config"
	"github.com/onairlive/onair/internal/domain"
	"github.com/onairlive/onair/internal/hub"
	"github.com/onairlive/onair/internal/service"
	pkgjwt "github.com/onairlive/onair/pkg/jwt"
)

type wsTestEnv struct {
	server *httptest.Server
	hub    *hub.Hub
	jwt    *pkgjwt.Manager
}

func newWSTestEnv(t *testing.T) *wsTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager := pkgjwt.NewManager("test-secret", "onair-test", time.Hour)
	h := hub.NewHub(config.WebSocketConfig{
		PingInterval:   10 * time.Second,
		PongWait:       15 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 65536,
	})

	wsHandler := NewWSHandler(h, service.NewPushService(h, jwtManager))
	router := gin.New()
	wsHandler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &wsTestEnv{server: server, hub: h, jwt: jwtManager}
}

func (e *wsTestEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func wsRead(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWS_AuthSuccess(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t)

	token, err := env.jwt.Generate("u1", "alice")
	require.NoError(t, err)

	wsSend(t, conn, domain.AuthMessage{Type: domain.MsgTypeAuth, Token: token})
	frame := wsRead(t, conn)

	assert.Equal(t, domain.MsgTypeAuthSuccess, frame["type"])
	assert.Equal(t, "u1", frame["user_id"])

	assert.Eventually(t, func() bool {
		return env.hub.IsOnline("u1")
	}, time.Second, 10*time.Millisecond)
}

func TestWS_AuthErrorKeepsConnectionOpen(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t)

	wsSend(t, conn, domain.AuthMessage{Type: domain.MsgTypeAuth, Token: "garbage"})
	frame := wsRead(t, conn)
	assert.Equal(t, domain.MsgTypeAuthError, frame["type"])

	// Still usable: a heartbeat gets answered.
	wsSend(t, conn, domain.BaseMessage{Type: domain.MsgTypePing})
	frame = wsRead(t, conn)
	assert.Equal(t, domain.MsgTypePong, frame["type"])
}

func TestWS_PingPong(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t)

	wsSend(t, conn, domain.BaseMessage{Type: domain.MsgTypePing})
	frame := wsRead(t, conn)
	assert.Equal(t, domain.MsgTypePong, frame["type"])
}

func TestWS_UnknownTypeGetsErrorFrame(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t)

	wsSend(t, conn, domain.BaseMessage{Type: "subscribe"})
	frame := wsRead(t, conn)
	assert.Equal(t, domain.MsgTypeError, frame["type"])
	assert.Equal(t, domain.ErrCodeBadRequest, frame["code"])
}

func TestWS_MalformedFrameGetsErrorFrame(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	frame := wsRead(t, conn)
	assert.Equal(t, domain.MsgTypeError, frame["type"])
}

func TestWS_DeliverToUserReachesAuthenticatedConnection(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t)

	token, err := env.jwt.Generate("u1", "alice")
	require.NoError(t, err)
	wsSend(t, conn, domain.AuthMessage{Type: domain.MsgTypeAuth, Token: token})
	wsRead(t, conn) // auth_success

	payload, err := json.Marshal(map[string]string{"kind": "test", "body": "hello"})
	require.NoError(t, err)
	require.True(t, env.hub.DeliverToUser("u1", &domain.NotificationMessage{
		Type: domain.MsgTypeNotification,
		Data: payload,
	}))

	frame := wsRead(t, conn)
	assert.Equal(t, domain.MsgTypeNotification, frame["type"])
}

func TestWS_DisconnectFreesUserEntry(t *testing.T) {
	env := newWSTestEnv(t)
	conn := env.dial(t)

	token, err := env.jwt.Generate("u1", "alice")
	require.NoError(t, err)
	wsSend(t, conn, domain.AuthMessage{Type: domain.MsgTypeAuth, Token: token})
	wsRead(t, conn)

	conn.Close()

	assert.Eventually(t, func() bool {
		return !env.hub.IsOnline("u1")
	}, 2*time.Second, 10*time.Millisecond)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/onairlive/onair/internal/domain"
	"github.com/onairlive/onair/internal/hub"
	"github.com/onairlive/onair/internal/service"
	pkglog "github.com/onairlive/onair/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSHandler handles push-channel WebSocket connections.
type WSHandler struct {
	hub     *hub.Hub
	service service.PushService
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.PushService) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and registers it in a
// pending-authentication state.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := pkglog.L()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &hub.Client{
		ID:   uuid.New().String(),
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	client.SetDisconnectHandler(func(c *hub.Client) {
		if err := h.service.HandleDisconnect(context.Background(), c); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, c.ID).Msg("disconnect handler error")
		}
	})

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	l := pkglog.L()

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeAuth:
		var msg domain.AuthMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid auth message"))
			return
		}
		if err := h.service.HandleAuth(ctx, client, msg.Token); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("auth failed")
		}

	case domain.MsgTypePing:
		if err := h.service.HandleHeartbeat(ctx, client); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("heartbeat failed")
		}

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}

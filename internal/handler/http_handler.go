package handler

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/onairlive/onair/internal/relay"
	"github.com/onairlive/onair/internal/service"
	"github.com/onairlive/onair/internal/token"
	pkglog "github.com/onairlive/onair/pkg/log"
	"github.com/onairlive/onair/pkg/middleware"
	"github.com/onairlive/onair/pkg/response"
)

// Signaling actions.
const (
	ActionStartBroadcast = "start_broadcast"
	ActionJoinBroadcast  = "join_broadcast"
	ActionSendSignal     = "send_signal"
	ActionGetSignals     = "get_signals"
	ActionLeaveBroadcast = "leave_broadcast"
	ActionStopBroadcast  = "stop_broadcast"
)

// signalingRequest is the action-discriminated body of the relay endpoint.
type signalingRequest struct {
	Action      string          `json:"action"`
	BroadcastID string          `json:"broadcast_id"`
	ListenerID  string          `json:"listener_id"`
	Signal      json.RawMessage `json:"signal"`
}

// HTTPHandler serves the signaling relay and token issuance endpoints.
type HTTPHandler struct {
	signaling      service.SignalingService
	rtc            *token.Builder
	authMiddleware *middleware.AuthMiddleware
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(signaling service.SignalingService, rtc *token.Builder, authMiddleware *middleware.AuthMiddleware) *HTTPHandler {
	return &HTTPHandler{
		signaling:      signaling,
		rtc:            rtc,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		broadcasts := api.Group("/broadcasts", h.authMiddleware.RequireAuth())
		{
			broadcasts.POST("/signaling", h.Signaling)
			broadcasts.GET("/token", h.IssueToken)
		}
	}
}

// Signaling handles POST /api/v1/broadcasts/signaling.
func (h *HTTPHandler) Signaling(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	callerID := middleware.GetUserID(c)
	if callerID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req signalingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "malformed request body")
		return
	}
	if req.BroadcastID == "" {
		response.BadRequest(c, "broadcast_id is required")
		return
	}

	switch req.Action {
	case ActionStartBroadcast:
		id, err := h.signaling.StartBroadcast(ctx, req.BroadcastID, callerID)
		if err != nil {
			l.Error().Err(err).Str(pkglog.FieldBroadcastID, req.BroadcastID).Msg("start broadcast failed")
			response.InternalError(c, err.Error())
			return
		}
		response.Success(c, gin.H{"broadcast_id": id})

	case ActionJoinBroadcast:
		count, err := h.signaling.JoinBroadcast(ctx, req.BroadcastID, req.ListenerID, callerID)
		if err != nil {
			h.signalingError(c, req, err)
			return
		}
		response.Success(c, gin.H{"listener_count": count})

	case ActionSendSignal:
		if err := h.signaling.SendSignal(ctx, req.BroadcastID, req.Signal, callerID); err != nil {
			h.signalingError(c, req, err)
			return
		}
		response.Success(c, gin.H{})

	case ActionGetSignals:
		signals := h.signaling.GetSignals(ctx, req.BroadcastID, callerID)
		response.Success(c, gin.H{"signals": signals})

	case ActionLeaveBroadcast:
		h.signaling.LeaveBroadcast(ctx, req.BroadcastID, req.ListenerID, callerID)
		response.Success(c, gin.H{})

	case ActionStopBroadcast:
		h.signaling.StopBroadcast(ctx, req.BroadcastID, callerID)
		response.Success(c, gin.H{})

	default:
		response.BadRequest(c, "unrecognized action: "+req.Action)
	}
}

func (h *HTTPHandler) signalingError(c *gin.Context, req signalingRequest, err error) {
	ctx := c.Request.Context()

	if errors.Is(err, relay.ErrSessionNotFound) {
		response.NotFound(c, "no live session for broadcast")
		return
	}
	l := pkglog.Ctx(ctx)
	l.Error().Err(err).
		Str(pkglog.FieldAction, req.Action).
		Str(pkglog.FieldBroadcastID, req.BroadcastID).
		Msg("signaling operation failed")
	response.InternalError(c, err.Error())
}

// IssueToken handles GET /api/v1/broadcasts/token. It issues a signed,
// time-bounded credential for the external media transport. The numeric uid
// defaults to a stable hash of the caller's account id.
func (h *HTTPHandler) IssueToken(c *gin.Context) {
	callerID := middleware.GetUserID(c)
	if callerID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	channel := c.Query("channel")
	if channel == "" {
		response.BadRequest(c, "channel is required")
		return
	}

	role := c.DefaultQuery("role", token.RoleAudience)

	uid := token.DeriveUID(callerID)
	if raw := c.Query("uid"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "uid must be a 32-bit unsigned integer")
			return
		}
		uid = uint32(parsed)
	}

	signed, expiresAt, err := h.rtc.Token(channel, role, uid)
	if err != nil {
		if errors.Is(err, token.ErrInvalidRole) {
			response.BadRequest(c, "role must be broadcaster or audience")
			return
		}
		l := pkglog.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("token issuance failed")
		response.InternalError(c, "failed to issue token")
		return
	}

	response.Success(c, gin.H{
		"token":      signed,
		"uid":        uid,
		"expires_at": expiresAt.Unix(),
	})
}

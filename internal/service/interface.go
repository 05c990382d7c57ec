package service

import (
	"context"
	"encoding/json"

	"github.com/onairlive/onair/internal/domain"
	"github.com/onairlive/onair/internal/hub"
	pkgjwt "github.com/onairlive/onair/pkg/jwt"
)

// SignalingService answers the relay's lifecycle and signaling operations.
// Callers arrive already authenticated; no ownership checks are made at this
// layer.
type SignalingService interface {
	StartBroadcast(ctx context.Context, broadcastID, callerID string) (string, error)
	JoinBroadcast(ctx context.Context, broadcastID, listenerID, callerID string) (int, error)
	SendSignal(ctx context.Context, broadcastID string, payload json.RawMessage, callerID string) error
	GetSignals(ctx context.Context, broadcastID, callerID string) []domain.Signal
	LeaveBroadcast(ctx context.Context, broadcastID, listenerID, callerID string)
	StopBroadcast(ctx context.Context, broadcastID, callerID string)
	// OnSessionReaped is invoked by the registry reaper for idle sessions.
	OnSessionReaped(broadcastID, broadcasterID string)
}

// PushService drives the push channel's inbound frames.
type PushService interface {
	HandleAuth(ctx context.Context, client *hub.Client, token string) error
	HandleHeartbeat(ctx context.Context, client *hub.Client) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
}

// TokenVerifier resolves an access token to claims. Satisfied by
// pkg/jwt.Manager.
type TokenVerifier interface {
	Verify(token string) (*pkgjwt.Claims, error)
}

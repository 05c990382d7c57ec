package service

import (
	"context"

	"github.com/onairlive/onair/internal/domain"
	"github.com/onairlive/onair/internal/hub"
	pkglog "github.com/onairlive/onair/pkg/log"
)

type pushService struct {
	hub      *hub.Hub
	verifier TokenVerifier
}

// NewPushService creates a PushService bound to the given hub.
func NewPushService(h *hub.Hub, verifier TokenVerifier) PushService {
	return &pushService{
		hub:      h,
		verifier: verifier,
	}
}

// HandleAuth resolves the token to an identity and binds the connection.
// On failure the connection stays open but unauthenticated.
func (s *pushService) HandleAuth(ctx context.Context, client *hub.Client, token string) error {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Info().Err(err).
			Str(pkglog.FieldClientID, client.ID).
			Msg("push channel auth failed")
		return client.SendMessage(&domain.AuthErrorMessage{
			Type:    domain.MsgTypeAuthError,
			Message: "invalid token",
		})
	}

	s.hub.Bind(client, claims.UserID)

	return client.SendMessage(&domain.AuthSuccessMessage{
		Type:   domain.MsgTypeAuthSuccess,
		UserID: claims.UserID,
	})
}

// HandleHeartbeat answers a liveness probe. No registry state changes.
func (s *pushService) HandleHeartbeat(ctx context.Context, client *hub.Client) error {
	return client.SendMessage(&domain.BaseMessage{Type: domain.MsgTypePong})
}

// HandleDisconnect removes the connection from the hub. The hub only clears
// the user entry when it still points at this client.
func (s *pushService) HandleDisconnect(ctx context.Context, client *hub.Client) error {
	s.hub.Unregister(client)
	return nil
}

package service

import (
	"context"
	"encoding/json"

	"github.com/onairlive/onair/internal/domain"
	"github.com/onairlive/onair/internal/relay"
	pkglog "github.com/onairlive/onair/pkg/log"
	"github.com/onairlive/onair/pkg/pubsub"
)

type signalingService struct {
	registry  *relay.Registry
	publisher pubsub.Publisher // nil when the event bus is unavailable
}

// NewSignalingService creates a SignalingService backed by the given
// registry. publisher may be nil; lifecycle events are then skipped.
func NewSignalingService(registry *relay.Registry, publisher pubsub.Publisher) SignalingService {
	return &signalingService{
		registry:  registry,
		publisher: publisher,
	}
}

func (s *signalingService) StartBroadcast(ctx context.Context, broadcastID, callerID string) (string, error) {
	created := s.registry.Start(broadcastID, callerID)
	if created {
		s.publishStarted(ctx, broadcastID, callerID)
	}
	return broadcastID, nil
}

func (s *signalingService) JoinBroadcast(ctx context.Context, broadcastID, listenerID, callerID string) (int, error) {
	return s.registry.Join(broadcastID, listenerID, callerID)
}

func (s *signalingService) SendSignal(ctx context.Context, broadcastID string, payload json.RawMessage, callerID string) error {
	return s.registry.SendSignal(broadcastID, payload, callerID)
}

func (s *signalingService) GetSignals(ctx context.Context, broadcastID, callerID string) []domain.Signal {
	return s.registry.Signals(broadcastID, callerID)
}

func (s *signalingService) LeaveBroadcast(ctx context.Context, broadcastID, listenerID, callerID string) {
	s.registry.Leave(broadcastID, listenerID, callerID)
}

func (s *signalingService) StopBroadcast(ctx context.Context, broadcastID, callerID string) {
	if _, removed := s.registry.Stop(broadcastID); removed {
		s.publishStopped(ctx, broadcastID, pubsub.ReasonExplicit)
	}
}

func (s *signalingService) OnSessionReaped(broadcastID, broadcasterID string) {
	s.publishStopped(context.Background(), broadcastID, pubsub.ReasonTimeout)
}

// Event publishing is best-effort; a bus outage must not fail the relay
// operation that triggered it.

func (s *signalingService) publishStarted(ctx context.Context, broadcastID, broadcasterID string) {
	if s.publisher == nil {
		return
	}
	event, err := pubsub.NewEvent(pubsub.EventBroadcastStarted, broadcastID, pubsub.BroadcastStartedPayload{
		BroadcastID:   broadcastID,
		BroadcasterID: broadcasterID,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, pubsub.ChannelBroadcastEvents, event)
	}
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).
			Str(pkglog.FieldBroadcastID, broadcastID).
			Msg("failed to publish broadcast_started event")
	}
}

func (s *signalingService) publishStopped(ctx context.Context, broadcastID, reason string) {
	if s.publisher == nil {
		return
	}
	event, err := pubsub.NewEvent(pubsub.EventBroadcastStopped, broadcastID, pubsub.BroadcastStoppedPayload{
		BroadcastID: broadcastID,
		Reason:      reason,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, pubsub.ChannelBroadcastEvents, event)
	}
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).
			Str(pkglog.FieldBroadcastID, broadcastID).
			Msg("failed to publish broadcast_stopped event")
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/onairlive/onair/internal/domain"
	"github.com/onairlive/onair/internal/hub"
	"github.com/onairlive/onair/internal/repository"
	pkglog "github.com/onairlive/onair/pkg/log"
	"github.com/onairlive/onair/pkg/pubsub"
)

// NotificationKindLive marks a "someone you follow went live" notification.
const NotificationKindLive = "broadcast_live"

// notificationData is the payload of a pushed notification frame.
type notificationData struct {
	Kind        string `json:"kind"`
	BroadcastID string `json:"broadcast_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Body        string `json:"body"`
}

// Notifier fans broadcast lifecycle events out to followers over the push
// channel. Delivery is best-effort: each recipient attempt is independent,
// and a disconnected recipient simply misses the push.
type Notifier struct {
	hub        *hub.Hub
	follows    repository.FollowRepository
	store      repository.NotificationRepository
	subscriber pubsub.Subscriber
}

// NewNotifier creates a Notifier.
func NewNotifier(h *hub.Hub, follows repository.FollowRepository, store repository.NotificationRepository, subscriber pubsub.Subscriber) *Notifier {
	return &Notifier{
		hub:        h,
		follows:    follows,
		store:      store,
		subscriber: subscriber,
	}
}

// Run subscribes to broadcast lifecycle events and dispatches them until ctx
// is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	events, err := n.subscriber.Subscribe(ctx, pubsub.ChannelBroadcastEvents)
	if err != nil {
		return fmt.Errorf("failed to subscribe to broadcast events: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				n.HandleEvent(ctx, event)
			}
		}
	}()

	return nil
}

// HandleEvent dispatches a single event from the bus.
func (n *Notifier) HandleEvent(ctx context.Context, event *pubsub.Event) {
	l := pkglog.Ctx(ctx)

	switch event.Type {
	case pubsub.EventBroadcastStarted:
		var payload pubsub.BroadcastStartedPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			l.Warn().Err(err).Msg("malformed broadcast_started payload")
			return
		}
		delivered := n.FanOutLive(ctx, payload.BroadcastID, payload.BroadcasterID)
		l.Info().
			Str(pkglog.FieldBroadcastID, payload.BroadcastID).
			Int("delivered", delivered).
			Msg("broadcast live fan-out complete")

	case pubsub.EventBroadcastStopped:
		// Nothing to push; listeners observe the end via signaling polls.

	default:
		l.Debug().Str("event_type", event.Type).Msg("ignoring broadcast event")
	}
}

// FanOutLive notifies every follower of broadcasterID that a broadcast has
// started and returns how many live deliveries succeeded. One recipient's
// failure or slowness never prevents attempts to the rest.
func (n *Notifier) FanOutLive(ctx context.Context, broadcastID, broadcasterID string) int {
	l := pkglog.Ctx(ctx)

	followerIDs, err := n.follows.ListFollowerIDs(ctx, broadcasterID)
	if err != nil {
		l.Error().Err(err).
			Str(pkglog.FieldUserID, broadcasterID).
			Msg("failed to load followers for fan-out")
		return 0
	}

	delivered := 0
	for _, followerID := range followerIDs {
		if n.notify(ctx, followerID, notificationData{
			Kind:        NotificationKindLive,
			BroadcastID: broadcastID,
			UserID:      broadcasterID,
			Body:        "A broadcaster you follow is live",
		}) {
			delivered++
		}
	}
	return delivered
}

// NotifyUser pushes a direct notification to a single user, used for admin
// messages and other one-off pushes. Reports whether live delivery happened.
func (n *Notifier) NotifyUser(ctx context.Context, userID, kind, body string) bool {
	return n.notify(ctx, userID, notificationData{Kind: kind, Body: body})
}

func (n *Notifier) notify(ctx context.Context, userID string, data notificationData) bool {
	l := pkglog.Ctx(ctx)

	// Persist first so an offline recipient can still find the notification
	// later. Failure here is logged and does not block the live push.
	if n.store != nil {
		if err := n.store.Create(ctx, &domain.Notification{
			UserID: userID,
			Kind:   data.Kind,
			Body:   data.Body,
		}); err != nil {
			l.Error().Err(err).
				Str(pkglog.FieldUserID, userID).
				Msg("failed to persist notification")
		}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		l.Error().Err(err).Msg("failed to marshal notification data")
		return false
	}

	return n.hub.DeliverToUser(userID, &domain.NotificationMessage{
		Type: domain.MsgTypeNotification,
		Data: raw,
	})
}

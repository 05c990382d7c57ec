package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onairlive/onair/internal/config"
	"github.com/onairlive/onair/internal/domain"
	"github.com/onairlive/onair/internal/hub"
	"github.com/onairlive/onair/pkg/pubsub"
)

type fakeFollowRepo struct {
	followers map[string][]string
	err       error
}

func (f *fakeFollowRepo) ListFollowerIDs(_ context.Context, userID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.followers[userID], nil
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []domain.Notification
	failFor map[string]bool
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.UserID] {
		return errors.New("store unavailable")
	}
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotificationRepo) users() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.created))
	for _, n := range f.created {
		out = append(out, n.UserID)
	}
	return out
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 65536,
	}
}

// connectUser registers and binds a connection for userID, returning its
// send queue for frame inspection.
func connectUser(h *hub.Hub, userID string) *hub.Client {
	client := &hub.Client{
		ID:   uuid.New().String(),
		Hub:  h,
		Send: make(chan []byte, 16),
	}
	h.Register(client)
	h.Bind(client, userID)
	return client
}

func readNotification(t *testing.T, client *hub.Client) domain.NotificationMessage {
	t.Helper()
	select {
	case raw := <-client.Send:
		var msg domain.NotificationMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		require.Equal(t, domain.MsgTypeNotification, msg.Type)
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected a notification frame")
		return domain.NotificationMessage{}
	}
}

func TestNotifier_FanOutDeliversToOnlineFollowers(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	follows := &fakeFollowRepo{followers: map[string][]string{
		"star": {"online-1", "offline", "online-2"},
	}}
	store := &fakeNotificationRepo{}
	n := NewNotifier(h, follows, store, nil)

	c1 := connectUser(h, "online-1")
	c2 := connectUser(h, "online-2")

	delivered := n.FanOutLive(context.Background(), "b1", "star")
	assert.Equal(t, 2, delivered, "only connected followers get a live push")

	for _, c := range []*hub.Client{c1, c2} {
		msg := readNotification(t, c)
		var data struct {
			Kind        string `json:"kind"`
			BroadcastID string `json:"broadcast_id"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, NotificationKindLive, data.Kind)
		assert.Equal(t, "b1", data.BroadcastID)
	}

	// Persistence covers offline recipients too.
	assert.ElementsMatch(t, []string{"online-1", "offline", "online-2"}, store.users())
}

func TestNotifier_OneFailingRecipientDoesNotStopTheRest(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	follows := &fakeFollowRepo{followers: map[string][]string{
		"star": {"bad", "good"},
	}}
	store := &fakeNotificationRepo{failFor: map[string]bool{"bad": true}}
	n := NewNotifier(h, follows, store, nil)

	good := connectUser(h, "good")

	delivered := n.FanOutLive(context.Background(), "b1", "star")
	assert.Equal(t, 1, delivered)
	readNotification(t, good)
	assert.ElementsMatch(t, []string{"good"}, store.users())
}

func TestNotifier_FollowLookupFailureDeliversNothing(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	follows := &fakeFollowRepo{err: errors.New("db down")}
	n := NewNotifier(h, follows, &fakeNotificationRepo{}, nil)

	assert.Equal(t, 0, n.FanOutLive(context.Background(), "b1", "star"))
}

func TestNotifier_HandleEventDispatchesStarted(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	follows := &fakeFollowRepo{followers: map[string][]string{"star": {"f1"}}}
	store := &fakeNotificationRepo{}
	n := NewNotifier(h, follows, store, nil)

	c := connectUser(h, "f1")

	event, err := pubsub.NewEvent(pubsub.EventBroadcastStarted, "b1", pubsub.BroadcastStartedPayload{
		BroadcastID:   "b1",
		BroadcasterID: "star",
	})
	require.NoError(t, err)

	n.HandleEvent(context.Background(), event)
	readNotification(t, c)
}

func TestNotifier_NotifyUser(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	store := &fakeNotificationRepo{}
	n := NewNotifier(h, &fakeFollowRepo{}, store, nil)

	c := connectUser(h, "u1")

	assert.True(t, n.NotifyUser(context.Background(), "u1", "admin_message", "maintenance at noon"))
	msg := readNotification(t, c)

	var data struct {
		Kind string `json:"kind"`
		Body string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "admin_message", data.Kind)
	assert.Equal(t, "maintenance at noon", data.Body)

	// Nobody connected: silent no-op, still persisted.
	assert.False(t, n.NotifyUser(context.Background(), "nobody", "admin_message", "hello"))
	assert.Contains(t, store.users(), "nobody")
}

package pubsub

// ChannelBroadcastEvents carries broadcast lifecycle events from the
// signaling relay to interested consumers (notification fan-out, metrics).
const ChannelBroadcastEvents = "broadcast:events"

// Event types for broadcast lifecycle.
const (
	EventBroadcastStarted = "broadcast_started"
	EventBroadcastStopped = "broadcast_stopped"
)

// Stop reasons.
const (
	ReasonExplicit = "explicit"
	ReasonTimeout  = "timeout"
)

// BroadcastStartedPayload is published when a session is first created.
type BroadcastStartedPayload struct {
	BroadcastID   string `json:"broadcast_id"`
	BroadcasterID string `json:"broadcaster_id"`
}

// BroadcastStoppedPayload is published when a session is removed, either
// explicitly or by the idle reaper.
type BroadcastStoppedPayload struct {
	BroadcastID string `json:"broadcast_id"`
	Reason      string `json:"reason"`
}

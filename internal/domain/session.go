package domain

import (
	"encoding/json"
	"sync"
	"time"
)

// Listener is a participant receiving a broadcaster's stream.
type Listener struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Signal is an opaque connection-negotiation message. The relay stores and
// serves it without interpreting the payload.
type Signal struct {
	From      string          `json:"from"`
	Payload   json.RawMessage `json:"signal"`
	Timestamp time.Time       `json:"timestamp"`
}

// BroadcastSession holds the signaling state for one live broadcast.
// Listeners and signals are guarded by the session's own lock so traffic on
// unrelated broadcasts never contends.
type BroadcastSession struct {
	BroadcastID   string
	BroadcasterID string // set once at creation, immutable

	mu           sync.RWMutex
	listeners    map[string]Listener
	signals      []Signal
	lastActiveAt time.Time
}

// NewBroadcastSession creates a session for the given broadcast with the
// caller recorded as broadcaster.
func NewBroadcastSession(broadcastID, broadcasterID string) *BroadcastSession {
	return &BroadcastSession{
		BroadcastID:   broadcastID,
		BroadcasterID: broadcasterID,
		listeners:     make(map[string]Listener),
		lastActiveAt:  time.Now(),
	}
}

// AddListener inserts or overwrites the listener entry for key and returns
// the resulting listener count.
func (s *BroadcastSession) AddListener(key, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[key] = Listener{UserID: userID, JoinedAt: time.Now()}
	s.lastActiveAt = time.Now()
	return len(s.listeners)
}

// RemoveListener deletes the listener entry for key. Removing an absent
// entry is a no-op.
func (s *BroadcastSession) RemoveListener(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, key)
	s.lastActiveAt = time.Now()
}

// ListenerCount returns the current number of listeners.
func (s *BroadcastSession) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// AppendSignal appends a signal from the given sender. Signals are immutable
// once appended; appends are linearized by the session lock.
func (s *BroadcastSession) AppendSignal(from string, payload json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, Signal{
		From:      from,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	s.lastActiveAt = time.Now()
}

// SignalsExcluding returns a snapshot of the signal log, in insertion order,
// skipping signals sent by callerID. The read is non-destructive: repeated
// calls return the same signals until the session is stopped.
func (s *BroadcastSession) SignalsExcluding(callerID string) []Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		if sig.From == callerID {
			continue
		}
		out = append(out, sig)
	}
	return out
}

// IdleSince reports how long ago the session last saw any activity.
func (s *BroadcastSession) IdleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastActiveAt)
}

// Touch updates the last-activity timestamp.
func (s *BroadcastSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/onairlive/onair/internal/domain"
	pkglog "github.com/onairlive/onair/pkg/log"
)

// ErrSessionNotFound is returned by mutating operations that reference a
// broadcast with no live session. Reads deliberately do not return it; a
// poll against a not-yet-started or already-stopped broadcast is a normal
// condition.
var ErrSessionNotFound = errors.New("broadcast session not found")

// Registry owns every active BroadcastSession, keyed by broadcast id.
// The registry lock only guards the map; each session carries its own lock,
// so signaling on unrelated broadcasts never serializes.
//
// Registries are constructed per process (or per test) and injected; there
// is no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.BroadcastSession
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*domain.BroadcastSession),
	}
}

// Start ensures a session exists for broadcastID, recording callerID as
// broadcaster if newly created. Idempotent: starting an already-open
// broadcast succeeds without resetting listeners or signals. Reports whether
// a new session was created.
func (r *Registry) Start(broadcastID, callerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[broadcastID]; ok {
		s.Touch()
		return false
	}
	r.sessions[broadcastID] = domain.NewBroadcastSession(broadcastID, callerID)
	return true
}

// Join inserts or overwrites a listener entry keyed by listenerID if
// provided, else by callerID, and returns the resulting listener count.
func (r *Registry) Join(broadcastID, listenerID, callerID string) (int, error) {
	s, ok := r.session(broadcastID)
	if !ok {
		return 0, ErrSessionNotFound
	}
	return s.AddListener(listenerKey(listenerID, callerID), callerID), nil
}

// SendSignal appends an opaque signal from callerID to the session's log.
func (r *Registry) SendSignal(broadcastID string, payload json.RawMessage, callerID string) error {
	s, ok := r.session(broadcastID)
	if !ok {
		return ErrSessionNotFound
	}
	s.AppendSignal(callerID, payload)
	return nil
}

// Signals returns every signal not sent by callerID, in insertion order.
// A missing session yields an empty slice, not an error. The read is
// non-destructive: no per-listener cursor is kept, so the same signals are
// returned on every poll until the session is stopped.
func (r *Registry) Signals(broadcastID, callerID string) []domain.Signal {
	s, ok := r.session(broadcastID)
	if !ok {
		return []domain.Signal{}
	}
	// A poll counts as activity; sessions being polled by live listeners
	// must not be reaped.
	s.Touch()
	return s.SignalsExcluding(callerID)
}

// Leave removes the listener entry keyed by listenerID if provided, else by
// callerID. Leaving a missing session or listener is a no-op.
func (r *Registry) Leave(broadcastID, listenerID, callerID string) {
	s, ok := r.session(broadcastID)
	if !ok {
		return
	}
	s.RemoveListener(listenerKey(listenerID, callerID))
}

// Stop deletes the session with its listeners and signal log atomically.
// Stopping a missing session is a no-op. Reports whether a session was
// removed and, if so, who its broadcaster was.
func (r *Registry) Stop(broadcastID string) (broadcasterID string, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[broadcastID]
	if !ok {
		return "", false
	}
	delete(r.sessions, broadcastID)
	return s.BroadcasterID, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) session(broadcastID string) (*domain.BroadcastSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[broadcastID]
	return s, ok
}

// ReapFunc is invoked for every session removed by the reaper.
type ReapFunc func(broadcastID, broadcasterID string)

// RunReaper sweeps sessions idle beyond maxIdle every interval until ctx is
// cancelled. A broadcaster that disconnects without stopping its broadcast
// would otherwise leak the session and its ever-growing signal log.
func (r *Registry) RunReaper(ctx context.Context, interval, maxIdle time.Duration, onReap ReapFunc) {
	l := pkglog.L()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range r.idleSessions(maxIdle) {
				broadcasterID, removed := r.Stop(s.BroadcastID)
				if !removed {
					continue
				}
				l.Info().
					Str(pkglog.FieldBroadcastID, s.BroadcastID).
					Str(pkglog.FieldUserID, broadcasterID).
					Msg("reaped idle broadcast session")
				if onReap != nil {
					onReap(s.BroadcastID, broadcasterID)
				}
			}
		}
	}
}

func (r *Registry) idleSessions(maxIdle time.Duration) []*domain.BroadcastSession {
	now := time.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var idle []*domain.BroadcastSession
	for _, s := range r.sessions {
		if s.IdleSince(now) > maxIdle {
			idle = append(idle, s)
		}
	}
	return idle
}

func listenerKey(listenerID, callerID string) string {
	if listenerID != "" {
		return listenerID
	}
	return callerID
}

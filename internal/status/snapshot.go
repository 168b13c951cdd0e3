// Package status aggregates tracker scans and the events detector into an
// immutable per-refresh snapshot, published by atomic pointer swap.
package status

import (
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/events"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
)

// Icon is the activity indicator shown next to a session.
type Icon string

const (
	IconWorking Icon = "working"
	IconIdle    Icon = "idle"
	IconNone    Icon = "none"
)

// SessionStatus is one session's aggregated state within a snapshot.
type SessionStatus struct {
	// Kinds holds the resource kinds with a live OS context, the union
	// across trackers. A kind absent from the map is not alive.
	Kinds map[handle.Kind]bool

	// Icon derives from the events detector: working, idle, or none when
	// the agent state is unknown.
	Icon Icon

	// At is the timestamp of the last classified agent event (zero when
	// the state is unknown).
	At time.Time
}

// Alive reports whether the session has a live context for the kind.
func (s SessionStatus) Alive(kind handle.Kind) bool {
	return s.Kinds[kind]
}

// Snapshot is one refresh's complete view. Never mutated after publication;
// readers may hold it indefinitely.
type Snapshot struct {
	Taken    time.Time
	Sessions map[string]SessionStatus
}

// Status returns the session's aggregated state (zero value if unknown).
// Safe on a nil snapshot: everything reads as absent.
func (s *Snapshot) Status(id string) SessionStatus {
	if s == nil {
		return SessionStatus{}
	}
	return s.Sessions[id]
}

// Running reports whether the session's agent is actively working.
func (s *Snapshot) Running(id string) bool {
	return s.Status(id).Icon == IconWorking
}

// iconFor maps a detector state to its display icon.
func iconFor(state events.State) Icon {
	switch state {
	case events.StateWorking:
		return IconWorking
	case events.StateIdle:
		return IconIdle
	default:
		return IconNone
	}
}

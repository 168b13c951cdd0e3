// Package events classifies per-session agent activity from the append-only
// event logs the agent CLI writes: one JSON event per line, each carrying a
// type from a small fixed vocabulary and a timestamp.
package events

import "time"

// Event vocabulary. Types outside this set are ignored, not errors.
const (
	TypeTurnStart          = "turn.start"
	TypeToolExecutionStart = "tool.execution_start"
	TypeToolExecutionEnd   = "tool.execution_end"
	TypeAssistantMessage   = "assistant.message"
	TypeAskUser            = "ask.user"
	TypeTurnEnd            = "turn.end"
)

// Event is one line of a session's event log.
type Event struct {
	Type string `json:"type"`
	TS   int64  `json:"ts"` // unix seconds
}

// Time returns the event timestamp.
func (e Event) Time() time.Time {
	return time.Unix(e.TS, 0)
}

// State is the classified agent state for a session.
type State string

const (
	StateWorking State = "working"
	StateIdle    State = "idle"
	StateUnknown State = "unknown"
)

// Classify maps an event type to the state it implies. The second return is
// false for types that carry no state signal.
func Classify(eventType string) (State, bool) {
	switch eventType {
	case TypeTurnStart, TypeToolExecutionStart, TypeToolExecutionEnd, TypeAssistantMessage:
		return StateWorking, true
	case TypeAskUser, TypeTurnEnd:
		return StateIdle, true
	default:
		return StateUnknown, false
	}
}

package session

import "github.com/osa030/harmony/internal/app/playback"

// EventType represents a session event type.
type EventType int

const (
	EventStateChanged EventType = iota // State changed after a reduction
	EventEffectFailed                  // An effect failed; state is unchanged
	EventClosed                        // Session was dismissed or closed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventEffectFailed:
		return "effect_failed"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event represents a session event.
type Event struct {
	Type    EventType
	State   playback.State       // State after the event
	Failure playback.FailureKind // Set for EventEffectFailed
	Err     error                // Set for EventEffectFailed
}

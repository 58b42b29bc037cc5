package live

import (
	"fmt"
	"time"

	"github.com/skypro1111/interview-service/internal/transcript"
)

// EventKind tags an Event
type EventKind int

const (
	EventStateChanged EventKind = iota + 1
	EventTurn
	EventPartial
	EventLevel
)

// String returns a human-readable name for the kind
func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventTurn:
		return "turn"
	case EventPartial:
		return "partial"
	case EventLevel:
		return "level"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is one entry of the controller's event feed
type Event struct {
	Kind EventKind
	Time time.Time

	State State // EventStateChanged
	Err   error // EventStateChanged into FAILED

	Turn transcript.Turn // EventTurn: finalized; EventPartial: in progress

	Level    float64 // EventLevel: dBFS
	Speaking bool    // EventLevel
}

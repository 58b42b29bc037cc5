package tui

import (
	"github.com/skypro1111/interview-service/internal/live"
	"github.com/skypro1111/interview-service/internal/session"
)

// LiveEventMsg wraps one event from the controller feed.
type LiveEventMsg struct {
	Event live.Event
}

// LiveDoneMsg is sent when the controller reaches a terminal state.
type LiveDoneMsg struct{}

// ConcludedMsg carries the result of concluding the session.
type ConcludedMsg struct {
	Result *live.Result
	Err    error
}

// SavedMsg carries the stored session after analysis. Session may be set
// together with Err when the analysis failed and a degraded session was kept.
type SavedMsg struct {
	Session *session.Session
	Err     error
}

// TickMsg refreshes the elapsed clock.
type TickMsg struct{}

package transcript

import "time"

// pendingTurn is the running buffer for the turn currently being produced.
type pendingTurn struct {
	class     SpeakerClass
	text      string
	startedAt time.Duration
}

// Assembler coalesces contiguous same-speaker fragments into turns.
//
// A turn is finalized when the remote signals turn completion, when a
// fragment from the other speaker arrives, or on FinalizeAndDrain. The
// finalized StartTime is the elapsed time when the turn began, not when it
// was finalized.
//
// Assembler is not safe for concurrent use; the live controller mutates it
// only from its dispatch path.
type Assembler struct {
	elapsed func() time.Duration
	current *pendingTurn
	turns   []Turn
	onTurn  func(Turn)
}

// NewAssembler creates an assembler. elapsed returns the time since the
// session started.
func NewAssembler(elapsed func() time.Duration) *Assembler {
	return &Assembler{elapsed: elapsed}
}

// OnTurn registers a callback invoked with every finalized turn.
func (a *Assembler) OnTurn(fn func(Turn)) {
	a.onTurn = fn
}

// OnFragment feeds one transcription fragment.
func (a *Assembler) OnFragment(class SpeakerClass, text string) {
	if a.current != nil && a.current.class == class {
		a.current.text += text
		return
	}

	a.finalize()
	a.current = &pendingTurn{
		class:     class,
		text:      text,
		startedAt: a.elapsed(),
	}
}

// OnTurnBoundary finalizes the in-progress turn after the remote reported
// that the exchange is complete.
func (a *Assembler) OnTurnBoundary() {
	a.finalize()
}

// FinalizeAndDrain force-finalizes any in-progress turn and returns a copy
// of every finalized turn.
func (a *Assembler) FinalizeAndDrain() []Turn {
	a.finalize()
	return a.Turns()
}

// Turns returns a copy of the finalized turns in order.
func (a *Assembler) Turns() []Turn {
	out := make([]Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

// Pending returns the in-progress turn, if any, with its elapsed start.
func (a *Assembler) Pending() (Turn, bool) {
	if a.current == nil {
		return Turn{}, false
	}
	return Turn{
		Speaker:   a.current.class.Speaker(),
		Text:      a.current.text,
		StartTime: a.current.startedAt.Seconds(),
	}, true
}

func (a *Assembler) finalize() {
	if a.current == nil {
		return
	}

	turn := Turn{
		Speaker:   a.current.class.Speaker(),
		Text:      a.current.text,
		StartTime: a.current.startedAt.Seconds(),
	}
	a.current = nil
	a.turns = append(a.turns, turn)

	if a.onTurn != nil {
		a.onTurn(turn)
	}
}

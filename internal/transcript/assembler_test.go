package transcript

import (
	"strings"
	"testing"
	"time"
)

// fakeElapsed returns a clock that advances by step on every call
func fakeElapsed(step time.Duration) func() time.Duration {
	var now time.Duration
	return func() time.Duration {
		current := now
		now += step
		return current
	}
}

func TestAssemblerSingleSpeakerConcatenation(t *testing.T) {
	a := NewAssembler(fakeElapsed(time.Second))

	fragments := []string{"I ", "remember ", "the", " smell", " of rain."}
	for _, f := range fragments {
		a.OnFragment(ClassParticipant, f)
	}

	turns := a.FinalizeAndDrain()
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}

	expected := strings.Join(fragments, "")
	if turns[0].Text != expected {
		t.Errorf("Expected text %q, got %q", expected, turns[0].Text)
	}

	if turns[0].Speaker != SpeakerInterviewee {
		t.Errorf("Expected speaker %s, got %s", SpeakerInterviewee, turns[0].Speaker)
	}
}

func TestAssemblerAlternatingSpeakers(t *testing.T) {
	a := NewAssembler(fakeElapsed(250 * time.Millisecond))

	classes := []SpeakerClass{ClassModel, ClassParticipant, ClassModel, ClassParticipant, ClassModel, ClassParticipant, ClassModel}
	for i, c := range classes {
		a.OnFragment(c, string(rune('a'+i)))
	}

	turns := a.FinalizeAndDrain()
	if len(turns) != len(classes) {
		t.Fatalf("Expected %d turns, got %d", len(classes), len(turns))
	}

	for i := 1; i < len(turns); i++ {
		if turns[i].StartTime < turns[i-1].StartTime {
			t.Errorf("Turn %d starts at %.3f before turn %d at %.3f",
				i, turns[i].StartTime, i-1, turns[i-1].StartTime)
		}
		if turns[i].Speaker == turns[i-1].Speaker {
			t.Errorf("Turn %d has the same speaker as its predecessor", i)
		}
	}
}

func TestAssemblerTurnCompleteScenario(t *testing.T) {
	a := NewAssembler(fakeElapsed(time.Second))

	a.OnFragment(ClassModel, "Hello ")
	a.OnFragment(ClassModel, "there.")
	a.OnTurnBoundary()
	a.OnFragment(ClassParticipant, "Hi")
	a.OnTurnBoundary()

	turns := a.Turns()
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}

	if turns[0].Speaker != SpeakerAI || turns[0].Text != "Hello there." {
		t.Errorf("Unexpected first turn: %+v", turns[0])
	}

	if turns[1].Speaker != SpeakerInterviewee || turns[1].Text != "Hi" {
		t.Errorf("Unexpected second turn: %+v", turns[1])
	}
}

func TestAssemblerStartTimeIsTurnBeginning(t *testing.T) {
	a := NewAssembler(fakeElapsed(10 * time.Second))

	// elapsed is only sampled when a turn starts
	a.OnFragment(ClassModel, "first")
	a.OnFragment(ClassModel, " still first")
	a.OnFragment(ClassParticipant, "second")
	turns := a.FinalizeAndDrain()

	if turns[0].StartTime != 0 {
		t.Errorf("Expected first turn to start at 0, got %.3f", turns[0].StartTime)
	}
	if turns[1].StartTime != 10 {
		t.Errorf("Expected second turn to start at 10, got %.3f", turns[1].StartTime)
	}
}

func TestAssemblerBoundaryWithoutTurnIsNoop(t *testing.T) {
	a := NewAssembler(fakeElapsed(time.Second))

	a.OnTurnBoundary()
	a.OnTurnBoundary()

	if turns := a.FinalizeAndDrain(); len(turns) != 0 {
		t.Errorf("Expected no turns, got %d", len(turns))
	}
}

func TestAssemblerOnTurnCallback(t *testing.T) {
	a := NewAssembler(fakeElapsed(time.Second))

	var emitted []Turn
	a.OnTurn(func(turn Turn) {
		emitted = append(emitted, turn)
	})

	a.OnFragment(ClassModel, "Question?")
	if len(emitted) != 0 {
		t.Fatalf("Expected no emitted turns before finalization, got %d", len(emitted))
	}

	a.OnFragment(ClassParticipant, "Answer.")
	a.FinalizeAndDrain()

	if len(emitted) != 2 {
		t.Fatalf("Expected 2 emitted turns, got %d", len(emitted))
	}
	if emitted[0].Text != "Question?" || emitted[1].Text != "Answer." {
		t.Errorf("Unexpected emitted turns: %+v", emitted)
	}
}

func TestAssemblerPending(t *testing.T) {
	a := NewAssembler(fakeElapsed(time.Second))

	if _, ok := a.Pending(); ok {
		t.Error("Expected no pending turn initially")
	}

	a.OnFragment(ClassModel, "Tell me ")
	a.OnFragment(ClassModel, "more")

	pending, ok := a.Pending()
	if !ok {
		t.Fatal("Expected a pending turn")
	}
	if pending.Text != "Tell me more" || pending.Speaker != SpeakerAI {
		t.Errorf("Unexpected pending turn: %+v", pending)
	}

	a.OnTurnBoundary()
	if _, ok := a.Pending(); ok {
		t.Error("Expected pending turn to be cleared after boundary")
	}
}

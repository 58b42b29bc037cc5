package transcript

import "testing"

func TestFormatText(t *testing.T) {
	turns := []Turn{
		{Speaker: SpeakerAI, Text: "Can you describe the moment?", StartTime: 0},
		{Speaker: SpeakerInterviewee, Text: "It was bright.", StartTime: 65.7},
		{Speaker: SpeakerAI, Text: "Go on.", StartTime: 3725},
	}

	expected := "[00:00] AI: Can you describe the moment?\n" +
		"[01:05] Interviewee: It was bright.\n" +
		"[62:05] AI: Go on.\n"

	if got := FormatText(turns); got != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestFlatten(t *testing.T) {
	turns := []Turn{
		{Speaker: SpeakerAI, Text: "Hello."},
		{Speaker: SpeakerInterviewee, Text: "Hi."},
	}

	expected := "AI: Hello.\nInterviewee: Hi."
	if got := Flatten(turns); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestFromRawText(t *testing.T) {
	if turns := FromRawText("   \n "); turns != nil {
		t.Errorf("Expected nil for blank input, got %+v", turns)
	}

	turns := FromRawText("  I was sitting by the window.\n")
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}
	if turns[0].Text != "I was sitting by the window." {
		t.Errorf("Unexpected text %q", turns[0].Text)
	}
	if turns[0].StartTime != 0 {
		t.Errorf("Expected start time 0, got %.3f", turns[0].StartTime)
	}
}

func TestFormatTimestampNegative(t *testing.T) {
	if got := FormatTimestamp(-3); got != "00:00" {
		t.Errorf("Expected 00:00, got %s", got)
	}
}

package transcript

import (
	"fmt"
	"strings"
)

// FormatText renders turns as one "[mm:ss] Speaker: text" line per turn.
func FormatText(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "[%s] %s: %s\n", t.Timestamp(), t.Speaker, t.Text)
	}
	return b.String()
}

// Flatten renders turns as "Speaker: text" lines for the analysis request.
func Flatten(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Speaker, t.Text))
	}
	return strings.Join(lines, "\n")
}

// FromRawText wraps an imported plain-text transcript as a single
// undifferentiated turn.
func FromRawText(text string) []Turn {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []Turn{{Speaker: SpeakerInterviewee, Text: text, StartTime: 0}}
}

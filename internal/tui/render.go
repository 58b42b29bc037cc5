package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skypro1111/interview-service/internal/annotation"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

var highlightText = lipgloss.Color("#111111")

// RenderAnnotatedSegment renders one transcript segment with every
// annotated span highlighted in the color of its innermost code. Spans
// covered by more than one annotation are also underlined.
func RenderAnnotatedSegment(s *session.Session, segmentIndex int) (string, error) {
	turn, err := s.Segment(segmentIndex)
	if err != nil {
		return "", err
	}

	spans := annotation.PartitionForRender(turn.Text, annotation.AnnotationsForSegment(s, segmentIndex))

	var b strings.Builder
	for _, span := range spans {
		inner, ok := span.Innermost()
		if !ok {
			b.WriteString(span.Text)
			continue
		}
		style := lipgloss.NewStyle().
			Background(lipgloss.Color(annotation.ColorFor(s, inner))).
			Foreground(highlightText)
		if len(span.Annotations) > 1 {
			style = style.Underline(true)
		}
		b.WriteString(style.Render(span.Text))
	}
	return b.String(), nil
}

// RenderSession renders the analysis and the annotated transcript.
func RenderSession(s *session.Session, width int) string {
	if width <= 0 {
		width = 80
	}

	var sections []string

	header := TitleStyle.Render("SESSION "+s.ID) + DimStyle.Render(fmt.Sprintf(" — %s, %s, %s",
		s.Date.Local().Format("2006-01-02 15:04"), s.Type, transcript.FormatTimestamp(s.Duration)))
	if s.Degraded {
		header += " " + DegradedBadgeStyle.Render("[analysis unavailable]")
	}
	sections = append(sections, header)

	if a := s.Analysis; a != nil && !s.Degraded {
		sections = append(sections, renderSection("Summary", wrapText(a.Summary, width)))
		sections = append(sections, renderSection("Takeaways", bullets(a.Takeaways, width)))
		if len(a.Modalities) > 0 {
			sections = append(sections, renderSection("Modalities", []string{strings.Join(a.Modalities, ", ")}))
		}

		var phases []string
		for _, p := range a.DiachronicStructure {
			phases = append(phases, TimestampStyle.Render("["+p.StartTime+"]")+" "+SectionTitleStyle.Render(p.PhaseName))
			for _, line := range wrapText(p.Description, width-4) {
				phases = append(phases, "    "+line)
			}
		}
		sections = append(sections, renderSection(fmt.Sprintf("Phases (%d)", a.PhasesCount), phases))

		var qualities []string
		for _, q := range a.SynchronicStructure {
			qualities = append(qualities, SectionTitleStyle.Render(q.Category))
			for _, line := range wrapText(q.Details, width-4) {
				qualities = append(qualities, "    "+line)
			}
		}
		sections = append(sections, renderSection("Structure", qualities))
	}

	if legend := RenderCodeLegend(s); legend != "" {
		sections = append(sections, renderSection("Codes", []string{legend}))
	}

	sections = append(sections, renderSection("Transcript", renderTranscriptLines(s, width)))

	return strings.Join(sections, "\n\n") + "\n"
}

// RenderCodeLegend lists codes with their color swatch and usage count.
func RenderCodeLegend(s *session.Session) string {
	if len(s.Codes) == 0 {
		return ""
	}

	counts := annotation.CountByCode(s)
	codes := append([]session.Code(nil), s.Codes...)
	sort.SliceStable(codes, func(i, j int) bool {
		return counts[codes[i].ID] > counts[codes[j].ID]
	})

	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(c.Color)).Render("  ")
		parts = append(parts, fmt.Sprintf("%s %s (%d)", swatch, c.Name, counts[c.ID]))
	}
	return strings.Join(parts, "  ")
}

func renderTranscriptLines(s *session.Session, width int) []string {
	turns := s.Turns()
	if len(turns) == 0 {
		return []string{DimStyle.Render("No transcript.")}
	}

	var lines []string
	for i, turn := range turns {
		text, err := RenderAnnotatedSegment(s, i)
		if err != nil {
			continue
		}
		prefix := fmt.Sprintf("%s %s %s ",
			DimStyle.Render(fmt.Sprintf("%3d", i)),
			TimestampStyle.Render("["+turn.Timestamp()+"]"),
			speakerStyle(turn.Speaker).Render(string(turn.Speaker)+":"))
		lines = append(lines, prefix+text)
	}
	return lines
}

func renderSection(title string, lines []string) string {
	if len(lines) == 0 {
		lines = []string{DimStyle.Render("—")}
	}
	return SectionTitleStyle.Render(strings.ToUpper(title)) + "\n" + strings.Join(lines, "\n")
}

func bullets(items []string, width int) []string {
	var lines []string
	for _, item := range items {
		for i, line := range wrapText(item, width-2) {
			if i == 0 {
				lines = append(lines, "• "+line)
			} else {
				lines = append(lines, "  "+line)
			}
		}
	}
	return lines
}

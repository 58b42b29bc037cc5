package annotation

import (
	"sort"

	"github.com/skypro1111/interview-service/internal/session"
)

// Span is one piece of a rendered segment. Start and End are character
// offsets. Annotations lists every annotation covering the span, outermost
// first; a plain span has none.
type Span struct {
	Start       int                  `json:"start"`
	End         int                  `json:"end"`
	Text        string               `json:"text"`
	Annotations []session.Annotation `json:"annotations,omitempty"`
}

// Highlighted reports whether the span is covered by any annotation
func (s Span) Highlighted() bool {
	return len(s.Annotations) > 0
}

// Innermost returns the most specific covering annotation
func (s Span) Innermost() (session.Annotation, bool) {
	if len(s.Annotations) == 0 {
		return session.Annotation{}, false
	}
	return s.Annotations[len(s.Annotations)-1], true
}

// PartitionForRender splits text into an ordered, gap-free list of spans.
// Concatenating span texts reproduces text. Spans are non-empty, except
// that empty text yields a single empty plain span.
// Annotations are clamped to the text; those that collapse are ignored.
func PartitionForRender(text string, annotations []session.Annotation) []Span {
	runes := []rune(text)
	length := len(runes)
	if length == 0 {
		return []Span{{Start: 0, End: 0, Text: ""}}
	}

	valid := make([]session.Annotation, 0, len(annotations))
	for _, a := range annotations {
		start := clamp(a.StartOffset, 0, length)
		end := clamp(a.EndOffset, 0, length)
		if start >= end {
			continue
		}
		a.StartOffset, a.EndOffset = start, end
		valid = append(valid, a)
	}

	// Outermost first: earlier start, then longer range.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].StartOffset != valid[j].StartOffset {
			return valid[i].StartOffset < valid[j].StartOffset
		}
		return valid[i].EndOffset > valid[j].EndOffset
	})

	boundaries := []int{0, length}
	for _, a := range valid {
		boundaries = append(boundaries, a.StartOffset, a.EndOffset)
	}
	sort.Ints(boundaries)

	spans := make([]Span, 0, len(boundaries))
	prev := -1
	for _, b := range boundaries {
		if b == prev {
			continue
		}
		if prev >= 0 {
			spans = append(spans, newSpan(runes, prev, b, valid))
		}
		prev = b
	}

	return spans
}

func newSpan(runes []rune, start, end int, annotations []session.Annotation) Span {
	span := Span{Start: start, End: end, Text: string(runes[start:end])}
	for _, a := range annotations {
		if a.StartOffset <= start && a.EndOffset >= end {
			span.Annotations = append(span.Annotations, a)
		}
	}
	return span
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package annotation

import (
	"errors"
	"fmt"

	"github.com/skypro1111/interview-service/internal/session"
)

var (
	ErrEmptySelection     = errors.New("selection is empty")
	ErrInvalidRange       = errors.New("invalid selection range")
	ErrSegmentOutOfRange  = errors.New("segment index out of range")
	ErrUnknownCode        = errors.New("unknown code")
	ErrNoTranscript       = errors.New("session has no transcript")
	ErrAnnotationNotFound = errors.New("annotation not found")
)

// ApplyCode appends an annotation tagging [start, end) of the segment with
// the code. Offsets are character offsets into the segment text. The
// selected substring is copied into the annotation.
func ApplyCode(s *session.Session, segmentIndex, start, end int, codeID string) (session.Annotation, error) {
	turns := s.Turns()
	if len(turns) == 0 {
		return session.Annotation{}, ErrNoTranscript
	}
	if segmentIndex < 0 || segmentIndex >= len(turns) {
		return session.Annotation{}, fmt.Errorf("%w: %d", ErrSegmentOutOfRange, segmentIndex)
	}
	if start == end {
		return session.Annotation{}, ErrEmptySelection
	}

	text := []rune(turns[segmentIndex].Text)
	if start < 0 || start > end || end > len(text) {
		return session.Annotation{}, fmt.Errorf("%w: [%d, %d) in segment of length %d", ErrInvalidRange, start, end, len(text))
	}

	if _, ok := s.CodeByID(codeID); !ok {
		return session.Annotation{}, fmt.Errorf("%w: %s", ErrUnknownCode, codeID)
	}

	a := session.Annotation{
		ID:           session.NewID(),
		CodeID:       codeID,
		SegmentIndex: segmentIndex,
		StartOffset:  start,
		EndOffset:    end,
		Text:         string(text[start:end]),
	}
	s.Annotations = append(s.Annotations, a)
	return a, nil
}

// RemoveAnnotation removes the annotation with the given id. It reports
// whether anything was removed; removing a missing id is a no-op. Other
// annotations are left untouched.
func RemoveAnnotation(s *session.Session, annotationID string) bool {
	for i, a := range s.Annotations {
		if a.ID == annotationID {
			s.Annotations = append(s.Annotations[:i], s.Annotations[i+1:]...)
			return true
		}
	}
	return false
}

// AnnotationsForSegment returns the annotations attached to one segment in
// creation order.
func AnnotationsForSegment(s *session.Session, segmentIndex int) []session.Annotation {
	var result []session.Annotation
	for _, a := range s.Annotations {
		if a.SegmentIndex == segmentIndex {
			result = append(result, a)
		}
	}
	return result
}

// CountByCode returns how many annotations reference each code id.
func CountByCode(s *session.Session) map[string]int {
	counts := make(map[string]int, len(s.Codes))
	for _, a := range s.Annotations {
		counts[a.CodeID]++
	}
	return counts
}

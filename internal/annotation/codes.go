package annotation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skypro1111/interview-service/internal/session"
)

// ErrEmptyCodeName is returned when a code is created or renamed to blank
var ErrEmptyCodeName = errors.New("code name is required")

// FallbackColor is used for annotations whose code was deleted
const FallbackColor = "#9ca3af"

// Palette is cycled through when a code is created without a color
var Palette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e",
	"#14b8a6", "#3b82f6", "#8b5cf6", "#ec4899",
}

// CreateCode adds a code to the session taxonomy. An empty color picks the
// next palette entry.
func CreateCode(s *session.Session, name, color string) (session.Code, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return session.Code{}, ErrEmptyCodeName
	}
	if color == "" {
		color = Palette[len(s.Codes)%len(Palette)]
	}

	c := session.Code{ID: session.NewID(), Name: name, Color: color}
	s.Codes = append(s.Codes, c)
	return c, nil
}

// RenameCode changes a code's name in place
func RenameCode(s *session.Session, codeID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCodeName
	}
	for i := range s.Codes {
		if s.Codes[i].ID == codeID {
			s.Codes[i].Name = name
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCode, codeID)
}

// DeleteCode removes a code from the taxonomy. Annotations referencing it
// are kept and render with FallbackColor.
func DeleteCode(s *session.Session, codeID string) bool {
	for i, c := range s.Codes {
		if c.ID == codeID {
			s.Codes = append(s.Codes[:i], s.Codes[i+1:]...)
			return true
		}
	}
	return false
}

// ColorFor returns the color of the code referenced by an annotation
func ColorFor(s *session.Session, a session.Annotation) string {
	if c, ok := s.CodeByID(a.CodeID); ok {
		return c.Color
	}
	return FallbackColor
}

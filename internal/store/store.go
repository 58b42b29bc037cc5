package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skypro1111/interview-service/internal/session"
)

// Keys used in the KV backend
const (
	KeySessions = "sessions"
	KeySettings = "settings"
)

// ErrNotFound is returned for unknown session ids
var ErrNotFound = errors.New("session not found")

// AudioReleaser frees the audio resource referenced by a session
type AudioReleaser interface {
	Release(audioURL string) error
}

// Filter selects sessions. Zero fields match everything.
type Filter struct {
	Type  session.Type
	Query string
	From  time.Time
	To    time.Time
}

// Match reports whether s satisfies every set predicate
func (f Filter) Match(s *session.Session) bool {
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && s.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && s.Date.After(f.To) {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		return matchesQuery(s, strings.ToLower(q))
	}
	return true
}

func matchesQuery(s *session.Session, query string) bool {
	if s.Analysis == nil {
		return false
	}
	contains := func(text string) bool {
		return strings.Contains(strings.ToLower(text), query)
	}

	if contains(s.Analysis.Summary) {
		return true
	}
	for _, t := range s.Analysis.Takeaways {
		if contains(t) {
			return true
		}
	}
	for _, turn := range s.Analysis.Transcript {
		if contains(turn.Text) {
			return true
		}
	}
	return false
}

// Store holds sessions and settings in memory and persists every change.
type Store struct {
	kv     KV
	audio  AudioReleaser
	logger *slog.Logger

	mu       sync.RWMutex
	sessions []*session.Session
	settings session.Settings
}

// New creates a store. audio may be nil when sessions carry no recordings.
func New(kv KV, audio AudioReleaser, logger *slog.Logger) *Store {
	return &Store{
		kv:       kv,
		audio:    audio,
		logger:   logger,
		settings: session.DefaultSettings(),
	}
}

// Init loads sessions and settings, falling back to defaults for absent keys
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.kv.Get(KeySessions)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	s.sessions = nil
	if ok {
		if err := json.Unmarshal(data, &s.sessions); err != nil {
			return fmt.Errorf("failed to decode sessions: %w", err)
		}
	}

	data, ok, err = s.kv.Get(KeySettings)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	s.settings = session.DefaultSettings()
	if ok {
		var loaded session.Settings
		if err := json.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("failed to decode settings: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			s.logger.Warn("Stored settings invalid, using defaults", slog.String("error", err.Error()))
		} else {
			s.settings = loaded
		}
	}

	s.logger.Info("Store loaded",
		slog.Int("sessions", len(s.sessions)),
		slog.String("language", string(s.settings.Language)))

	return nil
}

// List returns copies of matching sessions, newest first
func (s *Store) List(filter Filter) []*session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if filter.Match(sess) {
			result = append(result, sess.Clone())
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result
}

// Get returns a copy of the session with id
func (s *Store) Get(id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.sessions[i].Clone(), nil
}

// Add validates and stores a new session
func (s *Store) Add(sess *session.Session) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(sess.ID) >= 0 {
		return fmt.Errorf("session %s already exists", sess.ID)
	}

	s.sessions = append(s.sessions, sess.Clone())
	if err := s.persistSessions(); err != nil {
		s.sessions = s.sessions[:len(s.sessions)-1]
		return err
	}

	s.logger.Info("Session added",
		slog.String("session_id", sess.ID),
		slog.String("type", string(sess.Type)),
		slog.Bool("degraded", sess.Degraded))

	return nil
}

// Update applies fn to a copy of the session and stores the result if fn
// succeeds and the session is still valid.
func (s *Store) Update(id string, fn func(*session.Session) error) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := s.sessions[i].Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = id
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}

	previous := s.sessions[i]
	s.sessions[i] = updated
	if err := s.persistSessions(); err != nil {
		s.sessions[i] = previous
		return nil, err
	}

	return updated.Clone(), nil
}

// Delete removes a session and releases its audio resource
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	removed := s.sessions[i]
	s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
	if err := s.persistSessions(); err != nil {
		s.sessions = append(s.sessions[:i:i], append([]*session.Session{removed}, s.sessions[i:]...)...)
		return err
	}

	if removed.AudioURL != "" && s.audio != nil && !s.audioInUse(removed.AudioURL) {
		if err := s.audio.Release(removed.AudioURL); err != nil {
			s.logger.Warn("Failed to release session audio",
				slog.String("session_id", id),
				slog.String("audio_url", removed.AudioURL),
				slog.String("error", err.Error()))
		}
	}

	s.logger.Info("Session deleted", slog.String("session_id", id))
	return nil
}

// audioInUse reports whether a stored session references audioURL
func (s *Store) audioInUse(audioURL string) bool {
	for _, sess := range s.sessions {
		if sess.AudioURL == audioURL {
			return true
		}
	}
	return false
}

// Settings returns the current settings
func (s *Store) Settings() session.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings validates and persists new settings
func (s *Store) UpdateSettings(settings session.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.kv.Put(KeySettings, data); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	s.settings = settings
	return nil
}

// Count returns the number of stored sessions
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) indexOf(id string) int {
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// persistSessions writes the session list. Caller holds the write lock.
func (s *Store) persistSessions() error {
	sessions := s.sessions
	if sessions == nil {
		sessions = []*session.Session{}
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}
	if err := s.kv.Put(KeySessions, data); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	return nil
}

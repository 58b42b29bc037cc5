package store

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

type fakeReleaser struct {
	released []string
}

func (f *fakeReleaser) Release(audioURL string) error {
	f.released = append(f.released, audioURL)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, kv KV) (*Store, *fakeReleaser) {
	t.Helper()

	releaser := &fakeReleaser{}
	s := New(kv, releaser, testLogger())
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return s, releaser
}

func makeSession(sessionType session.Type, date time.Time, summary string, texts ...string) *session.Session {
	turns := make([]transcript.Turn, len(texts))
	for i, text := range texts {
		turns[i] = transcript.Turn{Speaker: transcript.SpeakerInterviewee, Text: text, StartTime: float64(i)}
	}
	s := session.New(sessionType, time.Minute, &session.AnalysisResult{
		Summary:    summary,
		Takeaways:  []string{"takeaway about " + summary},
		Transcript: turns,
	})
	s.Date = date
	return s
}

func TestInitDefaults(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV())

	if s.Count() != 0 {
		t.Errorf("Expected empty store, got %d sessions", s.Count())
	}
	if s.Settings() != session.DefaultSettings() {
		t.Errorf("Expected default settings, got %+v", s.Settings())
	}
}

func TestInitCorruptSessions(t *testing.T) {
	kv := NewMemoryKV()
	kv.Put(KeySessions, []byte("{not json"))

	s := New(kv, nil, testLogger())
	if err := s.Init(); err == nil {
		t.Error("Expected error for corrupt session list")
	}
}

func TestPersistAcrossInit(t *testing.T) {
	kv := NewMemoryKV()
	s, _ := newTestStore(t, kv)

	sess := makeSession(session.TypeAIInterview, time.Now(), "career change", "I moved cities")
	if err := s.Add(sess); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	settings := session.Settings{
		Language:        session.LanguageUS,
		VoiceGender:     session.VoiceMale,
		PrivacyContract: false,
		InterviewMode:   session.ModeAdvanced,
	}
	if err := s.UpdateSettings(settings); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	reloaded, _ := newTestStore(t, kv)
	if reloaded.Count() != 1 {
		t.Fatalf("Expected 1 session after reload, got %d", reloaded.Count())
	}
	got, err := reloaded.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Analysis.Summary != "career change" {
		t.Errorf("Expected summary to survive reload, got %q", got.Analysis.Summary)
	}
	if reloaded.Settings() != settings {
		t.Errorf("Expected settings %+v, got %+v", settings, reloaded.Settings())
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV())

	sess := makeSession("BOGUS", time.Now(), "x")
	if err := s.Add(sess); err == nil {
		t.Error("Expected error for invalid session type")
	}

	valid := makeSession(session.TypeUploaded, time.Now(), "x")
	if err := s.Add(valid); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Add(valid); err == nil {
		t.Error("Expected error for duplicate id")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV())
	sess := makeSession(session.TypeUploaded, time.Now(), "original")
	s.Add(sess)

	got, _ := s.Get(sess.ID)
	got.Analysis.Summary = "mutated"

	again, _ := s.Get(sess.ID)
	if again.Analysis.Summary != "original" {
		t.Error("Expected stored session to be unaffected by caller mutation")
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV())
	sess := makeSession(session.TypeAIInterview, time.Now(), "summary", "some text here")
	s.Add(sess)

	updated, err := s.Update(sess.ID, func(sess *session.Session) error {
		sess.Codes = append(sess.Codes, session.Code{ID: "c1", Name: "Theme", Color: "#ef4444"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(updated.Codes) != 1 {
		t.Errorf("Expected 1 code, got %d", len(updated.Codes))
	}

	failure := errors.New("boom")
	if _, err := s.Update(sess.ID, func(*session.Session) error { return failure }); !errors.Is(err, failure) {
		t.Errorf("Expected callback error, got %v", err)
	}

	_, err = s.Update(sess.ID, func(sess *session.Session) error {
		sess.Annotations = append(sess.Annotations, session.Annotation{ID: "a", SegmentIndex: 0, StartOffset: 0, EndOffset: 999})
		return nil
	})
	if err == nil {
		t.Error("Expected validation error for out-of-range annotation")
	}

	got, _ := s.Get(sess.ID)
	if len(got.Annotations) != 0 || len(got.Codes) != 1 {
		t.Errorf("Expected failed updates to leave session unchanged, got %+v", got)
	}

	if _, err := s.Update("missing", func(*session.Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReleasesAudio(t *testing.T) {
	s, releaser := newTestStore(t, NewMemoryKV())

	sess := makeSession(session.TypeAIInterview, time.Now(), "with audio")
	sess.AudioURL = "/audio/abc.wav"
	s.Add(sess)

	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(releaser.released) != 1 || releaser.released[0] != "/audio/abc.wav" {
		t.Errorf("Expected audio release, got %v", releaser.released)
	}
	if s.Count() != 0 {
		t.Errorf("Expected empty store, got %d", s.Count())
	}
	if err := s.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteKeepsSharedAudio(t *testing.T) {
	s, releaser := newTestStore(t, NewMemoryKV())

	a := makeSession(session.TypeAIInterview, time.Now(), "first")
	b := makeSession(session.TypeAIInterview, time.Now(), "second")
	a.AudioURL = "/audio/shared.wav"
	b.AudioURL = "/audio/shared.wav"
	s.Add(a)
	s.Add(b)

	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(releaser.released) != 0 {
		t.Errorf("Expected audio kept while another session references it, got %v", releaser.released)
	}

	if err := s.Delete(b.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(releaser.released) != 1 || releaser.released[0] != "/audio/shared.wav" {
		t.Errorf("Expected audio released with its last session, got %v", releaser.released)
	}
}

func TestListFilters(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV())

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	interview := makeSession(session.TypeAIInterview, base, "Leadership journey", "I led a team")
	upload := makeSession(session.TypeUploaded, base.Add(48*time.Hour), "Remote work", "Working from home")
	recorded := makeSession(session.TypeRecorded, base.Add(96*time.Hour), "Hobbies", "I paint on weekends")
	for _, sess := range []*session.Session{interview, upload, recorded} {
		if err := s.Add(sess); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"all newest first", Filter{}, []string{recorded.ID, upload.ID, interview.ID}},
		{"by type", Filter{Type: session.TypeUploaded}, []string{upload.ID}},
		{"summary query", Filter{Query: "LEADERSHIP"}, []string{interview.ID}},
		{"transcript query", Filter{Query: "weekends"}, []string{recorded.ID}},
		{"takeaway query", Filter{Query: "takeaway about remote"}, []string{upload.ID}},
		{"from", Filter{From: base.Add(time.Hour)}, []string{recorded.ID, upload.ID}},
		{"range", Filter{From: base.Add(time.Hour), To: base.Add(72 * time.Hour)}, []string{upload.ID}},
		{"no match", Filter{Query: "astronaut"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.List(tt.filter)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.expected), len(got))
			}
			for i, id := range tt.expected {
				if got[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t, NewMemoryKV())

	if err := s.UpdateSettings(session.Settings{Language: "FR"}); err == nil {
		t.Error("Expected error for invalid settings")
	}
	if s.Settings() != session.DefaultSettings() {
		t.Error("Expected settings unchanged after rejected update")
	}
}

func TestSQLiteKV(t *testing.T) {
	kv, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer kv.Close()

	if _, ok, err := kv.Get("missing"); err != nil || ok {
		t.Errorf("Expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := kv.Put("k", []byte("one")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := kv.Put("k", []byte("two")); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}

	value, ok, err := kv.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(value) != "two" {
		t.Errorf("Expected 'two', got %q", value)
	}
}

func TestSQLiteStoreOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "interviews.sqlite")

	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	s, _ := newTestStore(t, kv)
	sess := makeSession(session.TypeUploaded, time.Now(), "disk")
	if err := s.Add(sess); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	kv.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	s2, _ := newTestStore(t, reopened)
	if _, err := s2.Get(sess.ID); err != nil {
		t.Errorf("Expected session after reopen, got %v", err)
	}
}

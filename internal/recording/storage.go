package recording

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"lukechampine.com/blake3"

	"github.com/skypro1111/interview-service/internal/audio"
)

// ErrInvalidName is returned for names that are not stored recordings
var ErrInvalidName = errors.New("invalid recording name")

// Names are "<owner id>-<first 16 hex digits of the blake3 digest>.wav"
var namePattern = regexp.MustCompile(`^[0-9a-f-]{36}-[0-9a-f]{16}\.wav$`)

var ownerPattern = regexp.MustCompile(`^[0-9a-f-]{36}$`)

// HashReader returns the hex blake3-256 digest of r
func HashReader(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("calculating blake3 hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Storage is a directory of recordings, one file per owning session
type Storage struct {
	dir       string
	urlPrefix string
	logger    *slog.Logger
}

// NewStorage creates the directory if needed. urlPrefix is prepended to
// file names to form session audio URLs, e.g. "/audio/".
func NewStorage(dir, urlPrefix string, logger *slog.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Storage{dir: dir, urlPrefix: urlPrefix, logger: logger}, nil
}

// Save writes a WAV file owned by the session ownerID and returns its URL.
// Identical content saved for two owners gives two files, so releasing one
// never affects the other.
func (s *Storage) Save(ownerID string, wav []byte) (string, error) {
	if !ownerPattern.MatchString(ownerID) {
		return "", fmt.Errorf("%w: owner %q", ErrInvalidName, ownerID)
	}

	info, err := audio.GetWAVInfo(wav)
	if err != nil {
		return "", fmt.Errorf("invalid recording: %w", err)
	}
	if info.BitsPerSample != 16 {
		return "", fmt.Errorf("invalid recording: %d-bit audio, want 16-bit PCM", info.BitsPerSample)
	}

	hash, err := HashReader(bytes.NewReader(wav))
	if err != nil {
		return "", err
	}

	name := ownerID + "-" + hash[:16] + ".wav"
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".recording-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write recording: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close recording: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store recording: %w", err)
	}

	s.logger.Debug("Recording saved",
		slog.String("name", name),
		slog.String("owner_id", ownerID),
		slog.Int("size_bytes", len(wav)),
		slog.Float64("duration_seconds", info.Duration))

	return s.urlPrefix + name, nil
}

// Path resolves a recording name to its file path
func (s *Storage) Path(name string) (string, error) {
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// NameFromURL extracts the recording name from a session audio URL
func (s *Storage) NameFromURL(url string) (string, error) {
	name, ok := strings.CutPrefix(url, s.urlPrefix)
	if !ok || !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, url)
	}
	return name, nil
}

// Release deletes the recording referenced by url. Missing files are not an
// error.
func (s *Storage) Release(url string) error {
	name, err := s.NameFromURL(url)
	if err != nil {
		return err
	}

	path, _ := s.Path(name)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove recording: %w", err)
	}

	s.logger.Debug("Recording released", slog.String("name", name))
	return nil
}

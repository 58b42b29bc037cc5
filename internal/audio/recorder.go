package audio

import (
	"fmt"
	"sync"
	"time"
)

// Recorder accumulates the captured PCM-16 bytes for the session recording.
// Bytes are kept exactly as captured.
type Recorder struct {
	sampleRate int
	pcm        []byte

	startedAt  time.Time
	lastUpdate time.Time
	chunks     uint64

	mu sync.RWMutex
}

// RecorderStats represents recorder statistics for monitoring
type RecorderStats struct {
	SampleRate int           `json:"sample_rate"`
	Chunks     uint64        `json:"chunks"`
	Samples    int           `json:"samples"`
	Duration   time.Duration `json:"duration"`
}

// NewRecorder creates a recorder for mono audio at sampleRate.
func NewRecorder(sampleRate int) *Recorder {
	now := time.Now()
	return &Recorder{
		sampleRate: sampleRate,
		pcm:        make([]byte, 0, sampleRate*bytesPerSample*4), // 4 seconds up front
		startedAt:  now,
		lastUpdate: now,
	}
}

// Write appends one captured chunk of raw PCM-16 little-endian bytes.
func (r *Recorder) Write(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pcm = append(r.pcm, chunk...)
	r.chunks++
	r.lastUpdate = time.Now()
}

// PCM returns a copy of the recorded whole samples. A trailing odd byte
// from a split sample is left out.
func (r *Recorder) PCM() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.pcm) - len(r.pcm)%bytesPerSample
	out := make([]byte, n)
	copy(out, r.pcm[:n])
	return out
}

// Duration returns the recorded audio length.
func (r *Recorder) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.durationLocked()
}

// WAV encodes the recording as a mono WAV file.
func (r *Recorder) WAV() ([]byte, error) {
	pcm := r.PCM()
	if len(pcm) == 0 {
		return nil, fmt.Errorf("recording is empty")
	}
	return EncodeWAV(pcm, r.sampleRate, 1)
}

// GetStats returns current recorder statistics
func (r *Recorder) GetStats() RecorderStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RecorderStats{
		SampleRate: r.sampleRate,
		Chunks:     r.chunks,
		Samples:    len(r.pcm) / bytesPerSample,
		Duration:   r.durationLocked(),
	}
}

func (r *Recorder) durationLocked() time.Duration {
	if r.sampleRate <= 0 {
		return 0
	}
	samples := len(r.pcm) / bytesPerSample
	return time.Duration(float64(samples) / float64(r.sampleRate) * float64(time.Second))
}

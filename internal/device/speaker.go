package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skypro1111/interview-service/internal/audio"
)

// ErrSpeakerClosed is returned by Schedule after Close
var ErrSpeakerClosed = errors.New("speaker closed")

const (
	playbackQueueSize = 256
	chunkDuration     = 20 * time.Millisecond
	writeLead         = 100 * time.Millisecond
)

// Speaker is a playback clock and sink writing PCM-16 to an io.Writer,
// usually the stdin of a playback process.
type Speaker struct {
	sampleRate int
	out        io.Writer
	logger     *slog.Logger
	start      time.Time

	queue     chan *playback
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	cmd   *exec.Cmd
	stdin io.WriteCloser

	// Statistics
	buffersPlayed  atomic.Uint64
	buffersStopped atomic.Uint64
	bytesWritten   atomic.Uint64
}

// SpeakerStats represents playback statistics
type SpeakerStats struct {
	SampleRate     int    `json:"sample_rate"`
	BuffersPlayed  uint64 `json:"buffers_played"`
	BuffersStopped uint64 `json:"buffers_stopped"`
	BytesWritten   uint64 `json:"bytes_written"`
	Queued         int    `json:"queued"`
}

type playback struct {
	pcm     []byte
	at      float64
	done    func()
	stopped atomic.Bool
}

// Stop cancels the playback; done is not called afterwards
func (p *playback) Stop() {
	p.stopped.Store(true)
}

// NewSpeaker creates a speaker writing mono PCM-16 at sampleRate to out
func NewSpeaker(out io.Writer, sampleRate int, logger *slog.Logger) *Speaker {
	s := &Speaker{
		sampleRate: sampleRate,
		out:        out,
		logger:     logger,
		start:      time.Now(),
		queue:      make(chan *playback, playbackQueueSize),
		closed:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.playLoop()
	return s
}

// OpenSpeaker starts the playback process and returns a speaker feeding it
func OpenSpeaker(ctx context.Context, config CommandConfig, logger *slog.Logger) (*Speaker, error) {
	path, err := config.lookPath()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, config.ExpandArgs()...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open playback stdin: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open playback stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", ErrDeviceUnavailable, config.Command, err)
	}
	go logLines(logger, config.Command, stderr)

	s := NewSpeaker(stdin, config.SampleRate, logger)
	s.cmd = cmd
	s.stdin = stdin

	logger.Info("Speaker started",
		slog.String("command", config.String()),
		slog.Int("sample_rate", config.SampleRate))
	return s, nil
}

// Now returns seconds on the playback clock
func (s *Speaker) Now() float64 {
	return time.Since(s.start).Seconds()
}

// Schedule queues buf to start at the given clock time
func (s *Speaker) Schedule(buf *audio.FloatBuffer, at float64, done func()) (audio.Source, error) {
	select {
	case <-s.closed:
		return nil, ErrSpeakerClosed
	default:
	}

	samples := Resample(Mixdown(buf), buf.SampleRate, s.sampleRate)
	p := &playback{
		pcm:  audio.EncodeSamples(samples),
		at:   at,
		done: done,
	}

	select {
	case s.queue <- p:
		return p, nil
	case <-s.closed:
		return nil, ErrSpeakerClosed
	default:
		return nil, fmt.Errorf("playback queue full (%d buffers)", playbackQueueSize)
	}
}

func (s *Speaker) playLoop() {
	defer s.wg.Done()

	chunkBytes := int(float64(s.sampleRate)*chunkDuration.Seconds()) * 2
	if chunkBytes <= 0 {
		chunkBytes = 2
	}

	for {
		select {
		case <-s.closed:
			return
		case p := <-s.queue:
			s.play(p, chunkBytes)
		}
	}
}

func (s *Speaker) play(p *playback, chunkBytes int) {
	if p.stopped.Load() {
		s.buffersStopped.Add(1)
		return
	}

	bytesPerSecond := float64(s.sampleRate * 2)
	for offset := 0; offset < len(p.pcm); offset += chunkBytes {
		target := p.at + float64(offset)/bytesPerSecond - writeLead.Seconds()
		if !s.sleepUntil(target) {
			return
		}
		if p.stopped.Load() {
			s.buffersStopped.Add(1)
			return
		}

		end := min(offset+chunkBytes, len(p.pcm))
		n, err := s.out.Write(p.pcm[offset:end])
		s.bytesWritten.Add(uint64(n))
		if err != nil {
			s.logger.Warn("Playback write failed", slog.String("error", err.Error()))
			return
		}
	}

	if !s.sleepUntil(p.at + float64(len(p.pcm))/bytesPerSecond) {
		return
	}
	if p.stopped.Load() {
		s.buffersStopped.Add(1)
		return
	}

	s.buffersPlayed.Add(1)
	if p.done != nil {
		p.done()
	}
}

// sleepUntil waits for a clock time and reports false if the speaker closed
func (s *Speaker) sleepUntil(at float64) bool {
	wait := time.Duration((at - s.Now()) * float64(time.Second))
	if wait <= 0 {
		select {
		case <-s.closed:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.closed:
		return false
	}
}

// GetStats returns playback statistics
func (s *Speaker) GetStats() SpeakerStats {
	return SpeakerStats{
		SampleRate:     s.sampleRate,
		BuffersPlayed:  s.buffersPlayed.Load(),
		BuffersStopped: s.buffersStopped.Load(),
		BytesWritten:   s.bytesWritten.Load(),
		Queued:         len(s.queue),
	}
}

// Close stops playback and the playback process
func (s *Speaker) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	s.wg.Wait()

	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	return nil
}

// Mixdown averages all channels into one
func Mixdown(buf *audio.FloatBuffer) []float32 {
	if buf == nil || len(buf.Channels) == 0 {
		return nil
	}
	if len(buf.Channels) == 1 {
		return buf.Channels[0]
	}

	frames := buf.Frames()
	mono := make([]float32, frames)
	scale := 1 / float32(len(buf.Channels))
	for _, channel := range buf.Channels {
		for i := 0; i < frames && i < len(channel); i++ {
			mono[i] += channel[i] * scale
		}
	}
	return mono
}

// Resample converts samples between rates by linear interpolation
func Resample(samples []float32, from, to int) []float32 {
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return samples
	}

	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}

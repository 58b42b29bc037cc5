package audio

import (
	"sync"
	"testing"
)

type fakeClock struct {
	mu  sync.Mutex
	now float64
}

func (c *fakeClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type fakeSource struct {
	at      float64
	done    func()
	stopped bool
}

func (s *fakeSource) Stop() {
	s.stopped = true
}

type fakeSink struct {
	sources []*fakeSource
}

func (s *fakeSink) Schedule(buf *FloatBuffer, at float64, done func()) (Source, error) {
	source := &fakeSource{at: at, done: done}
	s.sources = append(s.sources, source)
	return source, nil
}

// bufferOf creates a silent mono buffer lasting seconds at 24kHz
func bufferOf(seconds float64) *FloatBuffer {
	frames := int(seconds * PlaybackSampleRate)
	return &FloatBuffer{
		SampleRate: PlaybackSampleRate,
		Channels:   [][]float32{make([]float32, frames)},
	}
}

func TestSchedulerBackToBack(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink)

	durations := []float64{1.0, 0.5, 2.0}
	expected := []float64{0, 1.0, 1.5}

	for i, d := range durations {
		start, err := s.Enqueue(bufferOf(d))
		if err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
		if start != expected[i] {
			t.Errorf("Buffer %d: expected start %.3f, got %.3f", i, expected[i], start)
		}
	}

	if s.NextStartTime() != 3.5 {
		t.Errorf("Expected next start time 3.5, got %.3f", s.NextStartTime())
	}

	if s.ActiveSources() != 3 {
		t.Errorf("Expected 3 active sources, got %d", s.ActiveSources())
	}
}

func TestSchedulerCatchesUpWithClock(t *testing.T) {
	clock := &fakeClock{}
	s := NewScheduler(clock, &fakeSink{})

	if _, err := s.Enqueue(bufferOf(1.0)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// playback drained and the clock moved past the schedule
	clock.Set(5.0)

	start, err := s.Enqueue(bufferOf(0.5))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if start != 5.0 {
		t.Errorf("Expected start at current clock 5.0, got %.3f", start)
	}
}

func TestSchedulerNaturalCompletion(t *testing.T) {
	sink := &fakeSink{}
	s := NewScheduler(&fakeClock{}, sink)

	s.Enqueue(bufferOf(1.0))
	s.Enqueue(bufferOf(1.0))

	sink.sources[0].done()
	if s.ActiveSources() != 1 {
		t.Errorf("Expected 1 active source after completion, got %d", s.ActiveSources())
	}

	sink.sources[1].done()
	if s.ActiveSources() != 0 {
		t.Errorf("Expected 0 active sources, got %d", s.ActiveSources())
	}
}

func TestSchedulerInterrupt(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink)

	s.Enqueue(bufferOf(2.0))
	s.Enqueue(bufferOf(2.0))

	clock.Set(0.75)
	stopped := s.Interrupt()

	if stopped != 2 {
		t.Errorf("Expected 2 stopped sources, got %d", stopped)
	}
	for i, source := range sink.sources {
		if !source.stopped {
			t.Errorf("Source %d was not stopped", i)
		}
	}
	if s.ActiveSources() != 0 {
		t.Errorf("Expected no active sources, got %d", s.ActiveSources())
	}
	if s.NextStartTime() != 0.75 {
		t.Errorf("Expected next start time 0.75, got %.3f", s.NextStartTime())
	}

	start, err := s.Enqueue(bufferOf(1.0))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if start != 0.75 {
		t.Errorf("Expected immediate start at 0.75, got %.3f", start)
	}

	// completion callbacks of interrupted sources are harmless
	sink.sources[0].done()
	if s.ActiveSources() != 1 {
		t.Errorf("Expected 1 active source, got %d", s.ActiveSources())
	}
}

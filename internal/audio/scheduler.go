package audio

import (
	"fmt"
	"sync"
)

// Clock reports the playback clock in seconds.
type Clock interface {
	Now() float64
}

// Source is a handle to one scheduled playback.
type Source interface {
	Stop()
}

// Sink plays buffers at a point on the playback clock. done is invoked once
// when the buffer finishes playing naturally; it must not be called
// synchronously from Schedule.
type Sink interface {
	Schedule(buf *FloatBuffer, at float64, done func()) (Source, error)
}

// Scheduler queues decoded buffers for gapless sequential playback and
// supports stopping everything on barge-in.
type Scheduler struct {
	clock Clock
	sink  Sink

	nextStartTime float64
	active        map[uint64]Source
	lastID        uint64

	mu sync.Mutex
}

// NewScheduler creates a scheduler over a playback clock and sink.
func NewScheduler(clock Clock, sink Sink) *Scheduler {
	return &Scheduler{
		clock:  clock,
		sink:   sink,
		active: make(map[uint64]Source),
	}
}

// Enqueue schedules buf to start right after the previously enqueued
// buffer, or immediately if playback has caught up. It returns the
// scheduled start time.
func (s *Scheduler) Enqueue(buf *FloatBuffer) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.nextStartTime
	if now := s.clock.Now(); now > start {
		start = now
	}

	s.lastID++
	id := s.lastID

	source, err := s.sink.Schedule(buf, start, func() { s.release(id) })
	if err != nil {
		return 0, fmt.Errorf("failed to schedule playback: %w", err)
	}

	s.nextStartTime = start + buf.Duration()
	s.active[id] = source

	return start, nil
}

// Interrupt stops every in-flight source and resets the schedule to the
// current clock reading. It returns the number of sources stopped.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	stopped := s.active
	s.active = make(map[uint64]Source)
	s.nextStartTime = s.clock.Now()
	s.mu.Unlock()

	// Stop outside the lock; a sink may report completion while stopping.
	for _, source := range stopped {
		source.Stop()
	}

	return len(stopped)
}

// ActiveSources returns the number of scheduled or playing sources.
func (s *Scheduler) ActiveSources() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// NextStartTime returns the clock time at which the next buffer would start
// if playback has not caught up.
func (s *Scheduler) NextStartTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStartTime
}

func (s *Scheduler) release(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

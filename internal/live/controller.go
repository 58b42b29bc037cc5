package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skypro1111/interview-service/internal/audio"
	"github.com/skypro1111/interview-service/internal/interview"
	"github.com/skypro1111/interview-service/internal/metrics"
	"github.com/skypro1111/interview-service/internal/protocol"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
	"github.com/skypro1111/interview-service/internal/vad"
)

// microphoneInUse guards the single microphone across controllers.
var microphoneInUse atomic.Bool

// State is the controller lifecycle state
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateEnded
	StateFailed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateEnded:
		return "ENDED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateEnded || s == StateFailed
}

// Microphone is the exclusive capture device. Acquire fails with an error
// wrapping ErrPermissionDenied when capture is not allowed. Start delivers
// raw PCM-16 little-endian mono chunks at the capture sample rate.
type Microphone interface {
	Acquire(ctx context.Context) error
	Start(ctx context.Context) (<-chan []byte, error)
	Release() error
}

// Transport is one open connection to the speech model
type Transport interface {
	Send(packet audio.WireAudioPacket) error
	Receive() (*protocol.ServerMessage, error)
	Close() error
}

// Dialer opens a transport and sends the setup payload
type Dialer interface {
	Dial(ctx context.Context, setup protocol.SetupMessage) (Transport, error)
}

// DialerFunc adapts a function to Dialer
type DialerFunc func(ctx context.Context, setup protocol.SetupMessage) (Transport, error)

// Dial calls f
func (f DialerFunc) Dial(ctx context.Context, setup protocol.SetupMessage) (Transport, error) {
	return f(ctx, setup)
}

// Speaker is the playback device: a clock plus a sink for scheduled buffers
type Speaker interface {
	audio.Clock
	audio.Sink
}

// Config holds controller settings
type Config struct {
	Model       string
	SampleRate  int           // capture sample rate
	FrameSize   int           // samples per sent frame
	IdleTimeout time.Duration // zero disables the liveness check
	EventBuffer int

	// Input meter settings
	VoiceThreshold float32
	LevelDecay     float32
}

// Result is what a concluded session yields
type Result struct {
	Turns     []transcript.Turn
	Duration  time.Duration
	Recording []byte // WAV of the captured microphone audio, nil if nothing was captured
}

// Snapshot is a read-only view of the controller
type Snapshot struct {
	State          State
	Err            error
	Turns          []transcript.Turn
	Pending        *transcript.Turn
	Elapsed        time.Duration
	InputLevel     float64 // dBFS
	Speaking       bool
	FramesSent     uint64
	FramesCaptured uint64
	QueueDepth     int
	ActivePlayback int
}

// Controller drives one live interview session. It is single-use.
type Controller struct {
	config   Config
	settings session.Settings
	mic      Microphone
	dialer   Dialer
	speaker  Speaker
	metrics  *metrics.Metrics
	logger   *slog.Logger

	assembler *transcript.Assembler
	scheduler *audio.Scheduler
	framer    *audio.Framer
	recorder  *audio.Recorder
	meter     *vad.Processor
	queue     *sendQueue
	events    chan Event

	// Processing control
	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}

	framesSent  atomic.Uint64
	lastMessage atomic.Int64 // unix nanos

	mu         sync.Mutex
	state      State
	err        error
	transport  Transport
	startedAt  time.Time
	inputLevel float64
	speaking   bool
	holdsMic   bool
	result     *Result
}

// NewController creates an idle controller for one session.
func NewController(config Config, settings session.Settings, mic Microphone, dialer Dialer, speaker Speaker, m *metrics.Metrics, logger *slog.Logger) (*Controller, error) {
	if config.SampleRate <= 0 {
		config.SampleRate = audio.CaptureSampleRate
	}
	if config.FrameSize <= 0 {
		config.FrameSize = audio.DefaultFrameSize
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 256
	}
	if config.VoiceThreshold == 0 {
		config.VoiceThreshold = 0.02
	}
	if config.LevelDecay == 0 {
		config.LevelDecay = 0.8
	}

	meter, err := vad.NewProcessor(config.VoiceThreshold, config.LevelDecay)
	if err != nil {
		return nil, fmt.Errorf("failed to create input meter: %w", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())

	c := &Controller{
		config:     config,
		settings:   settings,
		mic:        mic,
		dialer:     dialer,
		speaker:    speaker,
		metrics:    m,
		logger:     logger,
		scheduler:  audio.NewScheduler(speaker, speaker),
		framer:     audio.NewFramer(config.FrameSize),
		recorder:   audio.NewRecorder(config.SampleRate),
		meter:      meter,
		queue:      newSendQueue(),
		events:     make(chan Event, config.EventBuffer),
		runCtx:     runCtx,
		runCancel:  runCancel,
		done:       make(chan struct{}),
		inputLevel: vad.SilenceFloor,
	}

	c.assembler = transcript.NewAssembler(c.elapsed)
	c.assembler.OnTurn(c.onTurn)

	return c, nil
}

// Events returns the event feed. Events are dropped when the buffer is full.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Done is closed once the controller reaches ENDED or FAILED and has
// released its resources.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure cause once FAILED
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Snapshot returns a consistent view of the session
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:          c.state,
		Err:            c.err,
		Turns:          c.assembler.Turns(),
		InputLevel:     c.inputLevel,
		Speaking:       c.speaking,
		FramesSent:     c.framesSent.Load(),
		FramesCaptured: c.framer.FramesEmitted(),
		QueueDepth:     c.queue.Len(),
		ActivePlayback: c.scheduler.ActiveSources(),
	}
	if pending, ok := c.assembler.Pending(); ok {
		snap.Pending = &pending
	}
	if !c.startedAt.IsZero() {
		snap.Elapsed = time.Since(c.startedAt)
	}
	return snap
}

// Start acquires the microphone and opens the transport. The session turns
// ACTIVE asynchronously when the model acknowledges setup.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, state)
	}
	if !microphoneInUse.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return ErrSessionBusy
	}
	c.holdsMic = true
	c.state = StateConnecting
	c.mu.Unlock()

	c.metrics.RecordLiveSessionStarted()
	c.emit(Event{Kind: EventStateChanged, State: StateConnecting})

	c.logger.Info("Starting live session",
		slog.String("language", string(c.settings.Language)),
		slog.String("voice_gender", string(c.settings.VoiceGender)),
		slog.String("interview_mode", string(c.settings.InterviewMode)),
	)

	if err := c.mic.Acquire(ctx); err != nil {
		if !errors.Is(err, ErrPermissionDenied) {
			err = fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		c.fail(err, "permission")
		return err
	}

	setup := interview.Setup(c.config.Model, c.settings)

	transport, err := c.dialer.Dial(ctx, setup)
	if err != nil {
		terr := &TransportError{Op: "dial", Err: err}
		c.fail(terr, "transport")
		return terr
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Concluded while dialing.
		c.mu.Unlock()
		transport.Close()
		return fmt.Errorf("%w: session ended while connecting", ErrInvalidState)
	}
	c.transport = transport
	c.touch()
	c.wg.Add(1)
	go c.receiveLoop(transport)
	if c.config.IdleTimeout > 0 {
		c.wg.Add(1)
		go c.watchIdle()
	}
	c.mu.Unlock()

	return nil
}

// Conclude ends the session: it finalizes the in-progress turn, closes the
// transport, stops capture and releases the microphone. Calling it again
// returns the same result. An empty turn list means there is nothing to save.
func (c *Controller) Conclude() (*Result, error) {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: session not started", ErrInvalidState)
	case StateFailed:
		c.mu.Unlock()
		<-c.done
		return nil, c.Err()
	case StateEnded:
		c.mu.Unlock()
		<-c.done
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.result, nil
	}

	c.state = StateEnded
	turns := c.assembler.FinalizeAndDrain()
	var duration time.Duration
	if !c.startedAt.IsZero() {
		duration = time.Since(c.startedAt)
	}
	c.mu.Unlock()

	c.teardown()
	c.wg.Wait()

	// A partial frame was recorded but never sent
	if rest := c.framer.Flush(); len(rest) > 0 {
		c.logger.Debug("Dropping partial capture frame", slog.Int("samples", len(rest)))
	}

	result := &Result{Turns: turns, Duration: duration}
	if c.recorder.Duration() > 0 {
		wav, err := c.recorder.WAV()
		if err != nil {
			c.logger.Warn("Failed to encode session recording", slog.String("error", err.Error()))
		} else {
			result.Recording = wav
		}
	}

	c.mu.Lock()
	c.result = result
	c.mu.Unlock()

	c.metrics.RecordLiveSessionEnded(duration.Seconds())
	c.releaseMic()

	stats := c.recorder.GetStats()
	meterStats := c.meter.GetStats()
	c.logger.Info("Live session concluded",
		slog.Int("turns", len(turns)),
		slog.Duration("duration", duration),
		slog.Uint64("frames_captured", c.framer.FramesEmitted()),
		slog.Uint64("frames_sent", c.framesSent.Load()),
		slog.Float64("recorded_seconds", stats.Duration.Seconds()),
		slog.Float64("voice_percentage", meterStats.VoicePercentage),
	)

	c.emit(Event{Kind: EventStateChanged, State: StateEnded})
	close(c.done)

	return result, nil
}

// fail moves a non-terminal session to FAILED. Turns are discarded.
func (c *Controller) fail(err error, reason string) {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	c.state = StateFailed
	c.err = err
	c.mu.Unlock()

	c.logger.Error("Live session failed",
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)

	c.teardown()
	c.metrics.RecordLiveSessionFailed(reason)
	c.releaseMic()

	c.emit(Event{Kind: EventStateChanged, State: StateFailed, Err: err})

	// Wait for workers off the calling goroutine, which may be one of them.
	go func() {
		c.wg.Wait()
		close(c.done)
	}()
}

// teardown stops all I/O. Safe to call more than once.
func (c *Controller) teardown() {
	c.runCancel()
	c.queue.Close()

	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()

	if transport != nil {
		if err := transport.Close(); err != nil {
			c.logger.Debug("Error closing transport", slog.String("error", err.Error()))
		}
	}

	if stopped := c.scheduler.Interrupt(); stopped > 0 {
		c.logger.Debug("Stopped playback", slog.Int("sources", stopped))
	}
}

func (c *Controller) releaseMic() {
	c.mu.Lock()
	holds := c.holdsMic
	c.holdsMic = false
	c.mu.Unlock()

	if !holds {
		return
	}
	if err := c.mic.Release(); err != nil {
		c.logger.Warn("Error releasing microphone", slog.String("error", err.Error()))
	}
	microphoneInUse.Store(false)
}

func (c *Controller) elapsed() time.Duration {
	if c.startedAt.IsZero() {
		return 0
	}
	return time.Since(c.startedAt)
}

func (c *Controller) touch() {
	c.lastMessage.Store(time.Now().UnixNano())
}

func (c *Controller) emit(event Event) {
	event.Time = time.Now()
	select {
	case c.events <- event:
	default:
		c.logger.Debug("Event feed full, dropping event", slog.String("kind", event.Kind.String()))
	}
}

// onTurn runs inside the assembler, with c.mu held.
func (c *Controller) onTurn(turn transcript.Turn) {
	c.metrics.RecordTurnFinalized(string(turn.Speaker))
	c.logger.Debug("Turn finalized",
		slog.String("speaker", string(turn.Speaker)),
		slog.Float64("start_time", turn.StartTime),
		slog.Int("length", len(turn.Text)),
	)
	c.emit(Event{Kind: EventTurn, Turn: turn})
}

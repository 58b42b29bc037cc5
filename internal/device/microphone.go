package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

const readChunkSize = 4096

// Microphone captures PCM from an external process
type Microphone struct {
	config CommandConfig
	logger *slog.Logger

	mu       sync.Mutex
	path     string
	cmd      *exec.Cmd
	acquired bool
	stop     chan struct{}
	done     chan struct{}
}

// NewMicrophone creates a microphone for the given capture command
func NewMicrophone(config CommandConfig, logger *slog.Logger) *Microphone {
	return &Microphone{
		config: config,
		logger: logger,
	}
}

// Acquire checks that the capture command exists. It does not start
// recording.
func (m *Microphone) Acquire(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acquired {
		return fmt.Errorf("microphone already acquired")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := m.config.lookPath()
	if err != nil {
		return err
	}

	m.path = path
	m.acquired = true
	m.logger.Debug("Microphone acquired", slog.String("command", m.config.String()))
	return nil
}

// Start launches the capture process and streams its stdout. The channel
// is closed when the process exits or Release is called.
func (m *Microphone) Start(ctx context.Context) (<-chan []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.acquired {
		return nil, fmt.Errorf("microphone not acquired")
	}
	if m.cmd != nil {
		return nil, fmt.Errorf("microphone already started")
	}

	cmd := exec.CommandContext(ctx, m.path, m.config.ExpandArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open capture stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open capture stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", ErrDeviceUnavailable, m.config.Command, err)
	}

	m.cmd = cmd
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	out := make(chan []byte, 16)
	go logLines(m.logger, m.config.Command, stderr)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		m.readLoop(stdout, out, m.stop)
	}()
	go func() {
		// Wait closes stdout, so reads must finish first
		<-readDone
		err := cmd.Wait()
		close(m.done)
		if err != nil && ctx.Err() == nil {
			m.logger.Debug("Capture process exited", slog.String("error", err.Error()))
		}
	}()

	m.logger.Info("Microphone started",
		slog.String("command", m.config.String()),
		slog.Int("sample_rate", m.config.SampleRate))
	return out, nil
}

func (m *Microphone) readLoop(r io.Reader, out chan<- []byte, stop <-chan struct{}) {
	defer close(out)

	for {
		buf := make([]byte, readChunkSize)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case out <- buf[:n]:
			case <-stop:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.logger.Debug("Capture read ended", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// Release stops the capture process. It is safe to call more than once.
func (m *Microphone) Release() error {
	m.mu.Lock()
	cmd := m.cmd
	stop := m.stop
	done := m.done
	m.cmd = nil
	m.acquired = false
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	close(stop)

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop capture process: %w", err)
	}
	<-done

	m.logger.Debug("Microphone released")
	return nil
}

package live

import (
	"errors"
	"log/slog"
	"time"

	"github.com/skypro1111/interview-service/internal/audio"
	"github.com/skypro1111/interview-service/internal/protocol"
	"github.com/skypro1111/interview-service/internal/transcript"
)

// receiveLoop reads inbound messages until the transport fails or closes.
func (c *Controller) receiveLoop(transport Transport) {
	defer c.wg.Done()

	for {
		msg, err := transport.Receive()
		if err != nil {
			if c.State().Terminal() {
				return
			}
			c.fail(&TransportError{Op: "receive", Err: err}, "transport")
			return
		}

		c.touch()
		c.metrics.RecordMessageReceived()
		if err := c.handleMessage(msg); err != nil {
			c.fail(err, "device")
			return
		}
	}
}

// handleMessage dispatches every case present on one message. Messages
// arriving after the session ended are dropped. The returned error means
// capture could not start.
func (c *Controller) handleMessage(msg *protocol.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return nil
	}

	if msg.SetupComplete != nil && c.state == StateConnecting {
		if err := c.activateLocked(); err != nil {
			return err
		}
	}

	if msg.GoAway != nil {
		c.logger.Warn("Model announced disconnect", slog.String("time_left", msg.GoAway.TimeLeft))
	}

	events := msg.Events()
	if len(events) == 0 {
		return nil
	}
	if c.state != StateActive {
		c.logger.Debug("Dropping content received before setup completed", slog.Int("events", len(events)))
		return nil
	}

	for _, event := range events {
		switch event.Kind {
		case protocol.EventInterrupted:
			stopped := c.scheduler.Interrupt()
			c.metrics.RecordInterruption()
			c.logger.Debug("Playback interrupted", slog.Int("stopped_sources", stopped))

		case protocol.EventAudio:
			c.playAudio(event)

		case protocol.EventOutputTranscript:
			c.assembler.OnFragment(transcript.ClassModel, event.Text)
			c.emitPartialLocked()

		case protocol.EventInputTranscript:
			c.assembler.OnFragment(transcript.ClassParticipant, event.Text)
			c.emitPartialLocked()

		case protocol.EventTurnComplete:
			c.assembler.OnTurnBoundary()
		}
	}
	return nil
}

// playAudio decodes one audio payload and schedules it. Malformed payloads
// are logged and dropped; the session continues.
func (c *Controller) playAudio(event protocol.Event) {
	data, err := audio.FromTransportText(event.Data)
	if err == nil {
		var buf *audio.FloatBuffer
		buf, err = audio.DecodeToFloatBuffer(data, event.SampleRate, 1)
		if err == nil {
			if _, err := c.scheduler.Enqueue(buf); err != nil {
				c.logger.Warn("Failed to schedule playback", slog.String("error", err.Error()))
				return
			}
			c.metrics.RecordAudioReceived(buf.Duration())
			return
		}
	}

	if errors.Is(err, audio.ErrMalformedAudioData) {
		c.metrics.RecordMalformedAudio()
	}
	c.logger.Warn("Dropping malformed audio packet",
		slog.Int("payload_length", len(event.Data)),
		slog.String("error", err.Error()),
	)
}

func (c *Controller) emitPartialLocked() {
	if pending, ok := c.assembler.Pending(); ok {
		c.emit(Event{Kind: EventPartial, Turn: pending})
	}
}

// activateLocked moves CONNECTING to ACTIVE and starts capture. Caller
// holds c.mu.
func (c *Controller) activateLocked() error {
	frames, err := c.mic.Start(c.runCtx)
	if err != nil {
		return err
	}

	c.state = StateActive
	c.startedAt = time.Now()

	c.wg.Add(2)
	go c.captureLoop(frames)
	go c.sendLoop(c.transport)

	c.logger.Info("Live session active",
		slog.Int("sample_rate", c.config.SampleRate),
		slog.Int("frame_size", c.config.FrameSize),
	)
	c.emit(Event{Kind: EventStateChanged, State: StateActive})
	return nil
}

// captureLoop frames captured audio, records it, meters it, and queues it
// for sending without waiting on the transport.
func (c *Controller) captureLoop(chunks <-chan []byte) {
	defer c.wg.Done()

	for {
		select {
		case <-c.runCtx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				if !c.State().Terminal() {
					c.logger.Warn("Microphone stream ended")
				}
				return
			}
			c.recorder.Write(chunk)
			for _, frame := range c.framer.Write(chunk) {
				c.handleFrame(frame)
			}
		}
	}
}

func (c *Controller) handleFrame(frame []float32) {
	if result, err := c.meter.Process(frame); err == nil {
		c.mu.Lock()
		c.inputLevel = result.DBFS
		c.speaking = result.HasVoice
		c.mu.Unlock()

		c.metrics.SetInputLevel(result.DBFS)
		c.emit(Event{Kind: EventLevel, Level: result.DBFS, Speaking: result.HasVoice})
	}

	if c.queue.Push(audio.NewWirePacket(frame)) {
		c.metrics.SetSendQueueDepth(c.queue.Len())
	}
}

// sendLoop drains the send queue to the transport. A send error is a
// transport failure and ends the session.
func (c *Controller) sendLoop(transport Transport) {
	defer c.wg.Done()

	for {
		packet, ok := c.queue.Pop(c.runCtx)
		if !ok {
			return
		}

		if err := transport.Send(packet); err != nil {
			c.metrics.RecordSendError()
			if c.State().Terminal() {
				return
			}
			c.fail(&TransportError{Op: "send", Err: err}, "transport")
			return
		}

		c.framesSent.Add(1)
		c.metrics.RecordFrameSent()
		c.metrics.SetSendQueueDepth(c.queue.Len())
	}
}

// watchIdle fails the session when no inbound message arrives within the
// configured idle timeout.
func (c *Controller) watchIdle() {
	defer c.wg.Done()

	interval := c.config.IdleTimeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.runCtx.Done():
			return
		case <-ticker.C:
			last := time.Unix(0, c.lastMessage.Load())
			if time.Since(last) > c.config.IdleTimeout {
				c.fail(&TransportError{Op: "idle", Err: ErrIdleTimeout}, "idle_timeout")
				return
			}
		}
	}
}

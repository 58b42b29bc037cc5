package audio

import "sync/atomic"

// DefaultFrameSize is the number of samples per captured block.
const DefaultFrameSize = 4096

// Framer cuts a raw PCM-16 mono byte stream into fixed-size float frames.
// Partial samples and partial frames are carried over between writes.
type Framer struct {
	frameSize int
	pending   []float32
	carry     []byte

	framesEmitted atomic.Uint64
}

// NewFramer creates a framer producing frames of frameSize samples.
func NewFramer(frameSize int) *Framer {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	return &Framer{
		frameSize: frameSize,
		pending:   make([]float32, 0, frameSize),
	}
}

// Write consumes captured bytes and returns every frame completed by them.
func (f *Framer) Write(data []byte) [][]float32 {
	if len(f.carry) > 0 {
		data = append(f.carry, data...)
		f.carry = nil
	}

	usable := len(data) - len(data)%bytesPerSample
	if usable < len(data) {
		f.carry = append([]byte(nil), data[usable:]...)
	}
	if usable == 0 {
		return nil
	}

	// usable is a whole number of mono samples, so decoding cannot fail
	buf, err := DecodeToFloatBuffer(data[:usable], 0, 1)
	if err != nil {
		return nil
	}

	var frames [][]float32
	for _, sample := range buf.Channels[0] {
		f.pending = append(f.pending, sample)

		if len(f.pending) == f.frameSize {
			frames = append(frames, f.pending)
			f.pending = make([]float32, 0, f.frameSize)
			f.framesEmitted.Add(1)
		}
	}

	return frames
}

// Flush returns any buffered samples as a short final frame.
func (f *Framer) Flush() []float32 {
	if len(f.pending) == 0 {
		return nil
	}
	frame := f.pending
	f.pending = make([]float32, 0, f.frameSize)
	f.carry = nil
	f.framesEmitted.Add(1)
	return frame
}

// FrameSize returns the configured number of samples per frame.
func (f *Framer) FrameSize() int {
	return f.frameSize
}

// FramesEmitted returns the total number of frames produced. Safe to call
// from any goroutine.
func (f *Framer) FramesEmitted() uint64 {
	return f.framesEmitted.Load()
}

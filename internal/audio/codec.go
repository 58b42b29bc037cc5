package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// Audio format constants for the live transport
const (
	CaptureSampleRate  = 16000 // microphone audio sent to the model
	PlaybackSampleRate = 24000 // synthesized audio received from the model

	WireFormat      = "pcm16@16kHz"
	CaptureMIMEType = "audio/pcm;rate=16000"

	bytesPerSample = 2
)

// ErrMalformedAudioData is returned when PCM bytes cannot be decoded.
var ErrMalformedAudioData = errors.New("malformed audio data")

// WireAudioPacket is an encoded block of captured audio ready for the transport.
type WireAudioPacket struct {
	Payload string `json:"payload"`
	Format  string `json:"format"`
}

// MIMEType returns the MIME type the transport expects for this packet.
func (p WireAudioPacket) MIMEType() string {
	return CaptureMIMEType
}

// FloatBuffer holds de-interleaved float samples, one slice per channel.
type FloatBuffer struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of sample frames in the buffer.
func (b *FloatBuffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback duration in seconds.
func (b *FloatBuffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// EncodeSamples quantizes float samples in [-1, 1] to signed 16-bit
// little-endian PCM. The conversion is lossy.
func EncodeSamples(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		v := float64(s) * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(int16(v)))
	}
	return out
}

// ToTransportText maps raw bytes to base64 text for the JSON transport.
func ToTransportText(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromTransportText reverses ToTransportText.
func FromTransportText(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid transport encoding: %v", ErrMalformedAudioData, err)
	}
	return data, nil
}

// NewWirePacket encodes captured samples into a transport packet.
func NewWirePacket(samples []float32) WireAudioPacket {
	return WireAudioPacket{
		Payload: ToTransportText(EncodeSamples(samples)),
		Format:  WireFormat,
	}
}

// DecodeToFloatBuffer converts interleaved PCM-16 little-endian bytes into
// a float buffer, dividing each sample by 32768.
func DecodeToFloatBuffer(data []byte, sampleRate, channels int) (*FloatBuffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrMalformedAudioData, channels)
	}

	frameBytes := bytesPerSample * channels
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedAudioData, len(data), frameBytes)
	}

	frames := len(data) / frameBytes
	buf := &FloatBuffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			offset := (i*channels + ch) * bytesPerSample
			sample := int16(binary.LittleEndian.Uint16(data[offset:]))
			buf.Channels[ch][i] = float32(sample) / 32768
		}
	}

	return buf, nil
}

package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestRecorderAccumulatesChunks(t *testing.T) {
	r := NewRecorder(CaptureSampleRate)

	chunk := make([]byte, CaptureSampleRate) // half a second of PCM-16
	r.Write(chunk)
	r.Write(chunk)
	r.Write(nil)

	if r.Duration() != time.Second {
		t.Errorf("Expected 1s recording, got %v", r.Duration())
	}

	stats := r.GetStats()
	if stats.Chunks != 2 {
		t.Errorf("Expected 2 chunks, got %d", stats.Chunks)
	}
	if stats.Samples != CaptureSampleRate {
		t.Errorf("Expected %d samples, got %d", CaptureSampleRate, stats.Samples)
	}

	wav, err := r.WAV()
	if err != nil {
		t.Fatalf("WAV failed: %v", err)
	}
	info, err := GetWAVInfo(wav)
	if err != nil {
		t.Fatalf("GetWAVInfo failed: %v", err)
	}
	if info.SampleRate != CaptureSampleRate {
		t.Errorf("Expected sample rate %d, got %d", CaptureSampleRate, info.SampleRate)
	}
}

func TestRecorderIsBitExact(t *testing.T) {
	samples := []int16{32767, -32768, 0, 1, -1, 12345}
	captured := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(captured[i*2:], uint16(s))
	}

	r := NewRecorder(CaptureSampleRate)
	// split inside a sample, as a capture pipe may
	r.Write(captured[:3])
	r.Write(captured[3:])

	if got := r.PCM(); !bytes.Equal(got, captured) {
		t.Errorf("Expected recorded PCM %v, got %v", captured, got)
	}

	wav, err := r.WAV()
	if err != nil {
		t.Fatalf("WAV failed: %v", err)
	}
	if !bytes.Equal(wav[wavHeaderSize:], captured) {
		t.Error("Expected WAV payload to match the captured bytes")
	}
}

func TestRecorderDropsTrailingHalfSample(t *testing.T) {
	r := NewRecorder(CaptureSampleRate)
	r.Write([]byte{1, 2, 3})

	if got := r.PCM(); len(got) != 2 {
		t.Errorf("Expected 2 bytes of whole samples, got %d", len(got))
	}
}

func TestRecorderEmptyWAV(t *testing.T) {
	if _, err := NewRecorder(CaptureSampleRate).WAV(); err == nil {
		t.Error("Expected error encoding an empty recording")
	}
}

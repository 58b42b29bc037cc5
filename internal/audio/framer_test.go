package audio

import "testing"

func TestFramerFixedSizeFrames(t *testing.T) {
	f := NewFramer(4)

	pcm := EncodeSamples([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, -0.1})

	frames := f.Write(pcm)
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	for i, frame := range frames {
		if len(frame) != 4 {
			t.Errorf("Frame %d: expected 4 samples, got %d", i, len(frame))
		}
	}

	tail := f.Flush()
	if len(tail) != 2 {
		t.Errorf("Expected 2 trailing samples, got %d", len(tail))
	}

	if f.FramesEmitted() != 3 {
		t.Errorf("Expected 3 frames emitted, got %d", f.FramesEmitted())
	}
}

func TestFramerCarriesSplitSamples(t *testing.T) {
	f := NewFramer(2)

	pcm := EncodeSamples([]float32{0.5, -0.5})

	// split inside the second sample
	if frames := f.Write(pcm[:3]); len(frames) != 0 {
		t.Fatalf("Expected no complete frame yet, got %d", len(frames))
	}

	frames := f.Write(pcm[3:])
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if frames[0][1] >= 0 {
		t.Errorf("Expected negative second sample, got %f", frames[0][1])
	}
}

func TestFramerDefaultSize(t *testing.T) {
	if f := NewFramer(0); f.FrameSize() != DefaultFrameSize {
		t.Errorf("Expected default frame size %d, got %d", DefaultFrameSize, f.FrameSize())
	}

	if frame := NewFramer(8).Flush(); frame != nil {
		t.Errorf("Expected nil flush on empty framer, got %v", frame)
	}
}

func TestFramerMatchesCodecDecode(t *testing.T) {
	pcm := []byte{0xff, 0x7f, 0x00, 0x80} // 32767, -32768

	frames := NewFramer(2).Write(pcm)
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}

	buf, err := DecodeToFloatBuffer(pcm, CaptureSampleRate, 1)
	if err != nil {
		t.Fatalf("DecodeToFloatBuffer failed: %v", err)
	}
	for i, want := range buf.Channels[0] {
		if frames[0][i] != want {
			t.Errorf("Sample %d: expected %f, got %f", i, want, frames[0][i])
		}
	}
	if frames[0][1] != -1 {
		t.Errorf("Expected -1 for the most negative sample, got %f", frames[0][1])
	}
}

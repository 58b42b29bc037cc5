package vad

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// SilenceFloor is the level reported for digital silence
const SilenceFloor = -96.0

// Processor tracks input level and voice activity over consecutive frames
type Processor struct {
	threshold float32 // RMS level at or above which a frame counts as voice
	decay     float32 // per-frame multiplier applied to the held level

	level float32

	// Statistics
	totalWindows  uint64
	voiceWindows  uint64
	lastProcessed time.Time

	mu sync.RWMutex
}

// Result represents the meter reading for one frame
type Result struct {
	RMS         float32   `json:"rms"`          // Raw frame RMS (0.0 - 1.0)
	Level       float32   `json:"level"`        // Held level with decay (0.0 - 1.0)
	DBFS        float64   `json:"dbfs"`         // Held level in dBFS
	HasVoice    bool      `json:"has_voice"`    // Whether the frame is above threshold
	WindowIndex int       `json:"window_index"` // Frame index processed
	Timestamp   time.Time `json:"timestamp"`
}

// ProcessorStats represents meter statistics
type ProcessorStats struct {
	TotalWindows    uint64    `json:"total_windows"`
	VoiceWindows    uint64    `json:"voice_windows"`
	VoicePercentage float64   `json:"voice_percentage"`
	LastProcessed   time.Time `json:"last_processed"`
	Threshold       float32   `json:"threshold"`
}

// NewProcessor creates a meter. threshold is a linear RMS level in [0, 1];
// decay in [0, 1) controls how quickly the held level falls.
func NewProcessor(threshold, decay float32) (*Processor, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}
	if decay < 0 || decay >= 1 {
		return nil, fmt.Errorf("decay must be in [0, 1), got %f", decay)
	}

	return &Processor{threshold: threshold, decay: decay}, nil
}

// Process measures one frame of float samples
func (p *Processor) Process(samples []float32) (*Result, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	rms := RMS(samples)

	p.mu.Lock()
	defer p.mu.Unlock()

	held := p.level * p.decay
	if rms > held {
		held = rms
	}
	p.level = held

	hasVoice := rms >= p.threshold

	p.totalWindows++
	if hasVoice {
		p.voiceWindows++
	}
	p.lastProcessed = time.Now()

	return &Result{
		RMS:         rms,
		Level:       held,
		DBFS:        DBFS(held),
		HasVoice:    hasVoice,
		WindowIndex: int(p.totalWindows - 1),
		Timestamp:   p.lastProcessed,
	}, nil
}

// RMS returns the root mean square of samples, clamped to [0, 1]
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}

	var energy float64
	for _, s := range samples {
		energy += float64(s) * float64(s)
	}
	rms := math.Sqrt(energy / float64(len(samples)))
	if rms > 1 {
		rms = 1
	}
	return float32(rms)
}

// DBFS converts a linear level to decibels relative to full scale
func DBFS(level float32) float64 {
	if level <= 0 {
		return SilenceFloor
	}
	db := 20 * math.Log10(float64(level))
	if db < SilenceFloor {
		return SilenceFloor
	}
	return db
}

// GetStats returns current meter statistics
func (p *Processor) GetStats() ProcessorStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	voicePercentage := float64(0)
	if p.totalWindows > 0 {
		voicePercentage = float64(p.voiceWindows) / float64(p.totalWindows) * 100
	}

	return ProcessorStats{
		TotalWindows:    p.totalWindows,
		VoiceWindows:    p.voiceWindows,
		VoicePercentage: voicePercentage,
		LastProcessed:   p.lastProcessed,
		Threshold:       p.threshold,
	}
}

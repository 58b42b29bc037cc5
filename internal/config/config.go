package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides live.api_key and analysis.api_key when set
const APIKeyEnv = "GEMINI_API_KEY"

// Config represents the complete service configuration
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Live     LiveConfig     `yaml:"live"`
	Device   DeviceConfig   `yaml:"device"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LiveConfig contains the live speech model connection parameters
type LiveConfig struct {
	Model              string  `yaml:"model"`
	Endpoint           string  `yaml:"endpoint"`
	APIKey             string  `yaml:"api_key"`
	CaptureSampleRate  int     `yaml:"capture_sample_rate"`
	PlaybackSampleRate int     `yaml:"playback_sample_rate"`
	FrameSize          int     `yaml:"frame_size"`        // samples
	IdleTimeout        int     `yaml:"idle_timeout"`      // seconds, 0 disables
	HandshakeTimeout   int     `yaml:"handshake_timeout"` // seconds
	VoiceThreshold     float32 `yaml:"voice_threshold"`   // RMS
	LevelDecay         float32 `yaml:"level_decay"`       // per frame
}

// DeviceConfig contains the external capture and playback commands
type DeviceConfig struct {
	CaptureCommand  string   `yaml:"capture_command"`
	CaptureArgs     []string `yaml:"capture_args"`
	PlaybackCommand string   `yaml:"playback_command"`
	PlaybackArgs    []string `yaml:"playback_args"`
}

// AnalysisConfig contains structured analysis API configuration
type AnalysisConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Model         string `yaml:"model"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// StorageConfig contains local persistence paths
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	RecordingsDir  string `yaml:"recordings_dir"`
	AudioURLPrefix string `yaml:"audio_url_prefix"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// ApplyEnv applies environment overrides
func (c *Config) ApplyEnv() {
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.Live.APIKey = key
		c.Analysis.APIKey = key
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Live.Validate(); err != nil {
		return fmt.Errorf("live config: %w", err)
	}

	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("device config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates live session configuration
func (l *LiveConfig) Validate() error {
	if l.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if l.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if l.CaptureSampleRate != 16000 {
		return fmt.Errorf("capture_sample_rate must be 16000 Hz for the live protocol, got %d", l.CaptureSampleRate)
	}

	if l.PlaybackSampleRate < 8000 || l.PlaybackSampleRate > 48000 {
		return fmt.Errorf("playback_sample_rate must be between 8000 and 48000 Hz, got %d", l.PlaybackSampleRate)
	}

	if l.FrameSize < 256 || l.FrameSize > 16384 {
		return fmt.Errorf("frame_size must be between 256 and 16384 samples, got %d", l.FrameSize)
	}

	if l.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout cannot be negative, got %d", l.IdleTimeout)
	}

	if l.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake_timeout cannot be negative, got %d", l.HandshakeTimeout)
	}

	if l.VoiceThreshold < 0 || l.VoiceThreshold > 1 {
		return fmt.Errorf("voice_threshold must be between 0 and 1, got %f", l.VoiceThreshold)
	}

	if l.LevelDecay < 0 || l.LevelDecay >= 1 {
		return fmt.Errorf("level_decay must be between 0 and 1 (exclusive), got %f", l.LevelDecay)
	}

	return nil
}

// Validate validates device configuration
func (d *DeviceConfig) Validate() error {
	if d.CaptureCommand == "" {
		return fmt.Errorf("capture_command cannot be empty")
	}

	if d.PlaybackCommand == "" {
		return fmt.Errorf("playback_command cannot be empty")
	}

	return nil
}

// Validate validates analysis configuration. The API key is checked when
// a client is built, so read-only commands work without one.
func (a *AnalysisConfig) Validate() error {
	if a.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if a.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if a.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", a.Timeout)
	}

	if a.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", a.MaxConcurrent)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.DatabasePath == "" {
		return fmt.Errorf("database_path cannot be empty")
	}

	if s.RecordingsDir == "" {
		return fmt.Errorf("recordings_dir cannot be empty")
	}

	if s.AudioURLPrefix == "" {
		return fmt.Errorf("audio_url_prefix cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Anything other than stdout/stderr is treated as a file path
	return nil
}

// GetIdleTimeoutDuration returns the idle timeout as a time.Duration
func (l *LiveConfig) GetIdleTimeoutDuration() time.Duration {
	return time.Duration(l.IdleTimeout) * time.Second
}

// GetHandshakeTimeoutDuration returns the dial handshake timeout as a time.Duration
func (l *LiveConfig) GetHandshakeTimeoutDuration() time.Duration {
	return time.Duration(l.HandshakeTimeout) * time.Second
}

// GetTimeoutDuration returns the analysis timeout as a time.Duration
func (a *AnalysisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// Package config provides configuration loading and validation for the interview service.
// It handles YAML-based configuration with per-section validation and the
// GEMINI_API_KEY environment override.
package config

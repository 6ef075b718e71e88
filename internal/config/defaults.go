package config

import (
	"strings"

	"transcript-navigator/internal/domain"
)

// DefaultSettings returns baseline configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		ServerURL:           "http://localhost:8000",
		PollIntervalSeconds: 3,
		Autoscroll:          true,
		PrevEpsilonSeconds:  0.1,
		FrameRate:           30,
	}
}

// Normalize trims user inputs and backfills unusable values with defaults.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()

	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaults.ServerURL
	}
	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = defaults.PollIntervalSeconds
	}
	if cfg.PrevEpsilonSeconds <= 0 {
		cfg.PrevEpsilonSeconds = defaults.PrevEpsilonSeconds
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = defaults.FrameRate
	}
	return cfg
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PollerConfig struct {
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterCeiling time.Duration
	MaxAttempts   int
	Deadline      time.Duration
}

// GetImagePollerConfig returns the poll budget for image jobs. Every knob
// has a default so only deviations need an environment variable.
func GetImagePollerConfig() (*PollerConfig, error) {
	return getPollerConfig("IMAGE", PollerConfig{
		BaseDelay:     2 * time.Second,
		MaxDelay:      30 * time.Second,
		JitterCeiling: time.Second,
		MaxAttempts:   60,
		Deadline:      5 * time.Minute,
	})
}

// GetVideoPollerConfig returns the poll budget for video jobs, roughly twice
// the image budget since clips take far longer to render.
func GetVideoPollerConfig() (*PollerConfig, error) {
	return getPollerConfig("VIDEO", PollerConfig{
		BaseDelay:     2 * time.Second,
		MaxDelay:      30 * time.Second,
		JitterCeiling: time.Second,
		MaxAttempts:   80,
		Deadline:      10 * time.Minute,
	})
}

func getPollerConfig(prefix string, defaults PollerConfig) (*PollerConfig, error) {
	cfg := defaults

	var err error
	cfg.BaseDelay, err = envDuration(prefix+"_POLL_BASE_DELAY", defaults.BaseDelay)
	if err != nil {
		return nil, err
	}
	cfg.MaxDelay, err = envDuration(prefix+"_POLL_MAX_DELAY", defaults.MaxDelay)
	if err != nil {
		return nil, err
	}
	cfg.JitterCeiling, err = envDuration(prefix+"_POLL_JITTER_CEILING", defaults.JitterCeiling)
	if err != nil {
		return nil, err
	}
	cfg.Deadline, err = envDuration(prefix+"_POLL_DEADLINE", defaults.Deadline)
	if err != nil {
		return nil, err
	}

	if raw := os.Getenv(prefix + "_POLL_MAX_ATTEMPTS"); raw != "" {
		attempts, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("Failed to parse %s_POLL_MAX_ATTEMPTS", prefix)
		}
		cfg.MaxAttempts = attempts
	}

	return &cfg, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("Failed to parse %s", key)
	}
	return d, nil
}

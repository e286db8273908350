package config

import (
	"fmt"
	"os"
	"strconv"
)

type PipelineConfig struct {
	SceneCount   int
	SceneSeconds int
	// Plain reference weights are renormalized into [MinReferenceWeight,
	// MaxReferenceWeight]; character identity references are pinned at
	// CharacterWeight.
	MinReferenceWeight float64
	MaxReferenceWeight float64
	CharacterWeight    float64
	// KeyframeAttempts caps resubmissions while collecting unique image
	// URLs for one prompt.
	KeyframeAttempts int
}

func GetPipelineConfig() (*PipelineConfig, error) {
	cfg := &PipelineConfig{
		SceneCount:         3,
		SceneSeconds:       5,
		MinReferenceWeight: 0.3,
		MaxReferenceWeight: 0.7,
		CharacterWeight:    0.7,
		KeyframeAttempts:   3,
	}

	if raw := os.Getenv("SCENE_COUNT"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("Failed to parse SCENE_COUNT")
		}
		cfg.SceneCount = count
	}
	if raw := os.Getenv("SCENE_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("Failed to parse SCENE_SECONDS")
		}
		cfg.SceneSeconds = seconds
	}
	if raw := os.Getenv("KEYFRAME_ATTEMPTS"); raw != "" {
		attempts, err := strconv.Atoi(raw)
		if err != nil || attempts <= 0 {
			return nil, fmt.Errorf("Failed to parse KEYFRAME_ATTEMPTS")
		}
		cfg.KeyframeAttempts = attempts
	}

	return cfg, nil
}

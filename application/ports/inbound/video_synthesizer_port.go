package inbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type SynthesizeClipParams struct {
	SceneIndex        int
	Content           string
	VisualDescription string
	StartKeyframeURL  string
	EndKeyframeURL    string
}

// VideoSynthesizerPort turns a keyframe pair into one scene clip.
type VideoSynthesizerPort interface {
	Synthesize(ctx context.Context, params SynthesizeClipParams) (*domain.GeneratedClip, error)
}

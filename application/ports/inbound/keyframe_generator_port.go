package inbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type GenerateKeyframeParams struct {
	Prompt            string
	Overview          string
	VisualDescription string
	Position          domain.KeyframePosition
	// StyleReferenceURL biases composition and style only, never identity.
	// Empty when no chain source exists (first scene's start keyframe).
	StyleReferenceURL string
	SelectedImages    []domain.WeightedImage
	CharacterImage    *domain.ReferenceImage
	ReferenceImages   []domain.ReferenceImage
}

// KeyframeGeneratorPort produces conditioning images for one keyframe slot.
// Generate returns the first unique image URL; GenerateCandidates keeps
// resubmitting the same prompt until it has count unique URLs or the attempt
// budget is spent.
type KeyframeGeneratorPort interface {
	Generate(ctx context.Context, params GenerateKeyframeParams) (string, error)
	GenerateCandidates(ctx context.Context, params GenerateKeyframeParams, count int) ([]string, error)
}

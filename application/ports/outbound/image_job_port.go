package outbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type SubmitImageJobParams struct {
	Prompt          string
	ReferenceImages []domain.WeightedImage
	CharacterImages []domain.WeightedImage
	StyleImageURLs  []string
	Count           int
}

type ImageJobStatus struct {
	State     domain.JobState
	ImageURLs []string
	Reason    string
}

// ImageJobServicePort is the asynchronous image generation backend:
// Submit returns a job id, Poll is an idempotent read, Cancel is best effort.
type ImageJobServicePort interface {
	Submit(ctx context.Context, params SubmitImageJobParams) (string, error)
	Poll(ctx context.Context, jobID string) (*ImageJobStatus, error)
	Cancel(ctx context.Context, jobID string) error
}

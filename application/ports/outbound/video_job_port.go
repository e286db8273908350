package outbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type SubmitVideoJobParams struct {
	Prompt        string
	FirstFrameURL string
	LastFrameURL  string
}

type VideoJobStatus struct {
	State    domain.JobState
	VideoURL string
	Duration float64
	Reason   string
}

// VideoJobServicePort is the asynchronous image-pair to clip backend.
type VideoJobServicePort interface {
	Submit(ctx context.Context, params SubmitVideoJobParams) (string, error)
	Poll(ctx context.Context, jobID string) (*VideoJobStatus, error)
}

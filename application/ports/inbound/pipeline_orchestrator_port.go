package inbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type CreateRunParams struct {
	DraftID   string
	OwnerID   string
	Selection domain.RunSelection
}

// UpdateKeyframeParams carries the editable parts of one keyframe. A nil
// Prompt leaves the prompt untouched; SelectedImages always replaces the
// previous selection.
type UpdateKeyframeParams struct {
	Prompt         *string
	SelectedImages []domain.WeightedImage
}

// PipelineOrchestratorPort owns the run state machine. Per-scene operations
// are independently callable and safe to invoke concurrently; writes to the
// shared run document are serialized per run.
type PipelineOrchestratorPort interface {
	CreateRun(ctx context.Context, params CreateRunParams) (*domain.PipelineRun, error)
	GetRun(ctx context.Context, runID string) (*domain.PipelineRun, error)
	FindRunByDraft(ctx context.Context, draftID string, ownerID string) (*domain.PipelineRun, error)
	StartDecomposition(ctx context.Context, runID string) (*domain.PipelineRun, error)
	UpdateKeyframe(ctx context.Context, runID string, sceneIndex int, position domain.KeyframePosition, params UpdateKeyframeParams) (*domain.PipelineRun, error)
	GenerateKeyframes(ctx context.Context, runID string, sceneIndex int) (*domain.PipelineRun, error)
	GenerateAllKeyframes(ctx context.Context, runID string) (*domain.PipelineRun, error)
	GenerateSceneVideo(ctx context.Context, runID string, sceneIndex int) (*domain.PipelineRun, error)
	GenerateAllVideos(ctx context.Context, runID string) (*domain.PipelineRun, error)
	DeleteRun(ctx context.Context, runID string) error
}

package outbound

import (
	"context"

	"generate-video-pipeline/domain"
)

// RunRepositoryPort persists pipeline runs. Every Update* method writes only
// the named fields plus updated_at, bumps the run version and fails with
// domain.ErrConcurrentModification when expectedVersion no longer matches the
// stored one.
type RunRepositoryPort interface {
	Create(ctx context.Context, run *domain.PipelineRun) (string, error)
	Get(ctx context.Context, id string) (*domain.PipelineRun, error)
	FindByDraft(ctx context.Context, draftID string, ownerID string) (*domain.PipelineRun, error)
	UpdateStatus(ctx context.Context, id string, expectedVersion int64, status domain.RunStatus, failureReason string) error
	UpdateDecomposition(ctx context.Context, id string, expectedVersion int64, overview string, scenes []domain.Scene, status domain.RunStatus) error
	UpdateSceneKeyframes(ctx context.Context, id string, expectedVersion int64, sceneIndex int, start domain.Keyframe, end domain.Keyframe, status domain.RunStatus) error
	UpdateSceneClip(ctx context.Context, id string, expectedVersion int64, sceneIndex int, clip domain.GeneratedClip, status domain.RunStatus) error
	Delete(ctx context.Context, id string) error
}

package outbound

import (
	"context"

	"generate-video-pipeline/domain"
)

// DraftStorePort reads the draft a run was created from. Fails with
// domain.ErrNotFound when the (owner, draft) pair does not exist.
type DraftStorePort interface {
	GetDraft(ctx context.Context, ownerID string, draftID string) (*domain.Draft, error)
}

package inbound

import (
	"context"

	"generate-video-pipeline/domain"
)

type DecomposeParams struct {
	DraftContent         string
	ReferenceTexts       []string
	CharacterDescription string
}

// SceneDecomposerPort turns draft text into exactly the configured number of
// scenes plus an overview. Malformed model output is a hard failure; there
// is no partial acceptance.
type SceneDecomposerPort interface {
	Decompose(ctx context.Context, params DecomposeParams) (*domain.Decomposition, error)
}

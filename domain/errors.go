package domain

import "errors"

// Error taxonomy surfaced by the pipeline. Callers match with errors.Is and
// pick retry vs abort from the case: validation, invalid-state and
// invalid-scene-index errors are never retried; transport errors are
// retryable; concurrent-modification means re-read and retry the mutation.
var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidReference       = errors.New("invalid reference URL")
	ErrInvalidState           = errors.New("invalid state for operation")
	ErrInvalidSceneIndex      = errors.New("scene index out of range")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrNotFound               = errors.New("not found")

	ErrSubmissionRejected = errors.New("submission rejected")
	ErrProviderFailure    = errors.New("provider failure")
	ErrTransport          = errors.New("transport error")
	ErrTimeout            = errors.New("poll timeout")
	ErrGenerationFailed   = errors.New("generation failed")
)

package inbound

import "context"

type AssembleResult struct {
	VideoURL string
	// MissingScenes lists scene indexes without a completed clip when a
	// partial assembly was forced.
	MissingScenes []int
}

// ClipAssemblyPort concatenates all completed per-scene clips, in scene
// order, into the final asset. Without force it refuses when any scene has
// no completed clip.
type ClipAssemblyPort interface {
	AssembleFinalVideo(ctx context.Context, runID string, force bool) (*AssembleResult, error)
}

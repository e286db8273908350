package domain

import "time"

type KeyframePosition string

const (
	StartKeyframePosition KeyframePosition = "start"
	EndKeyframePosition   KeyframePosition = "end"
)

type ReferenceImageType string

const (
	CharacterReferenceType ReferenceImageType = "character"
	PlainReferenceType     ReferenceImageType = "reference"
)

// WeightedImage is a reference image URL with its influence weight in [0,1].
type WeightedImage struct {
	URL    string  `json:"url"`
	Weight float64 `json:"weight"`
}

type ReferenceImage struct {
	ID     string             `json:"id"`
	URL    string             `json:"url"`
	Type   ReferenceImageType `json:"type"`
	Weight float64            `json:"weight"`
	Prompt string             `json:"prompt,omitempty"`
}

// RunSelection holds the conditioning inputs chosen before decomposition.
// Immutable once decomposition starts.
type RunSelection struct {
	CharacterImage  *ReferenceImage  `json:"character_image,omitempty"`
	ReferenceImages []ReferenceImage `json:"reference_images,omitempty"`
	ReferenceTexts  []string         `json:"reference_texts,omitempty"`
}

const (
	MaxReferenceImages = 4
	MaxReferenceTexts  = 2
)

type Keyframe struct {
	Status         KeyframeStatus  `json:"status"`
	ImageURL       string          `json:"image_url,omitempty"`
	Prompt         string          `json:"prompt"`
	SelectedImages []WeightedImage `json:"selected_images,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
}

type Scene struct {
	ID                string   `json:"id"`
	Order             int      `json:"order"`
	Content           string   `json:"content"`
	VisualDescription string   `json:"visual_description"`
	StartKeyframe     Keyframe `json:"start_keyframe"`
	EndKeyframe       Keyframe `json:"end_keyframe"`
}

// KeyframesCompleted reports whether both keyframes of the scene are done.
func (s Scene) KeyframesCompleted() bool {
	return s.StartKeyframe.Status == KeyframeCompleted && s.EndKeyframe.Status == KeyframeCompleted
}

type GeneratedClip struct {
	SceneIndex    int               `json:"scene_index"`
	VideoURL      string            `json:"video_url,omitempty"`
	Duration      float64           `json:"duration,omitempty"`
	State         ClipState         `json:"state"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// PipelineRun is one decomposition-to-video attempt for one draft. The
// orchestrator exclusively owns it and everything nested in it.
type PipelineRun struct {
	ID            string                `json:"id"`
	DraftID       string                `json:"draft_id"`
	OwnerID       string                `json:"owner_id"`
	Status        RunStatus             `json:"status"`
	Overview      string                `json:"overview,omitempty"`
	Scenes        []Scene               `json:"scenes"`
	SceneVideos   map[int]GeneratedClip `json:"scene_videos,omitempty"`
	Selection     RunSelection          `json:"selection"`
	FailureReason string                `json:"failure_reason,omitempty"`
	Version       int64                 `json:"version"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// AllKeyframesCompleted reports whether every scene has both keyframes done.
// False when the run has no scenes yet.
func (r *PipelineRun) AllKeyframesCompleted() bool {
	if len(r.Scenes) == 0 {
		return false
	}
	for _, scene := range r.Scenes {
		if !scene.KeyframesCompleted() {
			return false
		}
	}
	return true
}

// AllClipsCompleted reports whether every scene has a completed video clip.
func (r *PipelineRun) AllClipsCompleted() bool {
	if len(r.Scenes) == 0 {
		return false
	}
	for i := range r.Scenes {
		clip, ok := r.SceneVideos[i]
		if !ok || clip.State != ClipCompleted {
			return false
		}
	}
	return true
}

// Draft is the read-only source material a run is built from.
type Draft struct {
	Content          string
	ReferenceTextIDs []string
}

// SceneDraft is one scene as produced by decomposition, before it is
// persisted as a Scene with keyframe slots.
type SceneDraft struct {
	Content           string `json:"content"`
	VisualDescription string `json:"visual_description"`
	StartPrompt       string `json:"start_prompt"`
	EndPrompt         string `json:"end_prompt"`
}

type Decomposition struct {
	Overview string       `json:"overview"`
	Scenes   []SceneDraft `json:"scenes"`
}

package domain

// RunStatus is the aggregate state of a pipeline run. KeyframesReady sits
// between keyframe editing and video generation so "Completed" strictly
// means the whole run, including video, is finished.
type RunStatus string

const (
	RunStatusDraft             RunStatus = "draft"
	RunStatusDecomposingScript RunStatus = "decomposing_script"
	RunStatusEditingKeyframes  RunStatus = "editing_keyframes"
	RunStatusKeyframesReady    RunStatus = "keyframes_ready"
	RunStatusGeneratingVideo   RunStatus = "generating_video"
	RunStatusCompleted         RunStatus = "completed"
	RunStatusFailed            RunStatus = "failed"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

type KeyframeStatus string

const (
	KeyframeNotStarted KeyframeStatus = "not_started"
	KeyframeGenerating KeyframeStatus = "generating"
	KeyframeCompleted  KeyframeStatus = "completed"
	KeyframeFailed     KeyframeStatus = "failed"
)

// CanTransitionTo enforces the keyframe lifecycle: NotStarted -> Generating,
// Generating -> Completed|Failed, Failed -> Generating (retry) and
// Completed -> Generating (explicit regenerate).
func (s KeyframeStatus) CanTransitionTo(next KeyframeStatus) bool {
	switch s {
	case KeyframeNotStarted:
		return next == KeyframeGenerating
	case KeyframeGenerating:
		return next == KeyframeCompleted || next == KeyframeFailed
	case KeyframeCompleted, KeyframeFailed:
		return next == KeyframeGenerating
	default:
		return false
	}
}

type ClipState string

const (
	ClipNotStarted ClipState = "not_started"
	ClipInProgress ClipState = "in_progress"
	ClipCompleted  ClipState = "completed"
	ClipFailed     ClipState = "failed"
)

// JobState is the status an external generation service reports for one
// submitted job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

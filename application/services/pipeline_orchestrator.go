package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/channel_utils"
	"generate-video-pipeline/domain"
)

type pipelineOrchestrator struct {
	logger      outbound.LoggerPort
	workerPool  outbound.TaskDispatcher
	runs        outbound.RunRepositoryPort
	drafts      outbound.DraftStorePort
	texts       outbound.ReferenceTextStorePort
	blobs       outbound.BlobStorePort
	decomposer  inbound.SceneDecomposerPort
	keyframes   inbound.KeyframeGeneratorPort
	synthesizer inbound.VideoSynthesizerPort

	// runLocks serializes read-modify-write cycles on one run document so
	// concurrent scene operations never clobber each other's fields. The
	// lock is never held across generation calls, only around the writes.
	mu       sync.Mutex
	runLocks map[string]*sync.Mutex
}

func NewPipelineOrchestrator(
	logger outbound.LoggerPort,
	workerPool outbound.TaskDispatcher,
	runs outbound.RunRepositoryPort,
	drafts outbound.DraftStorePort,
	texts outbound.ReferenceTextStorePort,
	blobs outbound.BlobStorePort,
	decomposer inbound.SceneDecomposerPort,
	keyframes inbound.KeyframeGeneratorPort,
	synthesizer inbound.VideoSynthesizerPort) inbound.PipelineOrchestratorPort {
	return &pipelineOrchestrator{
		logger:      logger,
		workerPool:  workerPool,
		runs:        runs,
		drafts:      drafts,
		texts:       texts,
		blobs:       blobs,
		decomposer:  decomposer,
		keyframes:   keyframes,
		synthesizer: synthesizer,
		runLocks:    make(map[string]*sync.Mutex),
	}
}

func (o *pipelineOrchestrator) lockForRun(runID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.runLocks[runID]
	if !ok {
		lock = &sync.Mutex{}
		o.runLocks[runID] = lock
	}
	return lock
}

func (o *pipelineOrchestrator) CreateRun(ctx context.Context, params inbound.CreateRunParams) (*domain.PipelineRun, error) {
	if params.DraftID == "" || params.OwnerID == "" {
		return nil, fmt.Errorf("%w: draft id and owner id are required", domain.ErrValidation)
	}
	if len(params.Selection.ReferenceImages) > domain.MaxReferenceImages {
		return nil, fmt.Errorf("%w: at most %d reference images", domain.ErrValidation, domain.MaxReferenceImages)
	}
	if len(params.Selection.ReferenceTexts) > domain.MaxReferenceTexts {
		return nil, fmt.Errorf("%w: at most %d reference texts", domain.ErrValidation, domain.MaxReferenceTexts)
	}
	for i := range params.Selection.ReferenceImages {
		if err := validateReferenceURL(params.Selection.ReferenceImages[i].URL); err != nil {
			return nil, err
		}
		params.Selection.ReferenceImages[i].Weight = clampUnit(params.Selection.ReferenceImages[i].Weight)
	}
	if params.Selection.CharacterImage != nil {
		if err := validateReferenceURL(params.Selection.CharacterImage.URL); err != nil {
			return nil, err
		}
		params.Selection.CharacterImage.Weight = clampUnit(params.Selection.CharacterImage.Weight)
	}

	now := time.Now().UTC()
	run := &domain.PipelineRun{
		DraftID:   params.DraftID,
		OwnerID:   params.OwnerID,
		Status:    domain.RunStatusDraft,
		Selection: params.Selection,
		Scenes:    []domain.Scene{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := o.runs.Create(ctx, run)
	if err != nil {
		o.logger.Error(err, "Failed to persist new run")
		return nil, err
	}
	run.ID = id

	o.logger.InfoWithFields("Run created", map[string]interface{}{
		"run_id":   id,
		"draft_id": params.DraftID,
	})
	return run, nil
}

func (o *pipelineOrchestrator) GetRun(ctx context.Context, runID string) (*domain.PipelineRun, error) {
	return o.runs.Get(ctx, runID)
}

func (o *pipelineOrchestrator) FindRunByDraft(ctx context.Context, draftID string, ownerID string) (*domain.PipelineRun, error) {
	return o.runs.FindByDraft(ctx, draftID, ownerID)
}

// StartDecomposition moves the run into DecomposingScript before the model
// call so a crash mid-call stays observable, then populates the scenes.
// Decomposition is all-or-nothing: any failure marks the whole run Failed.
func (o *pipelineOrchestrator) StartDecomposition(ctx context.Context, runID string) (*domain.PipelineRun, error) {
	lock := o.lockForRun(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := o.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.RunStatusDraft && run.Status != domain.RunStatusFailed {
		return nil, fmt.Errorf("%w: cannot decompose a run in status %s", domain.ErrInvalidState, run.Status)
	}

	if err := o.runs.UpdateStatus(ctx, runID, run.Version, domain.RunStatusDecomposingScript, ""); err != nil {
		return nil, err
	}
	run.Version++

	draft, err := o.drafts.GetDraft(ctx, run.OwnerID, run.DraftID)
	if err != nil {
		return nil, o.failRun(ctx, runID, run.Version, "draft fetch failed: "+err.Error(), err)
	}

	referenceTexts := o.fetchReferenceTexts(ctx, draft, run)

	characterDescription := ""
	if run.Selection.CharacterImage != nil {
		characterDescription = run.Selection.CharacterImage.Prompt
	}

	decomposition, err := o.decomposer.Decompose(ctx, inbound.DecomposeParams{
		DraftContent:         draft.Content,
		ReferenceTexts:       referenceTexts,
		CharacterDescription: characterDescription,
	})
	if err != nil {
		return nil, o.failRun(ctx, runID, run.Version, "decomposition failed: "+err.Error(), err)
	}

	scenes := make([]domain.Scene, 0, len(decomposition.Scenes))
	for i, draft := range decomposition.Scenes {
		scenes = append(scenes, domain.Scene{
			ID:                uuid.NewString(),
			Order:             i,
			Content:           draft.Content,
			VisualDescription: draft.VisualDescription,
			StartKeyframe:     domain.Keyframe{Status: domain.KeyframeNotStarted, Prompt: draft.StartPrompt},
			EndKeyframe:       domain.Keyframe{Status: domain.KeyframeNotStarted, Prompt: draft.EndPrompt},
		})
	}

	if err := o.runs.UpdateDecomposition(ctx, runID, run.Version, decomposition.Overview, scenes, domain.RunStatusEditingKeyframes); err != nil {
		return nil, err
	}

	return o.runs.Get(ctx, runID)
}

func (o *pipelineOrchestrator) fetchReferenceTexts(ctx context.Context, draft *domain.Draft, run *domain.PipelineRun) []string {
	ids := make([]string, 0, len(draft.ReferenceTextIDs)+len(run.Selection.ReferenceTexts))
	ids = append(ids, draft.ReferenceTextIDs...)
	ids = append(ids, run.Selection.ReferenceTexts...)
	if len(ids) == 0 {
		return nil
	}
	texts, err := o.texts.GetTexts(ctx, ids)
	if err != nil {
		// Enrichment only; a missing text store never blocks decomposition.
		o.logger.Warn("Reference text fetch failed: " + err.Error())
		return nil
	}
	return texts
}

// UpdateKeyframe edits a keyframe's prompt or its per-keyframe reference
// selection before (re)generation. Edits are rejected while a generation is
// in flight for that keyframe.
func (o *pipelineOrchestrator) UpdateKeyframe(ctx context.Context, runID string, sceneIndex int, position domain.KeyframePosition, params inbound.UpdateKeyframeParams) (*domain.PipelineRun, error) {
	if params.Prompt != nil && *params.Prompt == "" {
		return nil, fmt.Errorf("%w: keyframe prompt cannot be empty", domain.ErrValidation)
	}
	for _, img := range params.SelectedImages {
		if err := validateReferenceURL(img.URL); err != nil {
			return nil, err
		}
	}

	lock := o.lockForRun(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := o.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if sceneIndex < 0 || sceneIndex >= len(run.Scenes) {
		return nil, fmt.Errorf("%w: %d of %d scenes", domain.ErrInvalidSceneIndex, sceneIndex, len(run.Scenes))
	}

	scene := run.Scenes[sceneIndex]
	start, end := scene.StartKeyframe, scene.EndKeyframe
	target := &start
	if position == domain.EndKeyframePosition {
		target = &end
	}
	if target.Status == domain.KeyframeGenerating {
		return nil, fmt.Errorf("%w: scene %d %s keyframe is generating", domain.ErrInvalidState, sceneIndex, position)
	}

	if params.Prompt != nil {
		target.Prompt = *params.Prompt
	}
	if params.SelectedImages != nil {
		selected := make([]domain.WeightedImage, len(params.SelectedImages))
		copy(selected, params.SelectedImages)
		for i := range selected {
			selected[i].Weight = clampUnit(selected[i].Weight)
		}
		target.SelectedImages = selected
	}

	if err := o.runs.UpdateSceneKeyframes(ctx, runID, run.Version, sceneIndex, start, end, run.Status); err != nil {
		return nil, err
	}

	return o.runs.Get(ctx, runID)
}

// GenerateKeyframes produces both conditioning images of one scene: start
// first, chained from the previous scene's end image when that exists, then
// end, chained from the start image just produced.
func (o *pipelineOrchestrator) GenerateKeyframes(ctx context.Context, runID string, sceneIndex int) (*domain.PipelineRun, error) {
	lock := o.lockForRun(runID)

	lock.Lock()
	run, err := o.runs.Get(ctx, runID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if run.Status == domain.RunStatusDraft || run.Status == domain.RunStatusDecomposingScript {
		lock.Unlock()
		return nil, fmt.Errorf("%w: run %s has no decomposed scenes yet", domain.ErrInvalidState, runID)
	}
	if sceneIndex < 0 || sceneIndex >= len(run.Scenes) {
		lock.Unlock()
		return nil, fmt.Errorf("%w: %d of %d scenes", domain.ErrInvalidSceneIndex, sceneIndex, len(run.Scenes))
	}

	scene := run.Scenes[sceneIndex]
	if !scene.StartKeyframe.Status.CanTransitionTo(domain.KeyframeGenerating) ||
		!scene.EndKeyframe.Status.CanTransitionTo(domain.KeyframeGenerating) {
		lock.Unlock()
		return nil, fmt.Errorf("%w: scene %d keyframe generation already in progress", domain.ErrInvalidState, sceneIndex)
	}

	start := scene.StartKeyframe
	end := scene.EndKeyframe
	start.Status, start.FailureReason = domain.KeyframeGenerating, ""
	end.Status, end.FailureReason = domain.KeyframeGenerating, ""

	if err := o.runs.UpdateSceneKeyframes(ctx, runID, run.Version, sceneIndex, start, end, domain.RunStatusEditingKeyframes); err != nil {
		lock.Unlock()
		return nil, err
	}

	// Style chain is re-derived from the sibling state read under the lock,
	// so regeneration picks up whatever the previous scene looks like now.
	styleRef := ""
	if sceneIndex > 0 {
		prev := run.Scenes[sceneIndex-1].EndKeyframe
		if prev.Status == domain.KeyframeCompleted {
			styleRef = prev.ImageURL
		} else {
			o.logger.DebugWithFields("Previous scene end keyframe unavailable, continuity degrades", map[string]interface{}{
				"run_id":      runID,
				"scene_index": sceneIndex,
			})
		}
	}
	lock.Unlock()

	startURL, err := o.keyframes.Generate(ctx, inbound.GenerateKeyframeParams{
		Prompt:            start.Prompt,
		Overview:          run.Overview,
		VisualDescription: scene.VisualDescription,
		Position:          domain.StartKeyframePosition,
		StyleReferenceURL: styleRef,
		SelectedImages:    start.SelectedImages,
		CharacterImage:    run.Selection.CharacterImage,
		ReferenceImages:   run.Selection.ReferenceImages,
	})
	if err != nil {
		return nil, o.recordKeyframeFailure(ctx, runID, sceneIndex, start, end, err)
	}

	endURL, err := o.keyframes.Generate(ctx, inbound.GenerateKeyframeParams{
		Prompt:            end.Prompt,
		Overview:          run.Overview,
		VisualDescription: scene.VisualDescription,
		Position:          domain.EndKeyframePosition,
		StyleReferenceURL: startURL,
		SelectedImages:    end.SelectedImages,
		CharacterImage:    run.Selection.CharacterImage,
		ReferenceImages:   run.Selection.ReferenceImages,
	})
	if err != nil {
		return nil, o.recordKeyframeFailure(ctx, runID, sceneIndex, start, end, err)
	}

	start.Status, start.ImageURL = domain.KeyframeCompleted, startURL
	end.Status, end.ImageURL = domain.KeyframeCompleted, endURL

	lock.Lock()
	defer lock.Unlock()
	fresh, err := o.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	fresh.Scenes[sceneIndex].StartKeyframe = start
	fresh.Scenes[sceneIndex].EndKeyframe = end

	status := domain.RunStatusEditingKeyframes
	if fresh.AllKeyframesCompleted() {
		status = domain.RunStatusKeyframesReady
	}
	if err := o.runs.UpdateSceneKeyframes(ctx, runID, fresh.Version, sceneIndex, start, end, status); err != nil {
		return nil, err
	}

	return o.runs.Get(ctx, runID)
}

// recordKeyframeFailure durably marks both keyframes Failed before the error
// is surfaced, even when the caller's context is already cancelled.
func (o *pipelineOrchestrator) recordKeyframeFailure(ctx context.Context, runID string, sceneIndex int,
	start domain.Keyframe, end domain.Keyframe, cause error) error {
	detached := context.WithoutCancel(ctx)

	start.Status, start.FailureReason = domain.KeyframeFailed, cause.Error()
	end.Status, end.FailureReason = domain.KeyframeFailed, cause.Error()

	lock := o.lockForRun(runID)
	lock.Lock()
	defer lock.Unlock()

	fresh, err := o.runs.Get(detached, runID)
	if err != nil {
		o.logger.Error(err, "Failed to load run while recording keyframe failure")
		return cause
	}
	if err := o.runs.UpdateSceneKeyframes(detached, runID, fresh.Version, sceneIndex, start, end, domain.RunStatusEditingKeyframes); err != nil {
		o.logger.Error(err, "Failed to persist keyframe failure")
	}
	return cause
}

// GenerateAllKeyframes walks the scenes in ascending order so every scene
// can chain style from its predecessor. Scene failures are isolated: later
// scenes still run, and all failures come back joined.
func (o *pipelineOrchestrator) GenerateAllKeyframes(ctx context.Context, runID string) (*domain.PipelineRun, error) {
	run, err := o.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}

	var failures []error
	for i := range run.Scenes {
		if _, err := o.GenerateKeyframes(ctx, runID, i); err != nil {
			if ctx.Err() != nil {
				failures = append(failures, err)
				break
			}
			failures = append(failures, fmt.Errorf("scene %d: %w", i, err))
		}
	}

	fresh, getErr := o.runs.Get(ctx, runID)
	if getErr != nil {
		return nil, getErr
	}
	return fresh, errors.Join(failures...)
}

func (o *pipelineOrchestrator) GenerateSceneVideo(ctx context.Context, runID string, sceneIndex int) (*domain.PipelineRun, error) {
	lock := o.lockForRun(runID)

	lock.Lock()
	run, err := o.runs.Get(ctx, runID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if sceneIndex < 0 || sceneIndex >= len(run.Scenes) {
		lock.Unlock()
		return nil, fmt.Errorf("%w: %d of %d scenes", domain.ErrInvalidSceneIndex, sceneIndex, len(run.Scenes))
	}
	scene := run.Scenes[sceneIndex]
	if !scene.KeyframesCompleted() {
		lock.Unlock()
		return nil, fmt.Errorf("%w: scene %d keyframes are not completed", domain.ErrInvalidState, sceneIndex)
	}
	if existing, ok := run.SceneVideos[sceneIndex]; ok && existing.State == domain.ClipInProgress {
		lock.Unlock()
		return nil, fmt.Errorf("%w: scene %d clip synthesis already in progress", domain.ErrInvalidState, sceneIndex)
	}

	pending := domain.GeneratedClip{SceneIndex: sceneIndex, State: domain.ClipInProgress}
	if err := o.runs.UpdateSceneClip(ctx, runID, run.Version, sceneIndex, pending, domain.RunStatusGeneratingVideo); err != nil {
		lock.Unlock()
		return nil, err
	}
	lock.Unlock()

	clip, synthErr := o.synthesizer.Synthesize(ctx, inbound.SynthesizeClipParams{
		SceneIndex:        sceneIndex,
		Content:           scene.Content,
		VisualDescription: scene.VisualDescription,
		StartKeyframeURL:  scene.StartKeyframe.ImageURL,
		EndKeyframeURL:    scene.EndKeyframe.ImageURL,
	})

	detached := context.WithoutCancel(ctx)
	lock.Lock()
	defer lock.Unlock()
	fresh, err := o.runs.Get(detached, runID)
	if err != nil {
		return nil, err
	}

	if synthErr != nil {
		failed := domain.GeneratedClip{SceneIndex: sceneIndex, State: domain.ClipFailed, FailureReason: synthErr.Error()}
		if updateErr := o.runs.UpdateSceneClip(detached, runID, fresh.Version, sceneIndex, failed, domain.RunStatusGeneratingVideo); updateErr != nil {
			o.logger.Error(updateErr, "Failed to persist clip failure")
		}
		return nil, synthErr
	}

	if fresh.SceneVideos == nil {
		fresh.SceneVideos = make(map[int]domain.GeneratedClip)
	}
	fresh.SceneVideos[sceneIndex] = *clip
	status := domain.RunStatusGeneratingVideo
	if fresh.AllClipsCompleted() {
		status = domain.RunStatusCompleted
	}
	if err := o.runs.UpdateSceneClip(detached, runID, fresh.Version, sceneIndex, *clip, status); err != nil {
		return nil, err
	}

	return o.runs.Get(ctx, runID)
}

// GenerateAllVideos fans scene synthesis out on the worker pool: clips have
// no cross-scene dependency, so unlike keyframes they can run concurrently.
func (o *pipelineOrchestrator) GenerateAllVideos(ctx context.Context, runID string) (*domain.PipelineRun, error) {
	run, err := o.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}

	errChannels := make([]<-chan error, 0, len(run.Scenes))
	for i := range run.Scenes {
		sceneIndex := i
		errCh := make(chan error, 1)
		errChannels = append(errChannels, errCh)
		err := o.workerPool.Submit(func() {
			defer close(errCh)
			if _, err := o.GenerateSceneVideo(ctx, runID, sceneIndex); err != nil {
				errCh <- fmt.Errorf("scene %d: %w", sceneIndex, err)
			}
		})
		if err != nil {
			errCh <- err
			close(errCh)
		}
	}

	merged, err := channel_utils.MergeChannels(o.workerPool, errChannels...)
	if err != nil {
		return nil, err
	}
	var failures []error
	for sceneErr := range merged {
		failures = append(failures, sceneErr)
	}

	fresh, getErr := o.runs.Get(ctx, runID)
	if getErr != nil {
		return nil, getErr
	}
	return fresh, errors.Join(failures...)
}

// DeleteRun is an explicit user action, not a failure path: the persisted
// run goes first, then its generated assets, best effort.
func (o *pipelineOrchestrator) DeleteRun(ctx context.Context, runID string) error {
	lock := o.lockForRun(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := o.runs.Get(ctx, runID)
	if err != nil {
		return err
	}
	if err := o.runs.Delete(ctx, runID); err != nil {
		return err
	}

	prefix := fmt.Sprintf("user/%s/run/%s/", run.OwnerID, runID)
	if err := o.blobs.DeletePrefix(context.WithoutCancel(ctx), prefix); err != nil {
		o.logger.WarnWithFields("Failed to delete run assets", map[string]interface{}{
			"run_id": runID,
			"prefix": prefix,
		})
	}

	o.mu.Lock()
	delete(o.runLocks, runID)
	o.mu.Unlock()
	return nil
}

func (o *pipelineOrchestrator) failRun(ctx context.Context, runID string, expectedVersion int64, reason string, cause error) error {
	detached := context.WithoutCancel(ctx)
	if err := o.runs.UpdateStatus(detached, runID, expectedVersion, domain.RunStatusFailed, reason); err != nil {
		o.logger.Error(err, "Failed to persist run failure")
	}
	return cause
}

func clampUnit(weight float64) float64 {
	if weight < 0 {
		return 0
	}
	if weight > 1 {
		return 1
	}
	return weight
}

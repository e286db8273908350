package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string)                                           {}
func (nopLogger) InfoWithFields(string, map[string]interface{})         {}
func (nopLogger) Error(error, string)                                   {}
func (nopLogger) ErrorWithFields(error, string, map[string]interface{}) {}
func (nopLogger) Debug(string)                                          {}
func (nopLogger) DebugWithFields(string, map[string]interface{})        {}
func (nopLogger) Warn(string)                                           {}
func (nopLogger) WarnWithFields(string, map[string]interface{})         {}

type goroutineDispatcher struct{}

func (goroutineDispatcher) Submit(task func()) error {
	go task()
	return nil
}

func testPollerConfig() *config.PollerConfig {
	return &config.PollerConfig{
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		MaxAttempts: 10,
		Deadline:    5 * time.Second,
	}
}

func testPipelineConfig() *config.PipelineConfig {
	return &config.PipelineConfig{
		SceneCount:         3,
		SceneSeconds:       5,
		MinReferenceWeight: 0.3,
		MaxReferenceWeight: 0.7,
		CharacterWeight:    0.7,
		KeyframeAttempts:   3,
	}
}

type fakeRunRepository struct {
	mu   sync.Mutex
	runs map[string]*domain.PipelineRun
}

func newFakeRunRepository() *fakeRunRepository {
	return &fakeRunRepository{runs: make(map[string]*domain.PipelineRun)}
}

func cloneRun(run *domain.PipelineRun) *domain.PipelineRun {
	clone := *run
	clone.Scenes = make([]domain.Scene, len(run.Scenes))
	copy(clone.Scenes, run.Scenes)
	clone.SceneVideos = make(map[int]domain.GeneratedClip, len(run.SceneVideos))
	for k, v := range run.SceneVideos {
		clone.SceneVideos[k] = v
	}
	return &clone
}

func (r *fakeRunRepository) Create(ctx context.Context, run *domain.PipelineRun) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	stored := cloneRun(run)
	stored.ID = id
	stored.Version = 0
	r.runs[id] = stored
	return id, nil
}

func (r *fakeRunRepository) Get(ctx context.Context, id string) (*domain.PipelineRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
	}
	return cloneRun(run), nil
}

func (r *fakeRunRepository) FindByDraft(ctx context.Context, draftID string, ownerID string) (*domain.PipelineRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.DraftID == draftID && run.OwnerID == ownerID {
			return cloneRun(run), nil
		}
	}
	return nil, fmt.Errorf("%w: no run for draft %s", domain.ErrNotFound, draftID)
}

func (r *fakeRunRepository) locked(id string, expectedVersion int64, mutate func(*domain.PipelineRun)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
	}
	if run.Version != expectedVersion {
		return fmt.Errorf("%w: run %s", domain.ErrConcurrentModification, id)
	}
	mutate(run)
	run.Version++
	run.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeRunRepository) UpdateStatus(ctx context.Context, id string, expectedVersion int64, status domain.RunStatus, failureReason string) error {
	return r.locked(id, expectedVersion, func(run *domain.PipelineRun) {
		run.Status = status
		run.FailureReason = failureReason
	})
}

func (r *fakeRunRepository) UpdateDecomposition(ctx context.Context, id string, expectedVersion int64, overview string, scenes []domain.Scene, status domain.RunStatus) error {
	return r.locked(id, expectedVersion, func(run *domain.PipelineRun) {
		run.Overview = overview
		run.Scenes = make([]domain.Scene, len(scenes))
		copy(run.Scenes, scenes)
		run.Status = status
		run.FailureReason = ""
	})
}

func (r *fakeRunRepository) UpdateSceneKeyframes(ctx context.Context, id string, expectedVersion int64, sceneIndex int, start domain.Keyframe, end domain.Keyframe, status domain.RunStatus) error {
	return r.locked(id, expectedVersion, func(run *domain.PipelineRun) {
		run.Scenes[sceneIndex].StartKeyframe = start
		run.Scenes[sceneIndex].EndKeyframe = end
		run.Status = status
	})
}

func (r *fakeRunRepository) UpdateSceneClip(ctx context.Context, id string, expectedVersion int64, sceneIndex int, clip domain.GeneratedClip, status domain.RunStatus) error {
	return r.locked(id, expectedVersion, func(run *domain.PipelineRun) {
		if run.SceneVideos == nil {
			run.SceneVideos = make(map[int]domain.GeneratedClip)
		}
		run.SceneVideos[sceneIndex] = clip
		run.Status = status
	})
}

func (r *fakeRunRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
	}
	delete(r.runs, id)
	return nil
}

type fakeDraftStore struct {
	drafts map[string]*domain.Draft
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{drafts: make(map[string]*domain.Draft)}
}

func (d *fakeDraftStore) put(ownerID string, draftID string, draft *domain.Draft) {
	d.drafts[ownerID+"/"+draftID] = draft
}

func (d *fakeDraftStore) GetDraft(ctx context.Context, ownerID string, draftID string) (*domain.Draft, error) {
	draft, ok := d.drafts[ownerID+"/"+draftID]
	if !ok {
		return nil, fmt.Errorf("%w: draft %s", domain.ErrNotFound, draftID)
	}
	return draft, nil
}

type fakeTextStore struct {
	texts map[string]string
}

func newFakeTextStore() *fakeTextStore {
	return &fakeTextStore{texts: make(map[string]string)}
}

func (t *fakeTextStore) GetTexts(ctx context.Context, ids []string) ([]string, error) {
	var bodies []string
	for _, id := range ids {
		if body, ok := t.texts[id]; ok {
			bodies = append(bodies, body)
		}
	}
	return bodies, nil
}

type fakeBlobStore struct {
	mu              sync.Mutex
	uploads         []string
	deletedPrefixes []string
}

func (b *fakeBlobStore) Upload(ctx context.Context, key string, body io.Reader, length int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, key)
	return "https://bucket.local/" + key, nil
}

func (b *fakeBlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletedPrefixes = append(b.deletedPrefixes, prefix)
	return nil
}

type imageJob struct {
	urls   []string
	reason string
}

// fakeImageJobService completes every submitted job on first poll, handing
// out sequential unique URLs unless a canned response is queued.
type fakeImageJobService struct {
	mu            sync.Mutex
	counter       int
	submits       []outbound.SubmitImageJobParams
	jobs          map[string]imageJob
	queued        []imageJob
	submitErr     error
	transientErrs []error
	cancelled     []string
}

func newFakeImageJobService() *fakeImageJobService {
	return &fakeImageJobService{jobs: make(map[string]imageJob)}
}

func (f *fakeImageJobService) enqueue(job imageJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, job)
}

func (f *fakeImageJobService) failNextSubmit(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transientErrs = append(f.transientErrs, err)
}

func (f *fakeImageJobService) Submit(ctx context.Context, params outbound.SubmitImageJobParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if len(f.transientErrs) > 0 {
		err := f.transientErrs[0]
		f.transientErrs = f.transientErrs[1:]
		return "", err
	}
	f.submits = append(f.submits, params)

	var job imageJob
	if len(f.queued) > 0 {
		job = f.queued[0]
		f.queued = f.queued[1:]
	} else {
		count := params.Count
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			f.counter++
			job.urls = append(job.urls, fmt.Sprintf("https://img.local/%d.png", f.counter))
		}
	}

	id := uuid.NewString()
	f.jobs[id] = job
	return id, nil
}

func (f *fakeImageJobService) Poll(ctx context.Context, jobID string) (*outbound.ImageJobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", domain.ErrNotFound, jobID)
	}
	if job.reason != "" {
		return &outbound.ImageJobStatus{State: domain.JobFailed, Reason: job.reason}, nil
	}
	return &outbound.ImageJobStatus{State: domain.JobCompleted, ImageURLs: job.urls}, nil
}

func (f *fakeImageJobService) Cancel(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

func (f *fakeImageJobService) submitted() []outbound.SubmitImageJobParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]outbound.SubmitImageJobParams, len(f.submits))
	copy(out, f.submits)
	return out
}

// fakeVideoJobService completes every job on first poll with a URL derived
// from the job id.
type fakeVideoJobService struct {
	mu         sync.Mutex
	submits    []outbound.SubmitVideoJobParams
	failReason string
	submitErr  error
}

func (f *fakeVideoJobService) Submit(ctx context.Context, params outbound.SubmitVideoJobParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submits = append(f.submits, params)
	return uuid.NewString(), nil
}

func (f *fakeVideoJobService) Poll(ctx context.Context, jobID string) (*outbound.VideoJobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReason != "" {
		return &outbound.VideoJobStatus{State: domain.JobFailed, Reason: f.failReason}, nil
	}
	return &outbound.VideoJobStatus{
		State:    domain.JobCompleted,
		VideoURL: "https://clips.local/" + jobID + ".mp4",
		Duration: 5,
	}, nil
}

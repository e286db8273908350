package mock_backend

import (
	"sync"

	"generate-video-pipeline/domain"
)

type jobRecord struct {
	ID        string   `json:"job_id"`
	State     string   `json:"state"`
	ImageURLs []string `json:"image_urls,omitempty"`
	VideoURL  string   `json:"video_url,omitempty"`
	Duration  float64  `json:"duration,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

type jobStore struct {
	mu   sync.Mutex
	jobs map[string]*jobRecord
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*jobRecord)}
}

func (s *jobStore) put(job *jobRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *jobStore) get(id string) (jobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return jobRecord{}, false
	}
	return *job, true
}

// advance moves a job forward unless it is already terminal, which keeps
// cancelled jobs cancelled even when a transition was already scheduled.
func (s *jobStore) advance(id string, state domain.JobState, apply func(*jobRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || domain.JobState(job.State).IsTerminal() {
		return
	}
	job.State = string(state)
	if apply != nil {
		apply(job)
	}
}

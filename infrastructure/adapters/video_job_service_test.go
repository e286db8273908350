package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

func newVideoJobService(t *testing.T, handler http.HandlerFunc) outbound.VideoJobServicePort {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := nopLogger{}
	return NewVideoJobService(
		NewContentFetcher(logger),
		&staticAuthorizer{token: "test-token"},
		&config.VideoServiceConfig{ApiUrl: server.URL},
		logger)
}

func TestVideoJobServiceSubmitForwardsFramePair(t *testing.T) {
	var got submitVideoJobRequest
	service := newVideoJobService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/videos/jobs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(submitJobResponse{JobID: "vid-7"})
	})

	jobID, err := service.Submit(context.Background(), outbound.SubmitVideoJobParams{
		Prompt:        "the gates swing open",
		FirstFrameURL: "https://img.local/start.png",
		LastFrameURL:  "https://img.local/end.png",
	})
	if err != nil {
		t.Fatal("submit failed:", err)
	}
	if jobID != "vid-7" {
		t.Fatal("expected vid-7, got", jobID)
	}
	if got.FirstFrameURL != "https://img.local/start.png" || got.LastFrameURL != "https://img.local/end.png" {
		t.Fatalf("frame pair not forwarded: %+v", got)
	}
}

func TestVideoJobServicePollReturnsClipDetails(t *testing.T) {
	service := newVideoJobService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/videos/jobs/vid-7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(videoJobStatusResponse{
			State:    string(domain.JobCompleted),
			VideoURL: "https://clips.local/vid-7.mp4",
			Duration: 5,
		})
	})

	status, err := service.Poll(context.Background(), "vid-7")
	if err != nil {
		t.Fatal("poll failed:", err)
	}
	if status.State != domain.JobCompleted {
		t.Fatal("expected completed state, got", status.State)
	}
	if status.VideoURL != "https://clips.local/vid-7.mp4" || status.Duration != 5 {
		t.Fatalf("clip details missing: %+v", status)
	}
}

func TestVideoJobServicePollServerErrorIsTransport(t *testing.T) {
	service := newVideoJobService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := service.Poll(context.Background(), "vid-7")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatal("expected transport error, got", err)
	}
}

package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

type submitVideoJobRequest struct {
	Prompt        string `json:"prompt"`
	FirstFrameURL string `json:"first_frame_url"`
	LastFrameURL  string `json:"last_frame_url"`
}

type videoJobStatusResponse struct {
	State    string  `json:"state"`
	VideoURL string  `json:"video_url"`
	Duration float64 `json:"duration"`
	Reason   string  `json:"reason"`
}

type videoJobService struct {
	ContentFetcher
	logger     outbound.LoggerPort
	authorizer Authorizer
	conf       *config.VideoServiceConfig
}

func NewVideoJobService(contentFetcher ContentFetcher, authorizer Authorizer, conf *config.VideoServiceConfig, logger outbound.LoggerPort) outbound.VideoJobServicePort {
	return &videoJobService{
		ContentFetcher: contentFetcher,
		logger:         logger,
		authorizer:     authorizer,
		conf:           conf,
	}
}

func (v *videoJobService) Submit(ctx context.Context, params outbound.SubmitVideoJobParams) (string, error) {
	reqBody := submitVideoJobRequest{
		Prompt:        params.Prompt,
		FirstFrameURL: params.FirstFrameURL,
		LastFrameURL:  params.LastFrameURL,
	}

	payloadBytes, err := json.Marshal(reqBody)
	if err != nil {
		v.logger.Error(err, "Failed to marshal the request body")
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", v.conf.ApiUrl+"/v1/videos/jobs", bytes.NewBuffer(payloadBytes))
	if err != nil {
		v.logger.Error(err, "Failed to create the HTTP request")
		return "", err
	}
	if err := v.applyAuth(ctx, req); err != nil {
		return "", err
	}

	payload, status, err := v.FetchContent(req)
	if err != nil {
		return "", fmt.Errorf("%w: video job submission: %v", domain.ErrTransport, err)
	}
	if err := classifySubmitStatus(status, payload); err != nil {
		return "", err
	}

	var submitted submitJobResponse
	if err := json.Unmarshal(payload, &submitted); err != nil {
		v.logger.Error(err, "Failed to unmarshal video job submission response")
		return "", err
	}
	return submitted.JobID, nil
}

func (v *videoJobService) Poll(ctx context.Context, jobID string) (*outbound.VideoJobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", v.conf.ApiUrl+"/v1/videos/jobs/"+jobID, nil)
	if err != nil {
		v.logger.Error(err, "Failed to create the HTTP request")
		return nil, err
	}
	if err := v.applyAuth(ctx, req); err != nil {
		return nil, err
	}

	payload, status, err := v.FetchContent(req)
	if err != nil {
		return nil, fmt.Errorf("%w: video job poll: %v", domain.ErrTransport, err)
	}
	if err := classifyPollStatus(status, jobID, payload); err != nil {
		return nil, err
	}

	var body videoJobStatusResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		v.logger.Error(err, "Failed to unmarshal video job status")
		return nil, err
	}

	return &outbound.VideoJobStatus{
		State:    domain.JobState(body.State),
		VideoURL: body.VideoURL,
		Duration: body.Duration,
		Reason:   body.Reason,
	}, nil
}

func (v *videoJobService) applyAuth(ctx context.Context, req *http.Request) error {
	token, err := v.authorizer.Authorize(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return nil
}

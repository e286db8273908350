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

type weightedImagePayload struct {
	URL    string  `json:"url"`
	Weight float64 `json:"weight"`
}

type submitImageJobRequest struct {
	Prompt          string                 `json:"prompt"`
	ReferenceImages []weightedImagePayload `json:"reference_images,omitempty"`
	CharacterImages []weightedImagePayload `json:"character_images,omitempty"`
	StyleImageURLs  []string               `json:"style_image_urls,omitempty"`
	Count           int                    `json:"n"`
}

type submitJobResponse struct {
	JobID string `json:"job_id"`
}

type imageJobStatusResponse struct {
	State     string   `json:"state"`
	ImageURLs []string `json:"image_urls"`
	Reason    string   `json:"reason"`
}

type imageJobService struct {
	ContentFetcher
	logger     outbound.LoggerPort
	authorizer Authorizer
	conf       *config.ImageServiceConfig
}

func NewImageJobService(contentFetcher ContentFetcher, authorizer Authorizer, conf *config.ImageServiceConfig, logger outbound.LoggerPort) outbound.ImageJobServicePort {
	return &imageJobService{
		ContentFetcher: contentFetcher,
		logger:         logger,
		authorizer:     authorizer,
		conf:           conf,
	}
}

func (i *imageJobService) Submit(ctx context.Context, params outbound.SubmitImageJobParams) (string, error) {
	reqBody := submitImageJobRequest{
		Prompt:          params.Prompt,
		ReferenceImages: toWeightedPayload(params.ReferenceImages),
		CharacterImages: toWeightedPayload(params.CharacterImages),
		StyleImageURLs:  params.StyleImageURLs,
		Count:           params.Count,
	}

	req, err := i.createRequest(ctx, "POST", i.conf.ApiUrl+"/v1/images/jobs", reqBody)
	if err != nil {
		return "", err
	}

	payload, status, err := i.FetchContent(req)
	if err != nil {
		return "", fmt.Errorf("%w: image job submission: %v", domain.ErrTransport, err)
	}
	if err := classifySubmitStatus(status, payload); err != nil {
		return "", err
	}

	var submitted submitJobResponse
	if err := json.Unmarshal(payload, &submitted); err != nil {
		i.logger.Error(err, "Failed to unmarshal image job submission response")
		return "", err
	}
	return submitted.JobID, nil
}

func (i *imageJobService) Poll(ctx context.Context, jobID string) (*outbound.ImageJobStatus, error) {
	req, err := i.createRequest(ctx, "GET", i.conf.ApiUrl+"/v1/images/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	payload, status, err := i.FetchContent(req)
	if err != nil {
		return nil, fmt.Errorf("%w: image job poll: %v", domain.ErrTransport, err)
	}
	if err := classifyPollStatus(status, jobID, payload); err != nil {
		return nil, err
	}

	var body imageJobStatusResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		i.logger.Error(err, "Failed to unmarshal image job status")
		return nil, err
	}

	return &outbound.ImageJobStatus{
		State:     domain.JobState(body.State),
		ImageURLs: body.ImageURLs,
		Reason:    body.Reason,
	}, nil
}

func (i *imageJobService) Cancel(ctx context.Context, jobID string) error {
	req, err := i.createRequest(ctx, "DELETE", i.conf.ApiUrl+"/v1/images/jobs/"+jobID, nil)
	if err != nil {
		return err
	}

	_, status, err := i.FetchContent(req)
	if err != nil {
		return fmt.Errorf("%w: image job cancel: %v", domain.ErrTransport, err)
	}
	if status >= http.StatusBadRequest && status != http.StatusNotFound {
		return fmt.Errorf("image job cancel returned status %d", status)
	}
	return nil
}

func (i *imageJobService) createRequest(ctx context.Context, method string, url string, body interface{}) (*http.Request, error) {
	var reader *bytes.Buffer
	if body != nil {
		payloadBytes, err := json.Marshal(body)
		if err != nil {
			i.logger.Error(err, "Failed to marshal the request body")
			return nil, err
		}
		reader = bytes.NewBuffer(payloadBytes)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		i.logger.Error(err, "Failed to create the HTTP request")
		return nil, err
	}

	token, err := i.authorizer.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func toWeightedPayload(images []domain.WeightedImage) []weightedImagePayload {
	if len(images) == 0 {
		return nil
	}
	payload := make([]weightedImagePayload, 0, len(images))
	for _, img := range images {
		payload = append(payload, weightedImagePayload{URL: img.URL, Weight: img.Weight})
	}
	return payload
}

// classifySubmitStatus maps submission responses onto the domain taxonomy:
// client errors are permanent rejections, throttling and server errors are
// retriable transport failures.
func classifySubmitStatus(status int, payload []byte) error {
	switch {
	case status < http.StatusBadRequest:
		return nil
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: submission returned status %d", domain.ErrTransport, status)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrSubmissionRejected, status, string(payload))
	}
}

func classifyPollStatus(status int, jobID string, payload []byte) error {
	switch {
	case status < http.StatusBadRequest:
		return nil
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: poll returned status %d", domain.ErrTransport, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: job %s", domain.ErrNotFound, jobID)
	default:
		return fmt.Errorf("%w: poll returned status %d: %s", domain.ErrProviderFailure, status, string(payload))
	}
}

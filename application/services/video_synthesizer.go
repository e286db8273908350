package services

import (
	"context"
	"fmt"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
	"generate-video-pipeline/poller"
)

type videoSynthesizer struct {
	logger       outbound.LoggerPort
	videoJobs    outbound.VideoJobServicePort
	pollerConfig *config.PollerConfig
}

func NewVideoSynthesizer(logger outbound.LoggerPort, videoJobs outbound.VideoJobServicePort,
	pollerConfig *config.PollerConfig) inbound.VideoSynthesizerPort {
	return &videoSynthesizer{
		logger:       logger,
		videoJobs:    videoJobs,
		pollerConfig: pollerConfig,
	}
}

func (s *videoSynthesizer) Synthesize(ctx context.Context, params inbound.SynthesizeClipParams) (*domain.GeneratedClip, error) {
	if params.StartKeyframeURL == "" || params.EndKeyframeURL == "" {
		return nil, fmt.Errorf("%w: scene %d has incomplete keyframes", domain.ErrInvalidState, params.SceneIndex)
	}

	create := func(ctx context.Context) (string, error) {
		return s.videoJobs.Submit(ctx, outbound.SubmitVideoJobParams{
			Prompt:        s.buildPrompt(params),
			FirstFrameURL: params.StartKeyframeURL,
			LastFrameURL:  params.EndKeyframeURL,
		})
	}
	poll := func(ctx context.Context, jobID string) (poller.Update[*outbound.VideoJobStatus], error) {
		status, err := s.videoJobs.Poll(ctx, jobID)
		if err != nil {
			return poller.Update[*outbound.VideoJobStatus]{}, err
		}
		return poller.Update[*outbound.VideoJobStatus]{State: status.State, Result: status, Reason: status.Reason}, nil
	}

	status, err := poller.Run(ctx, poller.Config(*s.pollerConfig), s.logger, create, poll)
	if err != nil {
		s.logger.ErrorWithFields(err, "Clip synthesis failed", map[string]interface{}{
			"scene_index": params.SceneIndex,
		})
		return nil, err
	}

	s.logger.InfoWithFields("Clip synthesized", map[string]interface{}{
		"scene_index": params.SceneIndex,
		"duration":    status.Duration,
	})

	return &domain.GeneratedClip{
		SceneIndex: params.SceneIndex,
		VideoURL:   status.VideoURL,
		Duration:   status.Duration,
		State:      domain.ClipCompleted,
	}, nil
}

func (s *videoSynthesizer) buildPrompt(params inbound.SynthesizeClipParams) string {
	prompt := params.Content
	if params.VisualDescription != "" {
		prompt += "\nVisual setting: " + params.VisualDescription
	}
	return prompt
}

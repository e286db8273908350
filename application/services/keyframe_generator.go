package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
	"generate-video-pipeline/poller"
)

const technicalConstraintsBlock = "Simple background, 1-2 subjects, static pose, centered composition, consistent lighting."

// qualityModifiers are appended only when not already present in the prompt,
// so regeneration never grows the prompt unboundedly.
var qualityModifiers = []string{"high quality", "detailed"}

type keyframeGenerator struct {
	logger         outbound.LoggerPort
	imageJobs      outbound.ImageJobServicePort
	pollerConfig   *config.PollerConfig
	pipelineConfig *config.PipelineConfig
}

func NewKeyframeGenerator(logger outbound.LoggerPort, imageJobs outbound.ImageJobServicePort,
	pollerConfig *config.PollerConfig, pipelineConfig *config.PipelineConfig) inbound.KeyframeGeneratorPort {
	return &keyframeGenerator{
		logger:         logger,
		imageJobs:      imageJobs,
		pollerConfig:   pollerConfig,
		pipelineConfig: pipelineConfig,
	}
}

func (g *keyframeGenerator) Generate(ctx context.Context, params inbound.GenerateKeyframeParams) (string, error) {
	candidates, err := g.GenerateCandidates(ctx, params, 1)
	if err != nil {
		return "", err
	}
	return candidates[0], nil
}

// GenerateCandidates resubmits the same prompt until count unique image URLs
// are collected or the attempt budget is spent. The image service is not
// deterministic, so duplicates across submissions are dropped by URL.
func (g *keyframeGenerator) GenerateCandidates(ctx context.Context, params inbound.GenerateKeyframeParams, count int) ([]string, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: candidate count must be positive", domain.ErrValidation)
	}
	submitParams, err := g.buildSubmitParams(params, count)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	unique := make([]string, 0, count)

	for attempt := 0; attempt < g.pipelineConfig.KeyframeAttempts && len(unique) < count; attempt++ {
		urls, err := g.runImageJob(ctx, submitParams)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			if errors.Is(err, domain.ErrSubmissionRejected) {
				return nil, err
			}
			g.logger.WarnWithFields("Image job attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			if errors.Is(err, domain.ErrTransport) {
				// Throttled or flaky backend: pace the resubmission the
				// same way the poll loop paces its reads.
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(poller.Backoff(poller.Config(*g.pollerConfig), attempt)):
				}
			}
			continue
		}
		for _, imageURL := range urls {
			if _, ok := seen[imageURL]; ok {
				continue
			}
			seen[imageURL] = struct{}{}
			unique = append(unique, imageURL)
		}
	}

	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no images produced after %d attempts",
			domain.ErrGenerationFailed, g.pipelineConfig.KeyframeAttempts)
	}
	if len(unique) > count {
		unique = unique[:count]
	}
	return unique, nil
}

func (g *keyframeGenerator) runImageJob(ctx context.Context, submitParams outbound.SubmitImageJobParams) ([]string, error) {
	var jobID string
	create := func(ctx context.Context) (string, error) {
		id, err := g.imageJobs.Submit(ctx, submitParams)
		jobID = id
		return id, err
	}
	poll := func(ctx context.Context, jobID string) (poller.Update[[]string], error) {
		status, err := g.imageJobs.Poll(ctx, jobID)
		if err != nil {
			return poller.Update[[]string]{}, err
		}
		return poller.Update[[]string]{State: status.State, Result: status.ImageURLs, Reason: status.Reason}, nil
	}

	urls, err := poller.Run(ctx, poller.Config(*g.pollerConfig), g.logger, create, poll)
	if err != nil && ctx.Err() != nil && jobID != "" {
		// Best effort: tell the provider to stop burning GPU time on a
		// job nobody is waiting for anymore.
		if cancelErr := g.imageJobs.Cancel(context.WithoutCancel(ctx), jobID); cancelErr != nil {
			g.logger.Debug("Failed to cancel abandoned image job: " + cancelErr.Error())
		}
	}
	return urls, err
}

func (g *keyframeGenerator) buildSubmitParams(params inbound.GenerateKeyframeParams, count int) (outbound.SubmitImageJobParams, error) {
	var submit outbound.SubmitImageJobParams

	for _, img := range params.SelectedImages {
		if err := validateReferenceURL(img.URL); err != nil {
			return submit, err
		}
		submit.ReferenceImages = append(submit.ReferenceImages, domain.WeightedImage{
			URL:    img.URL,
			Weight: g.clampWeight(img.Weight),
		})
	}
	for _, ref := range params.ReferenceImages {
		if err := validateReferenceURL(ref.URL); err != nil {
			return submit, err
		}
		submit.ReferenceImages = append(submit.ReferenceImages, domain.WeightedImage{
			URL:    ref.URL,
			Weight: g.clampWeight(ref.Weight),
		})
	}
	if params.CharacterImage != nil {
		if err := validateReferenceURL(params.CharacterImage.URL); err != nil {
			return submit, err
		}
		submit.CharacterImages = append(submit.CharacterImages, domain.WeightedImage{
			URL:    params.CharacterImage.URL,
			Weight: g.pipelineConfig.CharacterWeight,
		})
	}
	if params.StyleReferenceURL != "" {
		if err := validateReferenceURL(params.StyleReferenceURL); err != nil {
			return submit, err
		}
		submit.StyleImageURLs = append(submit.StyleImageURLs, params.StyleReferenceURL)
	}

	submit.Prompt = g.buildPrompt(params)
	submit.Count = count
	return submit, nil
}

// buildPrompt assembles the final prompt in a fixed block order: caller
// prompt, overview context, visual context, position instruction, technical
// constraints, then quality modifiers.
func (g *keyframeGenerator) buildPrompt(params inbound.GenerateKeyframeParams) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(params.Prompt))

	if params.Overview != "" {
		b.WriteString("\nStory context: " + params.Overview)
	}
	if params.VisualDescription != "" {
		b.WriteString("\nVisual setting: " + params.VisualDescription)
	}
	if params.Position == domain.StartKeyframePosition {
		b.WriteString("\nThis frame opens the scene: capture the initiating action at its first moment.")
	} else {
		b.WriteString("\nThis frame closes the scene: capture the culmination of the action.")
	}
	b.WriteString("\n" + technicalConstraintsBlock)

	prompt := b.String()
	for _, modifier := range qualityModifiers {
		if !strings.Contains(strings.ToLower(prompt), modifier) {
			prompt += ", " + modifier
		}
	}
	return prompt
}

func (g *keyframeGenerator) clampWeight(weight float64) float64 {
	if weight < g.pipelineConfig.MinReferenceWeight {
		return g.pipelineConfig.MinReferenceWeight
	}
	if weight > g.pipelineConfig.MaxReferenceWeight {
		return g.pipelineConfig.MaxReferenceWeight
	}
	return weight
}

func validateReferenceURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidReference, raw)
	}
	return nil
}

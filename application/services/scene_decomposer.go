package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

type sceneDecomposer struct {
	logger           outbound.LoggerPort
	scriptDecomposer outbound.ScriptDecomposerPort
	pipelineConfig   *config.PipelineConfig
}

func NewSceneDecomposer(logger outbound.LoggerPort, scriptDecomposer outbound.ScriptDecomposerPort,
	pipelineConfig *config.PipelineConfig) inbound.SceneDecomposerPort {
	return &sceneDecomposer{
		logger:           logger,
		scriptDecomposer: scriptDecomposer,
		pipelineConfig:   pipelineConfig,
	}
}

func (s *sceneDecomposer) Decompose(ctx context.Context, params inbound.DecomposeParams) (*domain.Decomposition, error) {
	if strings.TrimSpace(params.DraftContent) == "" {
		return nil, fmt.Errorf("%w: draft content is empty", domain.ErrValidation)
	}

	raw, err := s.scriptDecomposer.Decompose(ctx, outbound.DecomposeScriptParams{
		SystemInstructions: s.buildInstructions(params.CharacterDescription),
		UserContent:        s.buildUserContent(params),
	})
	if err != nil {
		s.logger.Error(err, "Script decomposition call failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	decomposition, err := s.parse(raw)
	if err != nil {
		s.logger.ErrorWithFields(err, "Model returned an unusable decomposition", map[string]interface{}{
			"output_length": len(raw),
		})
		return nil, err
	}

	s.logger.InfoWithFields("Draft decomposed", map[string]interface{}{
		"scenes": len(decomposition.Scenes),
	})

	return decomposition, nil
}

func (s *sceneDecomposer) buildInstructions(characterDescription string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Split the user's story into exactly %d scenes of %d seconds each.\n",
		s.pipelineConfig.SceneCount, s.pipelineConfig.SceneSeconds)
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Each scene must show an action achievable within %d seconds.\n", s.pipelineConfig.SceneSeconds)
	b.WriteString("- Scenes must follow a logical progression from first to last.\n" +
		"- For each scene, write a start prompt and an end prompt describing a clear cause and effect within that scene.\n" +
		"- Keep the character's appearance identical across every prompt; only pose and expression may change.\n")
	if characterDescription != "" {
		fmt.Fprintf(&b, "- The main character: %s\n", characterDescription)
	}
	b.WriteString("Respond with JSON only, no prose, in this shape:\n" +
		`{"overview": "...", "scenes": [{"content": "...", "visual_description": "...", "start_prompt": "...", "end_prompt": "..."}]}`)
	return b.String()
}

func (s *sceneDecomposer) buildUserContent(params inbound.DecomposeParams) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(params.DraftContent))
	for _, text := range params.ReferenceTexts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString("\n\nReference material:\n")
		b.WriteString(text)
	}
	return b.String()
}

// parse validates the model output shape: exactly the configured scene
// count, every field populated. Anything less is rejected whole.
func (s *sceneDecomposer) parse(raw string) (*domain.Decomposition, error) {
	cleaned := stripCodeFences(raw)

	var decomposition domain.Decomposition
	if err := json.Unmarshal([]byte(cleaned), &decomposition); err != nil {
		return nil, fmt.Errorf("%w: decomposition output is not valid JSON: %v", domain.ErrValidation, err)
	}

	if len(decomposition.Scenes) != s.pipelineConfig.SceneCount {
		return nil, fmt.Errorf("%w: expected %d scenes, model returned %d",
			domain.ErrValidation, s.pipelineConfig.SceneCount, len(decomposition.Scenes))
	}
	for i, scene := range decomposition.Scenes {
		if strings.TrimSpace(scene.Content) == "" ||
			strings.TrimSpace(scene.StartPrompt) == "" ||
			strings.TrimSpace(scene.EndPrompt) == "" {
			return nil, fmt.Errorf("%w: scene %d is missing required fields", domain.ErrValidation, i)
		}
	}

	return &decomposition, nil
}

func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

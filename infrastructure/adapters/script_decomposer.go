package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/donovanhide/eventsource"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
)

const DoneSignal = "[DONE]"
const MaxRetries = 3

type chatRequest struct {
	Stream   bool          `json:"stream"`
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunkBody struct {
	Choices []chatResponseChoice `json:"choices"`
}

type chatResponseChoice struct {
	Index int `json:"index"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

type llmScriptDecomposer struct {
	logger    outbound.LoggerPort
	llmConfig *config.LlmConfig
}

func NewLlmScriptDecomposer(llmConfig *config.LlmConfig, logger outbound.LoggerPort) outbound.ScriptDecomposerPort {
	return &llmScriptDecomposer{
		logger:    logger,
		llmConfig: llmConfig,
	}
}

// Decompose streams the completion over SSE and accumulates the deltas into
// one string. The caller gets either the full completion or an error, never
// a partial document.
func (s *llmScriptDecomposer) Decompose(ctx context.Context, params outbound.DecomposeScriptParams) (string, error) {
	req, err := s.createRequest(ctx, params)
	if err != nil {
		s.logger.Error(err, "Failed to create HTTP request for completion stream")
		return "", err
	}

	stream, err := eventsource.SubscribeWithRequest("", req)
	if err != nil {
		s.logger.Error(err, "Failed to subscribe to completion stream")
		return "", err
	}
	defer stream.Close()

	var completion strings.Builder
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev := <-stream.Events:
			if ev.Data() == DoneSignal {
				return completion.String(), nil
			}
			payload, err := s.extractPayload(ev)
			if err != nil {
				return "", err
			}
			completion.WriteString(payload)
			retryCount = 0
		case err := <-stream.Errors:
			if err == io.EOF {
				s.logger.Info("Completion stream closed")
				return completion.String(), nil
			}
			if retryCount < MaxRetries {
				s.logger.ErrorWithFields(err, "Error occurred during streaming, retrying", map[string]interface{}{
					"retry_count": retryCount})
				retryCount++
				continue
			}
			s.logger.Error(err, "Error occurred during streaming, max retries reached")
			return "", err
		}
	}
}

func (s *llmScriptDecomposer) extractPayload(event eventsource.Event) (string, error) {
	var chunkBody chatChunkBody
	err := json.Unmarshal([]byte(event.Data()), &chunkBody)
	if err != nil {
		s.logger.Error(err, "Failed to unmarshal event data")
		return "", err
	}
	if len(chunkBody.Choices) == 0 {
		return "", nil
	}

	return chunkBody.Choices[0].Delta.Content, nil
}

func (s *llmScriptDecomposer) createRequest(ctx context.Context, params outbound.DecomposeScriptParams) (*http.Request, error) {
	promptReq := chatRequest{
		Stream: true,
		Model:  s.llmConfig.Model,
		Messages: []chatMessage{
			{Role: "system", Content: params.SystemInstructions},
			{Role: "user", Content: params.UserContent},
		},
	}

	payloadBytes, err := json.Marshal(promptReq)
	if err != nil {
		s.logger.Error(err, "Failed to marshal the request body")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.llmConfig.ApiUrl, bytes.NewBuffer(payloadBytes))
	if err != nil {
		s.logger.Error(err, "Failed to create the HTTP request")
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+s.llmConfig.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

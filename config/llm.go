package config

import (
	"fmt"
	"os"
)

type LlmConfig struct {
	ApiUrl string
	ApiKey string
	Model  string
}

func GetLlmConfig() (*LlmConfig, error) {
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		return nil, fmt.Errorf("LLM_MODEL must be set")
	}
	apiUrl := os.Getenv("LLM_API_URL")
	if apiUrl == "" {
		return nil, fmt.Errorf("LLM_API_URL must be set")
	}
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY must be set")
	}
	return &LlmConfig{
		ApiUrl: apiUrl,
		ApiKey: apiKey,
		Model:  model,
	}, nil
}

package config

import (
	"fmt"
	"os"
)

type VideoServiceConfig struct {
	ApiUrl string
}

func GetVideoServiceConfig() (*VideoServiceConfig, error) {
	apiUrl := os.Getenv("VIDEO_SERVICE_URL")
	if apiUrl == "" {
		return nil, fmt.Errorf("VIDEO_SERVICE_URL must be set")
	}
	return &VideoServiceConfig{
		ApiUrl: apiUrl,
	}, nil
}

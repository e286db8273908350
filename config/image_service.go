package config

import (
	"fmt"
	"os"
)

type ImageServiceConfig struct {
	ApiUrl string
}

func GetImageServiceConfig() (*ImageServiceConfig, error) {
	apiUrl := os.Getenv("IMAGE_SERVICE_URL")
	if apiUrl == "" {
		return nil, fmt.Errorf("IMAGE_SERVICE_URL must be set")
	}
	return &ImageServiceConfig{
		ApiUrl: apiUrl,
	}, nil
}

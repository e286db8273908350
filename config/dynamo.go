package config

import (
	"fmt"
	"os"
)

type DynamoConfig struct {
	RunsTableName   string
	DraftsTableName string
	TextsTableName  string
}

func GetDynamoConfig() (*DynamoConfig, error) {
	runsTable := os.Getenv("DYNAMO_RUNS_TABLE")
	if runsTable == "" {
		return nil, fmt.Errorf("DYNAMO_RUNS_TABLE must be set")
	}
	draftsTable := os.Getenv("DYNAMO_DRAFTS_TABLE")
	if draftsTable == "" {
		return nil, fmt.Errorf("DYNAMO_DRAFTS_TABLE must be set")
	}
	textsTable := os.Getenv("DYNAMO_TEXTS_TABLE")
	if textsTable == "" {
		return nil, fmt.Errorf("DYNAMO_TEXTS_TABLE must be set")
	}

	return &DynamoConfig{
		RunsTableName:   runsTable,
		DraftsTableName: draftsTable,
		TextsTableName:  textsTable,
	}, nil
}

package adapters

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
)

type dynamoTextItem struct {
	ID   string `dynamodbav:"id"`
	Body string `dynamodbav:"body"`
}

type dynamoTextStore struct {
	logger       outbound.LoggerPort
	dynamoSvc    *dynamodb.DynamoDB
	dynamoConfig *config.DynamoConfig
}

func NewDynamoTextStore(logger outbound.LoggerPort, dynamoSvc *dynamodb.DynamoDB, dynamoConfig *config.DynamoConfig) outbound.ReferenceTextStorePort {
	return &dynamoTextStore{
		logger:       logger,
		dynamoSvc:    dynamoSvc,
		dynamoConfig: dynamoConfig,
	}
}

// GetTexts batch-reads the reference text bodies. Ids Dynamo does not know
// about simply do not come back, which callers treat as fine.
func (d *dynamoTextStore) GetTexts(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]map[string]*dynamodb.AttributeValue, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, map[string]*dynamodb.AttributeValue{
			"id": {S: aws.String(id)},
		})
	}

	input := &dynamodb.BatchGetItemInput{
		RequestItems: map[string]*dynamodb.KeysAndAttributes{
			d.dynamoConfig.TextsTableName: {Keys: keys},
		},
	}

	out, err := d.dynamoSvc.BatchGetItemWithContext(ctx, input)
	if err != nil {
		d.logger.Error(err, "Failed to batch read reference texts")
		return nil, err
	}

	texts := make([]string, 0, len(ids))
	for _, av := range out.Responses[d.dynamoConfig.TextsTableName] {
		var item dynamoTextItem
		if err := dynamodbattribute.UnmarshalMap(av, &item); err != nil {
			d.logger.Error(err, "Failed to unmarshal reference text item")
			return nil, err
		}
		texts = append(texts, item.Body)
	}

	return texts, nil
}

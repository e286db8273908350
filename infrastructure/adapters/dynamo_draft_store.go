package adapters

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

type dynamoDraftItem struct {
	OwnerID          string   `dynamodbav:"owner_id"`
	ID               string   `dynamodbav:"id"`
	Content          string   `dynamodbav:"content"`
	ReferenceTextIDs []string `dynamodbav:"reference_text_ids"`
}

type dynamoDraftStore struct {
	logger       outbound.LoggerPort
	dynamoSvc    *dynamodb.DynamoDB
	dynamoConfig *config.DynamoConfig
}

func NewDynamoDraftStore(logger outbound.LoggerPort, dynamoSvc *dynamodb.DynamoDB, dynamoConfig *config.DynamoConfig) outbound.DraftStorePort {
	return &dynamoDraftStore{
		logger:       logger,
		dynamoSvc:    dynamoSvc,
		dynamoConfig: dynamoConfig,
	}
}

func (d *dynamoDraftStore) GetDraft(ctx context.Context, ownerID string, draftID string) (*domain.Draft, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(d.dynamoConfig.DraftsTableName),
		Key: map[string]*dynamodb.AttributeValue{
			"owner_id": {S: aws.String(ownerID)},
			"id":       {S: aws.String(draftID)},
		},
	}

	out, err := d.dynamoSvc.GetItemWithContext(ctx, input)
	if err != nil {
		d.logger.ErrorWithFields(err, "Failed to read draft item", map[string]interface{}{
			"draft_id": draftID,
		})
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: draft %s", domain.ErrNotFound, draftID)
	}

	var item dynamoDraftItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		d.logger.Error(err, "Failed to unmarshal draft item")
		return nil, err
	}

	return &domain.Draft{
		Content:          item.Content,
		ReferenceTextIDs: item.ReferenceTextIDs,
	}, nil
}

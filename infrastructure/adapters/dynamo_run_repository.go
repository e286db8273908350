package adapters

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/google/uuid"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

const draftIndexName = "draft_id-index"

type dynamoRunItem struct {
	ID            string                          `dynamodbav:"id"`
	DraftID       string                          `dynamodbav:"draft_id"`
	OwnerID       string                          `dynamodbav:"owner_id"`
	Status        string                          `dynamodbav:"status"`
	Overview      string                          `dynamodbav:"overview"`
	Scenes        []domain.Scene                  `dynamodbav:"scenes"`
	SceneVideos   map[string]domain.GeneratedClip `dynamodbav:"scene_videos"`
	Selection     domain.RunSelection             `dynamodbav:"selection"`
	FailureReason string                          `dynamodbav:"failure_reason"`
	Version       int64                           `dynamodbav:"version"`
	CreatedAt     int64                           `dynamodbav:"created_at"`
	UpdatedAt     int64                           `dynamodbav:"updated_at"`
}

type dynamoRunRepository struct {
	logger       outbound.LoggerPort
	dynamoSvc    dynamodbiface.DynamoDBAPI
	dynamoConfig *config.DynamoConfig
}

func NewDynamoRunRepository(logger outbound.LoggerPort, dynamoSvc dynamodbiface.DynamoDBAPI, dynamoConfig *config.DynamoConfig) outbound.RunRepositoryPort {
	return &dynamoRunRepository{
		logger:       logger,
		dynamoSvc:    dynamoSvc,
		dynamoConfig: dynamoConfig,
	}
}

func (r *dynamoRunRepository) Create(ctx context.Context, run *domain.PipelineRun) (string, error) {
	id := uuid.NewString()
	item := dynamoRunItem{
		ID:            id,
		DraftID:       run.DraftID,
		OwnerID:       run.OwnerID,
		Status:        string(run.Status),
		Overview:      run.Overview,
		Scenes:        run.Scenes,
		SceneVideos:   map[string]domain.GeneratedClip{},
		Selection:     run.Selection,
		FailureReason: "",
		Version:       0,
		CreatedAt:     run.CreatedAt.Unix(),
		UpdatedAt:     run.UpdatedAt.Unix(),
	}

	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		r.logger.ErrorWithFields(err, "Failed to marshal run item", map[string]interface{}{
			"run_id": id,
		})
		return "", err
	}

	input := &dynamodb.PutItemInput{
		Item:                av,
		TableName:           aws.String(r.dynamoConfig.RunsTableName),
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}

	_, err = r.dynamoSvc.PutItemWithContext(ctx, input)
	if err != nil {
		r.logger.ErrorWithFields(err, "Failed to save run item", map[string]interface{}{
			"run_id": id,
		})
		return "", err
	}

	run.Version = 0
	return id, nil
}

func (r *dynamoRunRepository) Get(ctx context.Context, id string) (*domain.PipelineRun, error) {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(r.dynamoConfig.RunsTableName),
		Key:            runKey(id),
		ConsistentRead: aws.Bool(true),
	}

	out, err := r.dynamoSvc.GetItemWithContext(ctx, input)
	if err != nil {
		r.logger.ErrorWithFields(err, "Failed to read run item", map[string]interface{}{
			"run_id": id,
		})
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
	}

	return unmarshalRun(out.Item)
}

func (r *dynamoRunRepository) FindByDraft(ctx context.Context, draftID string, ownerID string) (*domain.PipelineRun, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.dynamoConfig.RunsTableName),
		IndexName:              aws.String(draftIndexName),
		KeyConditionExpression: aws.String("draft_id = :draft"),
		FilterExpression:       aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":draft": {S: aws.String(draftID)},
			":owner": {S: aws.String(ownerID)},
		},
	}

	out, err := r.dynamoSvc.QueryWithContext(ctx, input)
	if err != nil {
		r.logger.ErrorWithFields(err, "Failed to query runs by draft", map[string]interface{}{
			"draft_id": draftID,
		})
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%w: no run for draft %s", domain.ErrNotFound, draftID)
	}

	// The index projects everything; runs found through it may be stale by
	// one write, which Get with consistent read avoids.
	found, err := unmarshalRun(out.Items[0])
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, found.ID)
}

func (r *dynamoRunRepository) UpdateStatus(ctx context.Context, id string, expectedVersion int64, status domain.RunStatus, failureReason string) error {
	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.dynamoConfig.RunsTableName),
		Key:                 runKey(id),
		UpdateExpression:    aws.String("SET #status = :status, failure_reason = :reason, version = :next, updated_at = :now"),
		ConditionExpression: aws.String("version = :expected"),
		ExpressionAttributeNames: map[string]*string{
			"#status": aws.String("status"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":status":   {S: aws.String(string(status))},
			":reason":   {S: aws.String(failureReason)},
			":expected": numberValue(expectedVersion),
			":next":     numberValue(expectedVersion + 1),
			":now":      numberValue(time.Now().Unix()),
		},
	}

	_, err := r.dynamoSvc.UpdateItemWithContext(ctx, input)
	return r.translateUpdateError(err, id)
}

func (r *dynamoRunRepository) UpdateDecomposition(ctx context.Context, id string, expectedVersion int64, overview string, scenes []domain.Scene, status domain.RunStatus) error {
	scenesAttr, err := dynamodbattribute.Marshal(scenes)
	if err != nil {
		r.logger.Error(err, "Failed to marshal scenes")
		return err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.dynamoConfig.RunsTableName),
		Key:                 runKey(id),
		UpdateExpression:    aws.String("SET overview = :overview, scenes = :scenes, #status = :status, failure_reason = :reason, version = :next, updated_at = :now"),
		ConditionExpression: aws.String("version = :expected"),
		ExpressionAttributeNames: map[string]*string{
			"#status": aws.String("status"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":overview": {S: aws.String(overview)},
			":scenes":   scenesAttr,
			":status":   {S: aws.String(string(status))},
			":reason":   {S: aws.String("")},
			":expected": numberValue(expectedVersion),
			":next":     numberValue(expectedVersion + 1),
			":now":      numberValue(time.Now().Unix()),
		},
	}

	_, err = r.dynamoSvc.UpdateItemWithContext(ctx, input)
	return r.translateUpdateError(err, id)
}

func (r *dynamoRunRepository) UpdateSceneKeyframes(ctx context.Context, id string, expectedVersion int64, sceneIndex int, start domain.Keyframe, end domain.Keyframe, status domain.RunStatus) error {
	startAttr, err := dynamodbattribute.Marshal(start)
	if err != nil {
		r.logger.Error(err, "Failed to marshal start keyframe")
		return err
	}
	endAttr, err := dynamodbattribute.Marshal(end)
	if err != nil {
		r.logger.Error(err, "Failed to marshal end keyframe")
		return err
	}

	// The nested attribute names must match what dynamodbattribute writes
	// for domain.Scene, not the Go field names.
	expr := fmt.Sprintf("SET scenes[%d].#start = :start, scenes[%d].#end = :end, #status = :status, version = :next, updated_at = :now", sceneIndex, sceneIndex)
	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.dynamoConfig.RunsTableName),
		Key:                 runKey(id),
		UpdateExpression:    aws.String(expr),
		ConditionExpression: aws.String("version = :expected"),
		ExpressionAttributeNames: map[string]*string{
			"#start":  aws.String("start_keyframe"),
			"#end":    aws.String("end_keyframe"),
			"#status": aws.String("status"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":start":    startAttr,
			":end":      endAttr,
			":status":   {S: aws.String(string(status))},
			":expected": numberValue(expectedVersion),
			":next":     numberValue(expectedVersion + 1),
			":now":      numberValue(time.Now().Unix()),
		},
	}

	_, err = r.dynamoSvc.UpdateItemWithContext(ctx, input)
	return r.translateUpdateError(err, id)
}

func (r *dynamoRunRepository) UpdateSceneClip(ctx context.Context, id string, expectedVersion int64, sceneIndex int, clip domain.GeneratedClip, status domain.RunStatus) error {
	clipAttr, err := dynamodbattribute.Marshal(clip)
	if err != nil {
		r.logger.Error(err, "Failed to marshal clip")
		return err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.dynamoConfig.RunsTableName),
		Key:                 runKey(id),
		UpdateExpression:    aws.String("SET scene_videos.#scene = :clip, #status = :status, version = :next, updated_at = :now"),
		ConditionExpression: aws.String("version = :expected"),
		ExpressionAttributeNames: map[string]*string{
			"#status": aws.String("status"),
			"#scene":  aws.String(strconv.Itoa(sceneIndex)),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":clip":     clipAttr,
			":status":   {S: aws.String(string(status))},
			":expected": numberValue(expectedVersion),
			":next":     numberValue(expectedVersion + 1),
			":now":      numberValue(time.Now().Unix()),
		},
	}

	_, err = r.dynamoSvc.UpdateItemWithContext(ctx, input)
	return r.translateUpdateError(err, id)
}

func (r *dynamoRunRepository) Delete(ctx context.Context, id string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.dynamoConfig.RunsTableName),
		Key:       runKey(id),
	}

	_, err := r.dynamoSvc.DeleteItemWithContext(ctx, input)
	if err != nil {
		r.logger.ErrorWithFields(err, "Failed to delete run item", map[string]interface{}{
			"run_id": id,
		})
	}
	return err
}

func (r *dynamoRunRepository) translateUpdateError(err error, id string) error {
	if err == nil {
		return nil
	}
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
		return fmt.Errorf("%w: run %s", domain.ErrConcurrentModification, id)
	}
	r.logger.ErrorWithFields(err, "Failed to update run item", map[string]interface{}{
		"run_id": id,
	})
	return err
}

func runKey(id string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"id": {S: aws.String(id)},
	}
}

func numberValue(n int64) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{N: aws.String(strconv.FormatInt(n, 10))}
}

func unmarshalRun(av map[string]*dynamodb.AttributeValue) (*domain.PipelineRun, error) {
	var item dynamoRunItem
	if err := dynamodbattribute.UnmarshalMap(av, &item); err != nil {
		return nil, err
	}

	sceneVideos := make(map[int]domain.GeneratedClip, len(item.SceneVideos))
	for key, clip := range item.SceneVideos {
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid scene video key %q: %w", key, err)
		}
		sceneVideos[index] = clip
	}

	return &domain.PipelineRun{
		ID:            item.ID,
		DraftID:       item.DraftID,
		OwnerID:       item.OwnerID,
		Status:        domain.RunStatus(item.Status),
		Overview:      item.Overview,
		Scenes:        item.Scenes,
		SceneVideos:   sceneVideos,
		Selection:     item.Selection,
		FailureReason: item.FailureReason,
		Version:       item.Version,
		CreatedAt:     time.Unix(item.CreatedAt, 0).UTC(),
		UpdatedAt:     time.Unix(item.UpdatedAt, 0).UTC(),
	}, nil
}

package adapters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

type capturingDynamoClient struct {
	dynamodbiface.DynamoDBAPI
	updateInput *dynamodb.UpdateItemInput
	updateErr   error
}

func (c *capturingDynamoClient) UpdateItemWithContext(ctx aws.Context, input *dynamodb.UpdateItemInput, opts ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	c.updateInput = input
	return &dynamodb.UpdateItemOutput{}, c.updateErr
}

func newCapturedRunRepository(client *capturingDynamoClient) outbound.RunRepositoryPort {
	return NewDynamoRunRepository(nopLogger{}, client, &config.DynamoConfig{
		RunsTableName:   "runs",
		DraftsTableName: "drafts",
		TextsTableName:  "texts",
	})
}

// The keyframe update addresses nested attributes by name; those names must
// be the ones dynamodbattribute actually writes for a scene, or the update
// lands in attributes no read ever sees.
func TestUpdateSceneKeyframesTargetsMarshalledAttributes(t *testing.T) {
	client := &capturingDynamoClient{}
	repo := newCapturedRunRepository(client)

	start := domain.Keyframe{Status: domain.KeyframeCompleted, ImageURL: "https://img.local/start.png", Prompt: "opening"}
	end := domain.Keyframe{Status: domain.KeyframeCompleted, ImageURL: "https://img.local/end.png", Prompt: "closing"}
	err := repo.UpdateSceneKeyframes(context.Background(), "run-1", 3, 1, start, end, domain.RunStatusKeyframesReady)
	if err != nil {
		t.Fatal("update failed:", err)
	}

	input := client.updateInput
	if input == nil {
		t.Fatal("no update was issued")
	}
	expr := aws.StringValue(input.UpdateExpression)
	if !strings.Contains(expr, "scenes[1].#start = :start") || !strings.Contains(expr, "scenes[1].#end = :end") {
		t.Fatal("unexpected update expression:", expr)
	}
	if strings.Contains(expr, "StartKeyframe") || strings.Contains(expr, "EndKeyframe") {
		t.Fatal("expression addresses Go field names instead of stored attributes:", expr)
	}

	sceneAttr, err := dynamodbattribute.MarshalMap(domain.Scene{StartKeyframe: start, EndKeyframe: end})
	if err != nil {
		t.Fatal("failed to marshal scene:", err)
	}
	for _, alias := range []string{"#start", "#end"} {
		resolved := aws.StringValue(input.ExpressionAttributeNames[alias])
		if resolved == "" {
			t.Fatalf("expression name %s is not bound", alias)
		}
		if _, ok := sceneAttr[resolved]; !ok {
			t.Fatalf("%s resolves to %q, which a marshalled scene does not carry", alias, resolved)
		}
	}

	var storedStart domain.Keyframe
	if err := dynamodbattribute.Unmarshal(input.ExpressionAttributeValues[":start"], &storedStart); err != nil {
		t.Fatal("failed to unmarshal stored start keyframe:", err)
	}
	if storedStart.Status != domain.KeyframeCompleted || storedStart.ImageURL != start.ImageURL {
		t.Fatalf("stored start keyframe does not round-trip: %+v", storedStart)
	}
}

func TestUpdateSceneClipAddressesSceneByIndex(t *testing.T) {
	client := &capturingDynamoClient{}
	repo := newCapturedRunRepository(client)

	clip := domain.GeneratedClip{SceneIndex: 3, State: domain.ClipCompleted, VideoURL: "https://clips.local/a.mp4"}
	if err := repo.UpdateSceneClip(context.Background(), "run-1", 5, 3, clip, domain.RunStatusGeneratingVideo); err != nil {
		t.Fatal("update failed:", err)
	}

	input := client.updateInput
	if !strings.Contains(aws.StringValue(input.UpdateExpression), "scene_videos.#scene = :clip") {
		t.Fatal("unexpected update expression:", aws.StringValue(input.UpdateExpression))
	}
	if got := aws.StringValue(input.ExpressionAttributeNames["#scene"]); got != "3" {
		t.Fatal("expected #scene to resolve to the scene index, got", got)
	}
}

func TestUpdateStatusConditionalFailureIsConcurrentModification(t *testing.T) {
	client := &capturingDynamoClient{
		updateErr: awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "version mismatch", nil),
	}
	repo := newCapturedRunRepository(client)

	err := repo.UpdateStatus(context.Background(), "run-1", 2, domain.RunStatusFailed, "boom")
	if !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatal("expected concurrent modification, got", err)
	}
}

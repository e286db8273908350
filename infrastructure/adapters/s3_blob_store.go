package adapters

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
)

type s3BlobStore struct {
	logger   outbound.LoggerPort
	s3Svc    *s3.S3
	s3Config *config.S3Config
}

func NewS3BlobStore(logger outbound.LoggerPort, s3Svc *s3.S3, s3Config *config.S3Config) outbound.BlobStorePort {
	return &s3BlobStore{
		logger:   logger,
		s3Svc:    s3Svc,
		s3Config: s3Config,
	}
}

func (s *s3BlobStore) Upload(ctx context.Context, key string, body io.Reader, length int64) (string, error) {
	putInput := &s3.PutObjectInput{
		Bucket:        aws.String(s.s3Config.BucketName),
		Key:           aws.String(key),
		Body:          aws.ReadSeekCloser(body),
		ContentLength: aws.Int64(length),
	}

	_, err := s.s3Svc.PutObjectWithContext(ctx, putInput)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to upload object to S3", map[string]interface{}{
			"bucket": s.s3Config.BucketName,
			"key":    key,
		})
		return "", err
	}

	url := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, key)
	s.logger.DebugWithFields("Successfully uploaded object to S3", map[string]interface{}{
		"url": url,
	})

	return url, nil
}

func (s *s3BlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.s3Config.BucketName),
		Prefix: aws.String(prefix),
	}

	return s.s3Svc.ListObjectsV2PagesWithContext(ctx, listInput, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		if len(page.Contents) == 0 {
			return !lastPage
		}

		objects := make([]*s3.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, &s3.ObjectIdentifier{Key: obj.Key})
		}

		_, err := s.s3Svc.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.s3Config.BucketName),
			Delete: &s3.Delete{Objects: objects},
		})
		if err != nil {
			s.logger.ErrorWithFields(err, "Failed to delete objects under prefix", map[string]interface{}{
				"bucket": s.s3Config.BucketName,
				"prefix": prefix,
			})
		}
		return !lastPage
	})
}

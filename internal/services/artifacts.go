package services

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used to store archives
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ArtifactStore keeps a copy of every published archive in S3 under
// {prefix}/{release}.zip
type S3ArtifactStore struct {
	client S3API
	bucket string
	prefix string
}

// NewS3ArtifactStore creates an artifact store writing to bucket
func NewS3ArtifactStore(client S3API, bucket, prefix string) *S3ArtifactStore {
	return &S3ArtifactStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Key returns the object key used for a release
func (s *S3ArtifactStore) Key(releaseID string) string {
	return path.Join(s.prefix, releaseID+".zip")
}

// Put uploads data and returns its s3:// location
func (s *S3ArtifactStore) Put(ctx context.Context, releaseID string, data []byte) (string, error) {
	key := s.Key(releaseID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

package infrastructure

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dropvid/clip-processing-service/domain"
)

// S3ObjectStore is the object store gateway backed by S3.
type S3ObjectStore struct {
	Client *s3.Client
}

func NewS3ObjectStore(client *s3.Client) *S3ObjectStore {
	return &S3ObjectStore{Client: client}
}

func (s *S3ObjectStore) Download(ctx context.Context, bucket, key, localPath string) error {
	resp, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: err}
	}
	defer resp.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: err}
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: err}
	}
	return nil
}

func (s *S3ObjectStore) Upload(ctx context.Context, localPath, bucket, key, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: err}
	}
	defer f.Close()

	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: err}
	}
	return nil
}

func (s *S3ObjectStore) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &domain.UploadError{Bucket: bucket, Key: key, Cause: err}
	}
	return nil
}

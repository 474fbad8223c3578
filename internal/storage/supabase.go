package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectClient is the subset of the S3 API used for avatars.
type ObjectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// SupabaseStorage stores files in a Supabase Storage bucket through its
// S3 compatible endpoint.
type SupabaseStorage struct {
	client        ObjectClient
	bucketName    string
	publicBaseURL string
}

func NewSupabaseStorage(client ObjectClient, bucketName, publicBaseURL string) *SupabaseStorage {
	return &SupabaseStorage{
		client:        client,
		bucketName:    bucketName,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// NewS3Client builds an S3 client pointed at endpoint. Supabase only
// supports path style addressing.
func NewS3Client(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})
}

// UploadFile writes the object and returns its storage key.
func (s *SupabaseStorage) UploadFile(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return key, nil
}

func (s *SupabaseStorage) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	return nil
}

// PublicURL maps a storage key to the URL clients load it from.
func (s *SupabaseStorage) PublicURL(key string) string {
	return s.publicBaseURL + "/" + s.bucketName + "/" + key
}

// KeyFromURL reverses PublicURL. It reports false for URLs that do not
// point into this bucket.
func (s *SupabaseStorage) KeyFromURL(url string) (string, bool) {
	prefix := s.publicBaseURL + "/" + s.bucketName + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}

package images

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/sited-io/websites/internal/config"
)

// ObjectAPI is the subset of the S3 client used for logos.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client builds an S3 client for cfg. A custom endpoint switches to
// path-style addressing for S3-compatible stores.
func NewS3Client(ctx context.Context, cfg config.Images) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Storage stores processed logos in a bucket.
type Storage struct {
	api     ObjectAPI
	bucket  string
	baseURL string
	maxSize int64
}

// NewStorage creates a Storage. baseURL is the public prefix objects are
// served under.
func NewStorage(api ObjectAPI, bucket, baseURL string, maxSize int64) *Storage {
	return &Storage{
		api:     api,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}
}

// Key returns a fresh object key for a logo of websiteID.
func Key(userID, websiteID string) string {
	return fmt.Sprintf("%s/%s/%s.png", userID, websiteID, uuid.NewString())
}

// PutLogo validates and normalizes data, uploads it and returns its key.
func (s *Storage) PutLogo(ctx context.Context, userID, websiteID string, data []byte) (string, error) {
	if err := Validate(data, s.maxSize); err != nil {
		return "", err
	}
	out, err := Process(data)
	if err != nil {
		return "", err
	}

	key := Key(userID, websiteID)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(out),
		ContentType:  aws.String("image/png"),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// Delete removes an object. Deleting a missing key succeeds.
func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL of key.
func (s *Storage) URL(key string) string {
	return s.baseURL + "/" + key
}

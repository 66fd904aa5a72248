package photo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config holds S3 connection configuration. Endpoint may point at a
// MinIO deployment for local development.
type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// BaseURL is the public prefix under which stored objects are served.
	// Defaults to <Endpoint>/<Bucket>.
	BaseURL string
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Region:    getEnvOrDefault("PHOTO_S3_REGION", "us-east-1"),
		Endpoint:  getEnvOrDefault("PHOTO_S3_ENDPOINT", "http://localhost:9000"),
		AccessKey: os.Getenv("PHOTO_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("PHOTO_S3_SECRET_KEY"),
		Bucket:    getEnvOrDefault("PHOTO_S3_BUCKET", "device-photos"),
		BaseURL:   os.Getenv("PHOTO_S3_BASE_URL"),
	}
}

// S3Storage stores photos in an S3-compatible object store.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Storage creates an S3-backed photo store.
func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Save uploads the photo and returns its public URL. Object keys are
// date-partitioned so buckets stay browsable as they grow.
func (s *S3Storage) Save(ctx context.Context, deviceID string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPhoto
	}

	key := storageKey(deviceID, contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put photo: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

func storageKey(deviceID, contentType string) string {
	d := time.Now().UTC()
	ext := "bin"
	switch contentType {
	case "image/jpeg":
		ext = "jpg"
	case "image/png":
		ext = "png"
	case "image/webp":
		ext = "webp"
	}
	return fmt.Sprintf("devices/%d/%02d/%02d/%s-%s.%s", d.Year(), d.Month(), d.Day(), deviceID, uuid.NewString(), ext)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Ensure S3Storage implements Storage interface.
var _ Storage = (*S3Storage)(nil)

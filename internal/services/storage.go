package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStore accepts evidence bytes and returns a retrievable URL.
type BlobStore interface {
	UploadImage(ctx context.Context, data []byte, key string) (string, error)
}

// NewBlobStore picks the backend by STORAGE_TYPE: "s3" for production,
// "local" keeps evidence on disk for development.
func NewBlobStore(ctx context.Context, storageType, bucket, region, localPath, baseURL string) (BlobStore, error) {
	switch storageType {
	case "s3":
		if bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_TYPE=s3")
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return &S3Store{
			client: s3.NewFromConfig(cfg),
			bucket: bucket,
			region: region,
		}, nil
	case "local":
		if err := os.MkdirAll(localPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir: %w", err)
		}
		return &LocalStore{basePath: localPath, baseURL: baseURL}, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", storageType)
	}
}

type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

func (s *S3Store) UploadImage(ctx context.Context, data []byte, key string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// LocalStore writes under basePath, mirroring the object key as a file path.
type LocalStore struct {
	basePath string
	baseURL  string
}

func (s *LocalStore) UploadImage(ctx context.Context, data []byte, key string) (string, error) {
	path := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create evidence dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return strings.TrimRight(s.baseURL, "/") + "/" + key, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint        string
	AccessKeyId     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
}

// MinioSigner presigns PUTs against any S3 compatible endpoint.
type MinioSigner struct {
	client *minio.Client
}

func NewMinioSigner(cfg MinioConfig) (*MinioSigner, error) {
	if cfg.Region == "" {
		// a fixed region keeps presigning offline, no bucket location lookup
		cfg.Region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyId, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioSigner{client: client}, nil
}

func (s *MinioSigner) SignedUploadURL(ctx context.Context, bucket string, objectPath string, _ string, expiresAt time.Time) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, bucket, objectPath, time.Until(expiresAt))
	if err != nil {
		return "", fmt.Errorf("presign s3://%s/%s: %w", bucket, objectPath, err)
	}
	return u.String(), nil
}

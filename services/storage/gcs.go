package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GcsSigner struct {
	client *gcs.Client
}

func NewGcsSigner(ctx context.Context, credentialsFile string) (*GcsSigner, error) {
	options := []option.ClientOption{}
	if credentialsFile != "" {
		options = append(options, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GcsSigner{client: client}, nil
}

func (s *GcsSigner) SignedUploadURL(_ context.Context, bucket string, objectPath string, contentType string, expiresAt time.Time) (string, error) {
	url, err := s.client.Bucket(bucket).SignedURL(objectPath, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("sign gs://%s/%s: %w", bucket, objectPath, err)
	}
	return url, nil
}

func (s *GcsSigner) Close() error {
	return s.client.Close()
}

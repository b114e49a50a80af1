package storage

import (
	"context"
	"fmt"
	"path"
	"primerid/api/models"
	"primerid/api/models/constants/provider"
	"time"
)

const DefaultContentType = "application/octet-stream"

// Signer issues pre-authorized single-object upload URLs.
type Signer interface {
	SignedUploadURL(ctx context.Context, bucket string, objectPath string, contentType string, expiresAt time.Time) (string, error)
}

// New returns the signer for the configured provider.
func New(ctx context.Context, cfg *models.Config) (Signer, error) {
	switch provider.CastToStorageProvider(cfg.Storage.Provider) {
	case provider.GCS:
		return NewGcsSigner(ctx, cfg.Storage.CredentialsFile)
	case provider.MINIO:
		return NewMinioSigner(MinioConfig{
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyId:     cfg.Storage.AccessKeyId,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UseSSL:          cfg.Storage.UseSSL,
		})
	default:
		return nil, fmt.Errorf("no storage provider configured for %q", cfg.Storage.Provider)
	}
}

// ObjectPath follows `{devPrefix}{jobId}/{group}/{fileName}`; an empty group drops its segment.
func ObjectPath(devPrefix string, jobId string, group string, fileName string) string {
	if group == "" {
		return devPrefix + path.Join(jobId, fileName)
	}
	return devPrefix + path.Join(jobId, group, fileName)
}

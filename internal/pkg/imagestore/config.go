package imagestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/smartcity/civicdash/internal/pkg/env"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Config holds object storage configuration for issue images
type Config struct {
	Backend         string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Prefix for the URLs stored on issues
	LocalDir        string
	MaxBytes        int64
}

// LoadConfig loads storage configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Backend:         env.GetEnv("IMAGE_STORAGE", BackendLocal),
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", "issue-images"),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("IMAGE_PUBLIC_BASE_URL", ""),
		LocalDir:        env.GetEnv("LOCAL_UPLOAD_DIR", "./uploads"),
		MaxBytes:        int64(env.GetInt("IMAGE_MAX_BYTES", 5<<20)),
	}

	switch cfg.Backend {
	case BackendLocal:
	case BackendS3:
		if cfg.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when IMAGE_STORAGE=s3")
		}
		if cfg.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when IMAGE_STORAGE=s3")
		}
		if cfg.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when IMAGE_STORAGE=s3")
		}
	default:
		return nil, fmt.Errorf("unknown IMAGE_STORAGE %q", cfg.Backend)
	}

	return cfg, nil
}

// ObjectKey generates the storage key for an issue image.
// Format: issues/YYYY/MM/<id><ext>
func ObjectKey(id, ext string, at time.Time) string {
	return fmt.Sprintf("issues/%04d/%02d/%s%s", at.Year(), int(at.Month()), id, ext)
}

// Package imagestore keeps issue photos in object storage.
package imagestore

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotConfigured = errors.New("image storage is not configured")

// Store persists image bytes under a key and returns the public URL.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3Store(ctx, cfg)
	case BackendLocal:
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("%w: backend %q", ErrNotConfigured, cfg.Backend)
	}
}

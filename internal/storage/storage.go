// Package storage keeps complaint attachments in an object store and resolves
// their public URLs. Two drivers exist: a local directory served by the API
// itself, and any S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/HussamZG/shakaoy-650/internal/config"
)

// ErrObjectExists is returned by Put when the key is taken and overwriting
// was not requested.
var ErrObjectExists = errors.New("object already exists")

// ErrInvalidKey rejects empty keys and keys that escape the bucket.
var ErrInvalidKey = errors.New("invalid object key")

// PutOptions tunes a single upload.
type PutOptions struct {
	Overwrite bool
}

// ObjectStore is the object-storage half of the backend.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64, opts PutOptions) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg. publicBaseURL is the externally
// visible API origin used by the local driver.
func New(ctx context.Context, cfg config.StorageConfig, publicBaseURL string) (ObjectStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	case "", "local":
		return NewLocalStore(cfg.Dir, cfg.Bucket, publicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func cleanKey(key string) (string, error) {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	if k == "" || strings.Contains(k, "\\") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(k, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrInvalidKey
		}
	}
	return k, nil
}

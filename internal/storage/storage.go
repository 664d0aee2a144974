package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/townmarket/townmarket-backend/config"
)

// ErrObjectNotFound is returned by Delete when the key holds no object.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore is a key to blob file store. Keys are canonical relative paths.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the blob store selected by the storage driver.
func New(storageCfg config.StorageConfig, s3Cfg config.S3Config) (BlobStore, error) {
	switch storageCfg.Driver {
	case "local":
		return NewLocalStorage(storageCfg.LocalDir)
	case "s3":
		return NewS3Storage(s3Cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", storageCfg.Driver)
	}
}

// NewObjectKey returns "<prefix>/<uuid><ext>" with the extension of filename lowercased.
func NewObjectKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return uuid.NewString() + ext
	}
	return fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)
}

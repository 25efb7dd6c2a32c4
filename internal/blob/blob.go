// Package blob maps an owner namespace and opaque storage key to file bytes.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/share-gateway/internal/config"
)

var ErrObjectNotFound = Error("object not found")

type Error string

func (e Error) Error() string {
	return string(e)
}

// Object is an open blob. Seeking lets callers answer range requests.
type Object interface {
	io.ReadSeeker
	io.Closer
}

type ObjectInfo struct {
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Store is implemented by the MinIO, S3 and local disk drivers.
type Store interface {
	Open(ctx context.Context, ownerID, key string) (Object, *ObjectInfo, error)
	Exists(ctx context.Context, ownerID, key string) (bool, error)
	Put(ctx context.Context, ownerID, key string, r io.Reader, size int64, contentType string) error
}

var _ Store = (*S3Store)(nil)
var _ Store = (*MinIOStore)(nil)
var _ Store = (*LocalStore)(nil)

// NewStore picks the driver named by cfg.Type.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "minio":
		return NewMinIOStore(cfg.MinIO)
	case "s3":
		return NewS3Store(cfg.S3)
	case "local", "":
		return NewLocalStore(cfg.Local.RootPath)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

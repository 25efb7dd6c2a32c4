package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/share-gateway/internal/config"
)

// MinIOStore keeps each owner's blobs in its own bucket.
type MinIOStore struct {
	client       *minio.Client
	bucketPrefix string
}

func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{
		client:       client,
		bucketPrefix: cfg.BucketPrefix,
	}, nil
}

func (s *MinIOStore) bucketName(ownerID string) string {
	return strings.ToLower(s.bucketPrefix + ownerID)
}

func (s *MinIOStore) ensureBucket(ctx context.Context, ownerID string) error {
	bucketName := s.bucketName(ownerID)

	exists, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}

	return nil
}

func (s *MinIOStore) Open(ctx context.Context, ownerID, key string) (Object, *ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName(ownerID), normalizeKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object: %w", minioErr(err))
	}

	// GetObject is lazy; Stat performs the request.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, fmt.Errorf("stat object: %w", minioErr(err))
	}

	return obj, &ObjectInfo{
		Size:        stat.Size,
		ModTime:     stat.LastModified,
		ContentType: stat.ContentType,
	}, nil
}

func (s *MinIOStore) Exists(ctx context.Context, ownerID, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName(ownerID), normalizeKey(key), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minioErr(err) == ErrObjectNotFound {
		return false, nil
	}
	return false, fmt.Errorf("stat object: %w", err)
}

func (s *MinIOStore) Put(ctx context.Context, ownerID, key string, r io.Reader, size int64, contentType string) error {
	if err := s.ensureBucket(ctx, ownerID); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.bucketName(ownerID), normalizeKey(key), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func minioErr(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrObjectNotFound
	}
	return err
}

func normalizeKey(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

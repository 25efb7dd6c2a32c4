package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/share-gateway/internal/config"
)

// s3API is the subset of *s3.Client the store needs.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps all blobs in one bucket under <owner>/<key>.
type S3Store struct {
	client s3API
	bucket string
}

func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &S3Store{
		client: s3.New(opts),
		bucket: cfg.Bucket,
	}, nil
}

func (s *S3Store) objectKey(ownerID, key string) string {
	return ownerID + "/" + normalizeKey(key)
}

func (s *S3Store) Open(ctx context.Context, ownerID, key string) (Object, *ObjectInfo, error) {
	objectKey := s.objectKey(ownerID, key)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("head object: %w", s3Err(err))
	}

	info := &ObjectInfo{
		Size:        aws.ToInt64(head.ContentLength),
		ContentType: aws.ToString(head.ContentType),
	}
	if head.LastModified != nil {
		info.ModTime = *head.LastModified
	}

	return &s3Object{
		ctx:    ctx,
		client: s.client,
		bucket: s.bucket,
		key:    objectKey,
		size:   info.Size,
	}, info, nil
}

func (s *S3Store) Exists(ctx context.Context, ownerID, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ownerID, key)),
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(s3Err(err), ErrObjectNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("head object: %w", err)
}

func (s *S3Store) Put(ctx context.Context, ownerID, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ownerID, key)),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func s3Err(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return ErrObjectNotFound
		}
	}
	return err
}

// s3Object reads lazily with ranged GetObject calls; a Seek drops the
// current body and the next Read reopens at the new offset.
type s3Object struct {
	ctx    context.Context
	client s3API
	bucket string
	key    string
	size   int64
	offset int64
	body   io.ReadCloser
}

func (o *s3Object) Read(p []byte) (int, error) {
	if o.offset >= o.size {
		return 0, io.EOF
	}
	if o.body == nil {
		out, err := o.client.GetObject(o.ctx, &s3.GetObjectInput{
			Bucket: aws.String(o.bucket),
			Key:    aws.String(o.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-", o.offset)),
		})
		if err != nil {
			return 0, fmt.Errorf("get object: %w", s3Err(err))
		}
		o.body = out.Body
	}

	n, err := o.body.Read(p)
	o.offset += int64(n)
	return n, err
}

func (o *s3Object) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = o.offset + offset
	case io.SeekEnd:
		next = o.size + offset
	default:
		return 0, errors.New("s3 object: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("s3 object: negative position")
	}

	if next != o.offset && o.body != nil {
		o.body.Close()
		o.body = nil
	}
	o.offset = next
	return next, nil
}

func (o *s3Object) Close() error {
	if o.body == nil {
		return nil
	}
	err := o.body.Close()
	o.body = nil
	return err
}

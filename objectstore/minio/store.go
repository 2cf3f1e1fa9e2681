package minio

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
)

// API is the subset of *minio.Client used by Store.
type API interface {
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

var _ API = (*minio.Client)(nil)

// Config holds connection settings for an S3-compatible endpoint.
type Config struct {
	// Endpoint is host[:port] without scheme
	Endpoint string

	AccessKey string
	SecretKey string

	// UseSSL selects https
	UseSSL bool

	Region string
}

// Store is a MinIO-backed objectstore.Store.
type Store struct {
	client API
}

var _ objectstore.Store = (*Store)(nil)

// New connects to the endpoint described by cfg.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewError(errors.CodeInvalidConfig, "minio client", fmt.Errorf("endpoint is required"))
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewError(errors.CodeInvalidConfig, "minio client", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client. Used in tests.
func NewWithClient(client API) *Store {
	return &Store{client: client}
}

// Get downloads an object fully into memory.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := validateTarget(bucket, key); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, objectstore.NewError("get", bucket, key, translateError(err))
	}
	defer func() {
		_ = obj.Close()
	}()

	// GetObject is lazy; request errors surface on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, objectstore.NewError("get", bucket, key, translateError(err))
	}
	return data, nil
}

// Put uploads data to key, overwriting any existing object.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := validateTarget(bucket, key); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimetype.Detect(data).String(),
	})
	if err != nil {
		return objectstore.NewError("put", bucket, key, translateError(err))
	}
	return nil
}

// Exists reports whether key exists.
func (s *Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validateTarget(bucket, key); err != nil {
		return false, err
	}

	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		translated := translateError(err)
		if errors.IsObjectNotFound(translated) {
			return false, nil
		}
		return false, objectstore.NewError("head", bucket, key, translated)
	}
	return true, nil
}

// List returns objects under prefix. The MinIO client pages internally; a
// MaxKeys bound stops the listing early.
func (s *Store) List(
	ctx context.Context,
	bucket, prefix string,
	opts ...objectstore.ListOption,
) ([]objectstore.Object, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	cfg := objectstore.ApplyListOptions(opts)

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []objectstore.Object
	for info := range s.client.ListObjects(listCtx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   int(cfg.MaxKeys),
	}) {
		if info.Err != nil {
			return nil, objectstore.NewError("list", bucket, prefix, translateError(info.Err))
		}
		objects = append(objects, objectstore.Object{
			Key:          info.Key,
			Size:         info.Size,
			LastModified: info.LastModified,
			ETag:         info.ETag,
		})
		if cfg.MaxKeys > 0 && int32(len(objects)) >= cfg.MaxKeys {
			break
		}
	}
	return objects, nil
}

// translateError maps MinIO error responses onto the module sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
	case "NoSuchBucket":
		return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
	case 0:
		// No HTTP response was parsed, so the endpoint was never reached.
		return fmt.Errorf("%w: %w", errors.ErrConnection, err)
	}
	return err
}

func validateTarget(bucket, key string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	return validation.ValidateObjectKey(key)
}

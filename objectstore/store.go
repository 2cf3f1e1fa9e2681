package objectstore

import (
	"context"
	"errors"
	"time"

	dserrors "github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
)

// Store is the minimal bucket/key store used by the pipeline.
type Store interface {
	// Get downloads an object fully into memory.
	// Returns an error wrapping errors.ErrObjectNotFound if the key does not exist.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put writes data to key, overwriting any existing object.
	Put(ctx context.Context, bucket, key string, data []byte) error

	// Exists reports whether key exists without downloading it.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// List returns objects whose keys start with prefix, in key order.
	// Without WithMaxKeys the listing follows continuation tokens until exhausted.
	List(ctx context.Context, bucket, prefix string, opts ...ListOption) ([]Object, error)
}

// Object represents a stored object with its basic metadata.
type Object struct {
	// Key is the object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the entity tag for the object
	ETag string
}

// ListConfig holds configuration for List via functional options.
type ListConfig struct {
	// MaxKeys bounds the number of returned objects. Zero means no bound.
	MaxKeys int32
}

// ListOption configures a List call.
type ListOption func(*ListConfig)

// WithMaxKeys bounds a listing to at most n objects.
// A single request is issued when n is at most one page.
func WithMaxKeys(n int32) ListOption {
	return func(c *ListConfig) {
		if n > 0 {
			c.MaxKeys = n
		}
	}
}

// ApplyListOptions resolves opts into a ListConfig.
func ApplyListOptions(opts []ListOption) ListConfig {
	var cfg ListConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ErrorCode classifies a backend error. Connection failures, denied access
// and missing buckets mean the store itself is unusable; anything else is
// left for the caller to classify.
func ErrorCode(err error) dserrors.ErrorCode {
	switch {
	case errors.Is(err, dserrors.ErrConnection),
		errors.Is(err, dserrors.ErrAccessDenied),
		errors.Is(err, dserrors.ErrBucketNotFound):
		return dserrors.CodeConnectivity
	default:
		return dserrors.CodeUnknown
	}
}

// NewError wraps a backend error with operation and object context.
func NewError(op, bucket, key string, err error) *dserrors.Error {
	return dserrors.NewObjectError(ErrorCode(err), op, bucket, key, err)
}

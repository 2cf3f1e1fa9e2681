package memory

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // ETag emulation, not security
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
)

type object struct {
	data         []byte
	lastModified time.Time
	etag         string
}

// Store implements an in-memory bucket/key store.
type Store struct {
	// buckets holds objects keyed by bucket then key
	buckets map[string]map[string]*object
	// mu protects concurrent access to buckets
	mu sync.RWMutex

	pageSize int
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPageSize makes List page through results n keys at a time, the way a
// remote listing is truncated. It has no visible effect on results.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock overrides the time source used for LastModified.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store. Buckets are created on first Put or by CreateBucket.
func New(opts ...Option) *Store {
	s := &Store{
		buckets:  make(map[string]map[string]*object),
		pageSize: 1000,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBucket creates an empty bucket if it does not exist.
func (s *Store) CreateBucket(bucket string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]*object)
	}
}

// Get returns a copy of the object's data.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, err := s.lookup(bucket, key)
	if err != nil {
		return nil, objectstore.NewError("get", bucket, key, err)
	}
	return bytes.Clone(obj.data), nil
}

// Put stores a copy of data under key, replacing any existing object.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put cancelled: %w", err)
	}

	sum := md5.Sum(data) //nolint:gosec // ETag emulation
	obj := &object{
		data:         bytes.Clone(data),
		lastModified: s.now(),
		etag:         `"` + hex.EncodeToString(sum[:]) + `"`,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		objects = make(map[string]*object)
		s.buckets[bucket] = objects
	}
	objects[key] = obj
	return nil
}

// Exists reports whether key exists.
func (s *Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("exists cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.buckets[bucket]; !ok {
		return false, objectstore.NewError("exists", bucket, key, errors.ErrBucketNotFound)
	}
	_, err := s.lookup(bucket, key)
	return err == nil, nil
}

// List returns objects under prefix in lexical key order, page by page.
func (s *Store) List(
	ctx context.Context,
	bucket, prefix string,
	opts ...objectstore.ListOption,
) ([]objectstore.Object, error) {
	cfg := objectstore.ApplyListOptions(opts)

	s.mu.RLock()
	objects, ok := s.buckets[bucket]
	if !ok {
		s.mu.RUnlock()
		return nil, objectstore.NewError("list", bucket, "", errors.ErrBucketNotFound)
	}
	keys := make([]string, 0, len(objects))
	for key := range objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	listed := make([]objectstore.Object, 0, len(keys))
	for _, key := range keys {
		obj := objects[key]
		listed = append(listed, objectstore.Object{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
			ETag:         obj.etag,
		})
	}
	s.mu.RUnlock()

	var result []objectstore.Object
	for start := 0; start < len(listed); start += s.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("list cancelled: %w", err)
		}
		end := min(start+s.pageSize, len(listed))
		result = append(result, listed[start:end]...)
		if cfg.MaxKeys > 0 && len(result) >= int(cfg.MaxKeys) {
			return result[:cfg.MaxKeys], nil
		}
	}
	return result, nil
}

// Keys returns every key in bucket in lexical order.
func (s *Store) Keys(bucket string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.buckets[bucket]))
	for key := range s.buckets[bucket] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) lookup(bucket, key string) (*object, error) {
	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, errors.ErrBucketNotFound
	}
	obj, ok := objects[key]
	if !ok {
		return nil, errors.ErrObjectNotFound
	}
	return obj, nil
}

var _ objectstore.Store = (*Store)(nil)

package publish

import (
	"context"
	stderrors "errors"
	"path"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
)

// Publisher republishes entries as "<prefix>/<name>" in a single bucket.
// Publishing is idempotent: a repeated put overwrites with identical bytes.
type Publisher struct {
	store  objectstore.Store
	bucket string
	prefix string
}

// New creates a Publisher writing into bucket under prefix.
func New(store objectstore.Store, bucket, prefix string) *Publisher {
	return &Publisher{store: store, bucket: bucket, prefix: prefix}
}

// TargetKey returns the key an entry is published under.
func (p *Publisher) TargetKey(name string) string {
	return TargetKey(p.prefix, name)
}

// TargetKey joins prefix and an entry name with a single slash.
func TargetKey(prefix, name string) string {
	return prefix + "/" + name
}

// Publish writes payload to the entry's target key and returns that key.
// Failures are returned as write errors carrying the bucket and key. Keys
// that could escape the prefix are rejected without contacting the store.
func (p *Publisher) Publish(ctx context.Context, name string, payload []byte) (string, error) {
	key := p.TargetKey(name)

	if err := checkKey(p.prefix, key); err != nil {
		return key, errors.NewObjectError(errors.CodeWrite, "publish", p.bucket, key, err)
	}

	if err := p.store.Put(ctx, p.bucket, key, payload); err != nil {
		return key, errors.NewObjectError(errors.CodeWrite, "publish", p.bucket, key, unwrapStoreError(err))
	}
	return key, nil
}

func checkKey(prefix, key string) error {
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	// Cleaning must not move the key out from under the prefix.
	if cleaned := path.Clean(key); cleaned != prefix && !hasDirPrefix(cleaned, prefix) {
		return errors.ErrInvalidObjectKey
	}
	return nil
}

func hasDirPrefix(key, prefix string) bool {
	return len(key) > len(prefix) && key[:len(prefix)] == prefix && key[len(prefix)] == '/'
}

// unwrapStoreError drops the store's own *errors.Error layer so the write
// error reports the underlying cause once.
func unwrapStoreError(err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}
